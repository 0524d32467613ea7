package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"diceledger/internal/model"
	"diceledger/internal/storage"
	"diceledger/internal/storage/memory"
)

type countingStore struct {
	storage.EventStore
	inserts int
}

func (c *countingStore) InsertEvent(ctx context.Context, ev *model.Event) error {
	c.inserts++
	return c.EventStore.InsertEvent(ctx, ev)
}

type downStore struct{}

func (downStore) InsertEvent(context.Context, *model.Event) error {
	return model.ErrStoreUnavailable
}

func (downStore) FindEvents(context.Context, storage.EventQuery) ([]model.Event, error) {
	return nil, model.ErrStoreUnavailable
}

func newTestLog(store storage.EventStore) *Log {
	tick := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return New(store, Config{
		ChainID:         31337,
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Now: func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		},
	}, nil)
}

func validBet(poolID uint64, index int64) BetInput {
	return BetInput{
		PoolID:      poolID,
		TxHash:      "0xAB",
		User:        "0xUser",
		AmountWei:   model.MustWei("1000000000000000000"),
		TargetScore: 7,
		BetIndex:    index,
	}
}

func TestAppendBetRejectsScoreOutOfRange(t *testing.T) {
	store := &countingStore{EventStore: memory.NewEventStore()}
	log := newTestLog(store)

	for _, score := range []int{-1, 0, 13, 100} {
		in := validBet(1, 0)
		in.TargetScore = score
		_, err := log.AppendBet(context.Background(), in)
		if !errors.Is(err, model.ErrValidation) {
			t.Fatalf("score %d: expected validation error, got %v", score, err)
		}
	}
	if store.inserts != 0 {
		t.Fatalf("expected no writes, got %d", store.inserts)
	}
}

func TestAppendValidation(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ctx := context.Background()

	tests := []struct {
		name  string
		field string
		run   func() error
	}{
		{"end before start", "endTime", func() error {
			_, err := log.AppendPoolCreated(ctx, PoolCreatedInput{PoolID: 1, StartTime: 2000, EndTime: 2000})
			return err
		}},
		{"missing tx hash", "txHash", func() error {
			in := validBet(1, 0)
			in.TxHash = " "
			_, err := log.AppendBet(ctx, in)
			return err
		}},
		{"missing user", "user", func() error {
			in := validBet(1, 0)
			in.User = ""
			_, err := log.AppendBet(ctx, in)
			return err
		}},
		{"negative bet index", "betIndex", func() error {
			_, err := log.AppendBet(ctx, validBet(1, -1))
			return err
		}},
		{"result out of range", "result", func() error {
			_, err := log.AppendPoolResolved(ctx, PoolResolvedInput{PoolID: 1, TxHash: "0x1", Result: 13})
			return err
		}},
		{"empty winner", "winnerAddresses", func() error {
			_, err := log.AppendPoolResolved(ctx, PoolResolvedInput{PoolID: 1, TxHash: "0x1", Result: 7, WinnerAddresses: []string{""}})
			return err
		}},
		{"negative winner index", "winnerBetIndices", func() error {
			_, err := log.AppendPoolResolved(ctx, PoolResolvedInput{PoolID: 1, TxHash: "0x1", Result: 7, WinnerBetIndices: []int64{-2}})
			return err
		}},
		{"pool id overflow", "poolId", func() error {
			_, err := log.AppendBet(ctx, validBet(1<<63, 0))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("field mismatch: got %s want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestAppendStampsProvenanceAndNormalises(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	bn := uint64(99)
	in := validBet(3, 0)
	in.User = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	in.TxHash = "0x88DF016429689C079F3B2F6AD39FA052532C56795B733DA78A91EBE6A713944B"
	in.BlockNumber = &bn

	ev, err := log.AppendBet(context.Background(), in)
	if err != nil {
		t.Fatalf("AppendBet failed: %v", err)
	}
	if ev.Seq == 0 {
		t.Fatalf("expected sequence to be assigned")
	}
	if ev.ChainID != 31337 || ev.ContractAddress != "0x5fbdb2315678afecb367f032d93f642f64180aa3" {
		t.Fatalf("provenance mismatch: %d %s", ev.ChainID, ev.ContractAddress)
	}
	if ev.User != "0x5fbdb2315678afecb367f032d93f642f64180aa3" {
		t.Fatalf("user not normalised: %s", ev.User)
	}
	if ev.TxHash != "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b" {
		t.Fatalf("tx hash not normalised: %s", ev.TxHash)
	}
	if ev.BlockNumber == nil || *ev.BlockNumber != 99 {
		t.Fatalf("block number mismatch: %v", ev.BlockNumber)
	}
	if ev.RecordedAt.IsZero() {
		t.Fatalf("recordedAt not assigned")
	}
}

func TestAppendResolvedKeepsWinnerOrder(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ev, err := log.AppendPoolResolved(context.Background(), PoolResolvedInput{
		PoolID:             1,
		TxHash:             "0xres",
		Result:             7,
		TotalAmountWei:     model.MustWei("3000000000000000000"),
		WinnerAddresses:    []string{"0xABC", "0xdef", "0xabc"},
		PayoutPerWinnerWei: model.MustWei("1000000000000000000"),
		WinnerBetIndices:   []int64{0, 2, 5},
	})
	if err != nil {
		t.Fatalf("AppendPoolResolved failed: %v", err)
	}
	want := []string{"0xabc", "0xdef", "0xabc"}
	for i := range want {
		if ev.WinnerAddresses[i] != want[i] {
			t.Fatalf("winner %d: got %s want %s", i, ev.WinnerAddresses[i], want[i])
		}
	}
	if len(ev.WinnerBetIndices) != 3 || ev.WinnerBetIndices[2] != 5 {
		t.Fatalf("winner indices mismatch: %v", ev.WinnerBetIndices)
	}
}

func TestListBetsOrderedByIndex(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ctx := context.Background()

	for _, idx := range []int64{3, 1, 0, 2} {
		if _, err := log.AppendBet(ctx, validBet(4, idx)); err != nil {
			t.Fatalf("AppendBet failed: %v", err)
		}
	}
	if _, err := log.AppendBet(ctx, validBet(5, 0)); err != nil {
		t.Fatalf("AppendBet failed: %v", err)
	}

	bets, err := log.ListBets(ctx, 4)
	if err != nil {
		t.Fatalf("ListBets failed: %v", err)
	}
	if len(bets) != 4 {
		t.Fatalf("expected 4 bets, got %d", len(bets))
	}
	for i, ev := range bets {
		if ev.BetIndex != int64(i) {
			t.Fatalf("position %d has betIndex %d", i, ev.BetIndex)
		}
	}
}

func TestListEventsByRecordingTime(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ctx := context.Background()

	if _, err := log.AppendPoolCreated(ctx, PoolCreatedInput{PoolID: 1, StartTime: 1000, EndTime: 2000, DurationSeconds: 1000}); err != nil {
		t.Fatalf("AppendPoolCreated failed: %v", err)
	}
	if _, err := log.AppendBet(ctx, validBet(1, 0)); err != nil {
		t.Fatalf("AppendBet failed: %v", err)
	}
	if _, err := log.AppendPoolResolved(ctx, PoolResolvedInput{PoolID: 1, TxHash: "0x1", Result: 7}); err != nil {
		t.Fatalf("AppendPoolResolved failed: %v", err)
	}

	events, err := log.ListEvents(ctx, 1)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	want := []model.EventKind{model.KindPoolCreated, model.KindBetPlaced, model.KindPoolResolved}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, kind := range want {
		if events[i].Kind != kind {
			t.Fatalf("event %d: got %s want %s", i, events[i].Kind, kind)
		}
	}
}

func TestLatestPoolID(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ctx := context.Background()

	if _, ok, err := log.LatestPoolID(ctx); err != nil || ok {
		t.Fatalf("expected none on empty log, got ok=%v err=%v", ok, err)
	}

	for _, id := range []uint64{1, 2, 0} {
		if _, err := log.AppendPoolCreated(ctx, PoolCreatedInput{PoolID: id, StartTime: 1, EndTime: 2}); err != nil {
			t.Fatalf("AppendPoolCreated failed: %v", err)
		}
	}
	if _, err := log.AppendBet(ctx, validBet(50, 0)); err != nil {
		t.Fatalf("AppendBet failed: %v", err)
	}

	id, ok, err := log.LatestPoolID(ctx)
	if err != nil || !ok || id != 2 {
		t.Fatalf("expected latest 2, got %d ok=%v err=%v", id, ok, err)
	}
}

func TestListBetsByUserIsCaseInsensitive(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ctx := context.Background()

	for _, pool := range []uint64{2, 1} {
		if _, err := log.AppendBet(ctx, validBet(pool, 0)); err != nil {
			t.Fatalf("AppendBet failed: %v", err)
		}
	}

	bets, err := log.ListBetsByUser(ctx, "0XUSER")
	if err != nil {
		t.Fatalf("ListBetsByUser failed: %v", err)
	}
	if len(bets) != 2 || bets[0].PoolID != 1 || bets[1].PoolID != 2 {
		t.Fatalf("unexpected bets: %+v", bets)
	}
}

func TestReplayPages(t *testing.T) {
	log := newTestLog(memory.NewEventStore())
	ctx := context.Background()
	for i := int64(0); i < 5; i++ {
		if _, err := log.AppendBet(ctx, validBet(1, i)); err != nil {
			t.Fatalf("AppendBet failed: %v", err)
		}
	}

	var seen int
	var after int64
	for {
		page, err := log.Replay(ctx, after, 2)
		if err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		if len(page) == 0 {
			break
		}
		seen += len(page)
		after = page[len(page)-1].Seq
	}
	if seen != 5 {
		t.Fatalf("expected 5 replayed events, got %d", seen)
	}
}

func TestStoreFailurePropagates(t *testing.T) {
	log := newTestLog(downStore{})
	_, err := log.AppendBet(context.Background(), validBet(1, 0))
	if !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	if _, _, err := log.LatestPoolID(context.Background()); !errors.Is(err, model.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}
