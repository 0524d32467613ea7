package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"diceledger/internal/eventlog"
	"diceledger/internal/model"
	"diceledger/internal/storage"
	"diceledger/internal/storage/memory"
)

type failingSink struct{}

func (failingSink) PutEventBatch([]model.Event) error {
	return errors.New("disk full")
}

func seededLog(t *testing.T, bets int) *eventlog.Log {
	t.Helper()
	log := eventlog.New(memory.NewEventStore(), eventlog.Config{ChainID: 1}, nil)
	ctx := context.Background()
	if _, err := log.AppendPoolCreated(ctx, eventlog.PoolCreatedInput{PoolID: 1, StartTime: 1, EndTime: 2}); err != nil {
		t.Fatalf("AppendPoolCreated failed: %v", err)
	}
	for i := 0; i < bets; i++ {
		_, err := log.AppendBet(ctx, eventlog.BetInput{
			PoolID:      1,
			TxHash:      "0x01",
			User:        "0xabc",
			AmountWei:   model.WeiFromUint64(uint64(i + 1)),
			TargetScore: 6,
			BetIndex:    int64(i),
		})
		if err != nil {
			t.Fatalf("AppendBet failed: %v", err)
		}
	}
	return log
}

func readLines(t *testing.T, path string) []model.Event {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var out []model.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var ev model.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

func TestRunExportsAllPages(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "events.jsonl")
	log := seededLog(t, 4)

	runner := NewRunner(RunConfig{PageSize: 2}, log, storage.NewJsonlStorage(out), nil)
	written, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if written != 5 {
		t.Fatalf("expected 5 events, got %d", written)
	}

	events := readLines(t, out)
	if len(events) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(events))
	}
	if events[0].Kind != model.KindPoolCreated || events[4].AmountWei.String() != "4" {
		t.Fatalf("unexpected export content: %+v", events)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "events.jsonl")
	cpPath := filepath.Join(dir, "state", "export.json")
	log := seededLog(t, 2)

	cfg := RunConfig{PageSize: 10, CheckpointPath: cpPath}
	if _, err := NewRunner(cfg, log, storage.NewJsonlStorage(out), nil).Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	cp, ok, err := NewCheckpointStore(cpPath).Load()
	if err != nil || !ok || cp.LastExportedSeq != 3 {
		t.Fatalf("checkpoint mismatch: %+v ok=%v err=%v", cp, ok, err)
	}
	if _, err := time.Parse(time.RFC3339Nano, cp.UpdatedAt); err != nil {
		t.Fatalf("bad updated_at: %v", err)
	}

	if _, err := log.AppendBet(context.Background(), eventlog.BetInput{
		PoolID: 1, TxHash: "0x02", User: "0xabc", AmountWei: model.WeiFromUint64(9), TargetScore: 2, BetIndex: 2,
	}); err != nil {
		t.Fatalf("AppendBet failed: %v", err)
	}

	written, err := NewRunner(cfg, log, storage.NewJsonlStorage(out), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if written != 1 {
		t.Fatalf("expected only the new event, got %d", written)
	}
	if events := readLines(t, out); len(events) != 4 {
		t.Fatalf("expected 4 lines total, got %d", len(events))
	}
}

func TestRunSinkFailureKeepsCheckpoint(t *testing.T) {
	cpPath := filepath.Join(t.TempDir(), "export.json")
	runner := NewRunner(RunConfig{PageSize: 2, CheckpointPath: cpPath}, seededLog(t, 1), failingSink{}, nil)

	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected sink error")
	}
	if _, ok, _ := NewCheckpointStore(cpPath).Load(); ok {
		t.Fatalf("checkpoint must not advance on failure")
	}
}

func TestRunValidatesConfig(t *testing.T) {
	if _, err := NewRunner(RunConfig{}, seededLog(t, 0), failingSink{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for zero page size")
	}
}
