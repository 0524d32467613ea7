package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

func openSummary(poolID uint64) model.PoolSummary {
	return model.PoolSummary{
		PoolID:          poolID,
		StartTime:       1000,
		EndTime:         2000,
		DurationSeconds: 1000,
		BaseAmountWei:   model.MustWei("1000000000000000000"),
	}
}

func TestSummaryStore_InsertConflict(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	if err := store.InsertSummary(ctx, openSummary(1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.InsertSummary(ctx, openSummary(1))
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSummaryStore_GetNotFound(t *testing.T) {
	store := NewSummaryStore()
	_, err := store.GetSummary(context.Background(), 9)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryStore_ConcurrentIncrements(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()
	if err := store.InsertSummary(ctx, openSummary(1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	const workers = 64
	amount := model.MustWei("1000000000000000001")
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementSummary(ctx, 1, amount, 1, time.Now()); err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetSummary(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TotalBets != workers {
		t.Fatalf("total bets %d, want %d", got.TotalBets, workers)
	}
	if got.TotalAmountWei.String() != "64000000000000000064" {
		t.Fatalf("total amount %s", got.TotalAmountWei)
	}
}

func TestSummaryStore_ResolveIsFinal(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()
	if err := store.InsertSummary(ctx, openSummary(1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	res, err := store.ResolveSummary(ctx, 1, storage.Resolution{Result: 7, TotalAmountWei: model.MustWei("30")}, time.Now())
	if err != nil || res != storage.UpdateApplied {
		t.Fatalf("resolve: %v %v", res, err)
	}

	res, err = store.ResolveSummary(ctx, 1, storage.Resolution{Result: 3, TotalAmountWei: model.MustWei("99")}, time.Now())
	if err != nil || res != storage.UpdateEnded {
		t.Fatalf("second resolve: %v %v", res, err)
	}
	res, err = store.IncrementSummary(ctx, 1, model.MustWei("5"), 1, time.Now())
	if err != nil || res != storage.UpdateEnded {
		t.Fatalf("increment after resolve: %v %v", res, err)
	}

	got, _ := store.GetSummary(ctx, 1)
	if !got.Ended || got.Result == nil || *got.Result != 7 || got.TotalAmountWei.String() != "30" || got.TotalBets != 0 {
		t.Fatalf("summary changed after resolution: %+v", got)
	}
}

func TestSummaryStore_MissingPool(t *testing.T) {
	store := NewSummaryStore()
	res, err := store.IncrementSummary(context.Background(), 4, model.MustWei("1"), 1, time.Now())
	if err != nil || res != storage.UpdateNotFound {
		t.Fatalf("expected not found, got %v %v", res, err)
	}
}
