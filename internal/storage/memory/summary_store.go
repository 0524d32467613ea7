package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
// Every read-modify-write happens under one lock, so increments are atomic.
type SummaryStore struct {
	mu   sync.Mutex
	data map[uint64]model.PoolSummary
}

// NewSummaryStore creates an empty in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{data: make(map[uint64]model.PoolSummary)}
}

func (s *SummaryStore) InsertSummary(_ context.Context, summary model.PoolSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[summary.PoolID]; exists {
		return fmt.Errorf("pool %d summary: %w", summary.PoolID, model.ErrConflict)
	}
	s.data[summary.PoolID] = cloneSummary(summary)
	return nil
}

func (s *SummaryStore) GetSummary(_ context.Context, poolID uint64) (model.PoolSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.data[poolID]
	if !ok {
		return model.PoolSummary{}, fmt.Errorf("pool %d summary: %w", poolID, model.ErrNotFound)
	}
	return cloneSummary(summary), nil
}

func (s *SummaryStore) IncrementSummary(_ context.Context, poolID uint64, amount model.Wei, bets int64, at time.Time) (storage.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.data[poolID]
	if !ok {
		return storage.UpdateNotFound, nil
	}
	if summary.Ended {
		return storage.UpdateEnded, nil
	}

	summary.TotalAmountWei = summary.TotalAmountWei.Add(amount)
	summary.TotalBets += bets
	summary.UpdatedAt = at
	s.data[poolID] = summary
	return storage.UpdateApplied, nil
}

func (s *SummaryStore) ResolveSummary(_ context.Context, poolID uint64, res storage.Resolution, at time.Time) (storage.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, ok := s.data[poolID]
	if !ok {
		return storage.UpdateNotFound, nil
	}
	if summary.Ended {
		return storage.UpdateEnded, nil
	}

	result := res.Result
	summary.Ended = true
	summary.Result = &result
	summary.TotalAmountWei = res.TotalAmountWei
	summary.UpdatedAt = at
	s.data[poolID] = summary
	return storage.UpdateApplied, nil
}

func (s *SummaryStore) PutSummary(_ context.Context, summary model.PoolSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[summary.PoolID] = cloneSummary(summary)
	return nil
}

func cloneSummary(summary model.PoolSummary) model.PoolSummary {
	if summary.Result != nil {
		result := *summary.Result
		summary.Result = &result
	}
	return summary
}
