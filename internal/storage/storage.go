package storage

import (
	"context"
	"time"

	"diceledger/internal/model"
)

// EventStore is the append-only event table.
type EventStore interface {
	// InsertEvent appends ev and assigns ev.Seq. Events are never updated or removed.
	InsertEvent(ctx context.Context, ev *model.Event) error
	// FindEvents returns events matching q in the requested order.
	FindEvents(ctx context.Context, q EventQuery) ([]model.Event, error)
}

// SummaryStore is the mutable per-pool rollup table, unique on pool id.
type SummaryStore interface {
	// InsertSummary creates a summary. Returns model.ErrConflict if one exists.
	InsertSummary(ctx context.Context, s model.PoolSummary) error
	// GetSummary returns model.ErrNotFound if the pool has no summary.
	GetSummary(ctx context.Context, poolID uint64) (model.PoolSummary, error)
	// IncrementSummary atomically adds amount and bets to an open summary.
	IncrementSummary(ctx context.Context, poolID uint64, amount model.Wei, bets int64, at time.Time) (UpdateResult, error)
	// ResolveSummary atomically closes an open summary with the authoritative total.
	ResolveSummary(ctx context.Context, poolID uint64, res Resolution, at time.Time) (UpdateResult, error)
	// PutSummary inserts or replaces a summary; used when rebuilding from the log.
	PutSummary(ctx context.Context, s model.PoolSummary) error
}

// Resolution is the final state written when a pool is resolved.
type Resolution struct {
	Result         int
	TotalAmountWei model.Wei
}

// UpdateResult reports what a guarded summary update did.
type UpdateResult int

const (
	UpdateApplied UpdateResult = iota
	UpdateNotFound
	UpdateEnded
)

func (r UpdateResult) String() string {
	switch r {
	case UpdateApplied:
		return "applied"
	case UpdateNotFound:
		return "not_found"
	case UpdateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Storage defines a sink for exported events.
type Storage interface {
	PutEventBatch(events []model.Event) error
}
