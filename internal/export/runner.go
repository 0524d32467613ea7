// Package export copies the event log into an external sink page by page.
package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

// Source pages through the event log in sequence order.
type Source interface {
	Replay(ctx context.Context, afterSeq int64, limit int) ([]model.Event, error)
}

// RunConfig holds runtime settings for an export.
type RunConfig struct {
	PageSize       int
	CheckpointPath string
}

// Runner streams events from the log and writes them to storage.
type Runner struct {
	cfg        RunConfig
	source     Source
	storage    storage.Storage
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

func NewRunner(cfg RunConfig, source Source, sink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		storage:    sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath),
	}
}

// Run exports every event after the checkpoint and returns how many were written.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if r.source == nil {
		return 0, fmt.Errorf("event source is nil")
	}
	if r.storage == nil {
		return 0, fmt.Errorf("storage is nil")
	}
	if r.cfg.PageSize <= 0 {
		return 0, fmt.Errorf("page size must be greater than zero")
	}

	var after int64
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return 0, err
	}
	if ok {
		after = cp.LastExportedSeq
		r.logger.Info("resume from checkpoint", zap.Int64("last_exported_seq", after))
	}

	written := 0
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		page, err := r.source.Replay(ctx, after, r.cfg.PageSize)
		if err != nil {
			return written, fmt.Errorf("replay after seq %d: %w", after, err)
		}
		if len(page) == 0 {
			break
		}

		if err := r.storage.PutEventBatch(page); err != nil {
			return written, fmt.Errorf("store events: %w", err)
		}
		after = page[len(page)-1].Seq
		written += len(page)

		if err := r.checkpoint.Save(after); err != nil {
			return written, err
		}
		r.logger.Info("page exported", zap.Int("events", len(page)), zap.Int64("last_seq", after))
	}

	r.logger.Info("export complete", zap.Int("events", written), zap.Int64("last_seq", after))
	return written, nil
}
