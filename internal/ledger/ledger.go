// Package ledger composes the event log and the summary projector into the
// write path and read façade used by the HTTP surface and the CLI.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"diceledger/internal/eventlog"
	"diceledger/internal/model"
	"diceledger/internal/projector"
	"diceledger/internal/storage"
)

// SummaryCache is an optional read-through cache in front of the summary store.
// Get returns model.ErrNotFound on a miss.
type SummaryCache interface {
	Get(ctx context.Context, poolID uint64) (model.PoolSummary, error)
	Set(ctx context.Context, summary model.PoolSummary) error
	Invalidate(ctx context.Context, poolID uint64) error
}

// RecordResult describes one recorded event. Drift is set when the event was
// appended but the summary could not be updated.
type RecordResult struct {
	Event   model.Event
	Outcome projector.Outcome
	Drift   error
}

// Service records events and answers queries over the log and summaries.
type Service struct {
	log       *eventlog.Log
	projector *projector.Projector
	summaries storage.SummaryStore
	cache     SummaryCache
	logger    *zap.Logger
}

func New(log *eventlog.Log, proj *projector.Projector, summaries storage.SummaryStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		log:       log,
		projector: proj,
		summaries: summaries,
		logger:    logger,
	}
}

// WithCache enables the summary cache.
func (s *Service) WithCache(cache SummaryCache) *Service {
	s.cache = cache
	return s
}

func (s *Service) RecordPoolCreated(ctx context.Context, in eventlog.PoolCreatedInput) (RecordResult, error) {
	ev, err := s.log.AppendPoolCreated(ctx, in)
	if err != nil {
		return RecordResult{}, err
	}
	return s.project(ctx, ev)
}

func (s *Service) RecordBet(ctx context.Context, in eventlog.BetInput) (RecordResult, error) {
	ev, err := s.log.AppendBet(ctx, in)
	if err != nil {
		return RecordResult{}, err
	}
	return s.project(ctx, ev)
}

func (s *Service) RecordPoolResolved(ctx context.Context, in eventlog.PoolResolvedInput) (RecordResult, error) {
	ev, err := s.log.AppendPoolResolved(ctx, in)
	if err != nil {
		return RecordResult{}, err
	}
	return s.project(ctx, ev)
}

// project updates the summary for an already appended event. Only a conflict is
// returned as an error; other failures are reported as drift and the append stands.
func (s *Service) project(ctx context.Context, ev model.Event) (RecordResult, error) {
	result := RecordResult{Event: ev}

	outcome, err := s.projector.Apply(ctx, ev)
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return result, fmt.Errorf("pool %d: %w", ev.PoolID, err)
		}
		result.Drift = err
		s.logger.Warn("summary drift",
			zap.String("event", string(ev.Kind)),
			zap.Uint64("pool_id", ev.PoolID),
			zap.Int64("seq", ev.Seq),
			zap.Error(err),
		)
		s.invalidate(ctx, ev.PoolID)
		return result, nil
	}

	result.Outcome = outcome
	if outcome == projector.OutcomeApplied {
		s.invalidate(ctx, ev.PoolID)
	}
	return result, nil
}

func (s *Service) GetBetsForPool(ctx context.Context, poolID uint64) ([]model.Event, error) {
	return s.log.ListBets(ctx, poolID)
}

func (s *Service) GetPoolEvents(ctx context.Context, poolID uint64) ([]model.Event, error) {
	return s.log.ListEvents(ctx, poolID)
}

func (s *Service) GetBetsForUser(ctx context.Context, user string) ([]model.Event, error) {
	return s.log.ListBetsByUser(ctx, user)
}

// GetLatestPoolID returns the greatest created pool id; ok is false on an empty log.
func (s *Service) GetLatestPoolID(ctx context.Context) (uint64, bool, error) {
	return s.log.LatestPoolID(ctx)
}

// GetPoolSummary returns the stored summary or model.ErrNotFound. A missing
// summary is never reconstructed here.
func (s *Service) GetPoolSummary(ctx context.Context, poolID uint64) (model.PoolSummary, error) {
	if s.cache != nil {
		summary, err := s.cache.Get(ctx, poolID)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("summary cache read failed", zap.Uint64("pool_id", poolID), zap.Error(err))
		}
	}

	summary, err := s.summaries.GetSummary(ctx, poolID)
	if err != nil {
		return model.PoolSummary{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summary); err != nil {
			s.logger.Warn("summary cache write failed", zap.Uint64("pool_id", poolID), zap.Error(err))
		}
	}
	return summary, nil
}

// Rebuild replays the event log into the summary table.
func (s *Service) Rebuild(ctx context.Context, pageSize int) (projector.RebuildStats, error) {
	return s.projector.Rebuild(ctx, s.log, pageSize)
}

func (s *Service) invalidate(ctx context.Context, poolID uint64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, poolID); err != nil {
		s.logger.Warn("summary cache invalidate failed", zap.Uint64("pool_id", poolID), zap.Error(err))
	}
}
