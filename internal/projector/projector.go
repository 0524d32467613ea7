// Package projector keeps the per-pool summary table in step with the event log.
package projector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

// Outcome reports what applying one event did to the summary table.
type Outcome string

const (
	// OutcomeApplied means the summary was created or updated.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the pool has no summary; the event is only in the log.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIgnored means the pool is already resolved and the summary is final.
	OutcomeIgnored Outcome = "ignored"
)

// Projector applies events to a SummaryStore.
type Projector struct {
	store  storage.SummaryStore
	now    func() time.Time
	logger *zap.Logger
}

func New(store storage.SummaryStore, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// WithClock overrides the updatedAt clock.
func (p *Projector) WithClock(now func() time.Time) *Projector {
	if now != nil {
		p.now = now
	}
	return p
}

// Apply dispatches ev to the matching handler.
func (p *Projector) Apply(ctx context.Context, ev model.Event) (Outcome, error) {
	switch ev.Kind {
	case model.KindPoolCreated:
		return p.OnPoolCreated(ctx, ev)
	case model.KindBetPlaced:
		return p.OnBet(ctx, ev)
	case model.KindPoolResolved:
		return p.OnPoolResolved(ctx, ev)
	default:
		return "", fmt.Errorf("project event: %w", model.Invalid("event", "unknown kind"))
	}
}

// OnPoolCreated seeds an open summary. An existing summary is never overwritten;
// the duplicate is reported as model.ErrConflict.
func (p *Projector) OnPoolCreated(ctx context.Context, ev model.Event) (Outcome, error) {
	summary, err := model.NewPoolSummary(ev, p.now())
	if err != nil {
		return "", err
	}
	if err := p.store.InsertSummary(ctx, summary); err != nil {
		if errors.Is(err, model.ErrConflict) {
			p.logger.Warn("duplicate pool creation", zap.Uint64("pool_id", ev.PoolID), zap.Int64("seq", ev.Seq))
		}
		return "", fmt.Errorf("create summary: %w", err)
	}
	return OutcomeApplied, nil
}

// OnBet adds the bet amount and one bet to the pool's open summary.
func (p *Projector) OnBet(ctx context.Context, ev model.Event) (Outcome, error) {
	if ev.BetPlaced == nil {
		return "", fmt.Errorf("project bet: missing payload at seq %d", ev.Seq)
	}
	res, err := p.store.IncrementSummary(ctx, ev.PoolID, ev.AmountWei, 1, p.now())
	if err != nil {
		return "", fmt.Errorf("increment summary: %w", err)
	}
	return p.outcome(ev, res), nil
}

// OnPoolResolved closes the pool's summary with the resolved total. A second
// resolution leaves the first one in place.
func (p *Projector) OnPoolResolved(ctx context.Context, ev model.Event) (Outcome, error) {
	if ev.PoolResolved == nil {
		return "", fmt.Errorf("project resolution: missing payload at seq %d", ev.Seq)
	}
	res, err := p.store.ResolveSummary(ctx, ev.PoolID, storage.Resolution{
		Result:         ev.Result,
		TotalAmountWei: ev.TotalAmountWei,
	}, p.now())
	if err != nil {
		return "", fmt.Errorf("resolve summary: %w", err)
	}
	return p.outcome(ev, res), nil
}

func (p *Projector) outcome(ev model.Event, res storage.UpdateResult) Outcome {
	switch res {
	case storage.UpdateApplied:
		return OutcomeApplied
	case storage.UpdateEnded:
		p.logger.Info("pool already resolved, summary unchanged",
			zap.String("event", string(ev.Kind)),
			zap.Uint64("pool_id", ev.PoolID),
		)
		return OutcomeIgnored
	default:
		p.logger.Info("pool has no summary, projection skipped",
			zap.String("event", string(ev.Kind)),
			zap.Uint64("pool_id", ev.PoolID),
		)
		return OutcomeSkipped
	}
}
