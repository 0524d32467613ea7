package projector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"diceledger/internal/model"
)

const defaultReplayPageSize = 500

// EventSource pages through the event log in sequence order.
type EventSource interface {
	Replay(ctx context.Context, afterSeq int64, limit int) ([]model.Event, error)
}

// RebuildStats summarises a rebuild run.
type RebuildStats struct {
	Events    int
	Summaries int
	Orphans   int
	LastSeq   int64
}

// accumulator folds one pool's events into its summary, following the same
// rules as the incremental handlers.
type accumulator struct {
	summary model.PoolSummary
}

func (a *accumulator) addBet(ev model.Event, at time.Time) {
	if a.summary.Ended {
		return
	}
	a.summary.TotalAmountWei = a.summary.TotalAmountWei.Add(ev.AmountWei)
	a.summary.TotalBets++
	a.summary.UpdatedAt = at
}

func (a *accumulator) resolve(ev model.Event, at time.Time) {
	if a.summary.Ended {
		return
	}
	result := ev.Result
	a.summary.Ended = true
	a.summary.Result = &result
	a.summary.TotalAmountWei = ev.TotalAmountWei
	a.summary.UpdatedAt = at
}

// Rebuild replays the whole log and writes a fresh summary for every created pool.
// The first pool_created event per pool wins. Events for pools without a creation
// event are counted as orphans. Summaries are upserted, so a rebuild can run over
// an existing table.
func (p *Projector) Rebuild(ctx context.Context, source EventSource, pageSize int) (RebuildStats, error) {
	if source == nil {
		return RebuildStats{}, fmt.Errorf("event source is not configured")
	}
	if pageSize <= 0 {
		pageSize = defaultReplayPageSize
	}

	var stats RebuildStats
	pools := make(map[uint64]*accumulator)
	for {
		page, err := source.Replay(ctx, stats.LastSeq, pageSize)
		if err != nil {
			return stats, fmt.Errorf("replay after seq %d: %w", stats.LastSeq, err)
		}
		if len(page) == 0 {
			break
		}
		for _, ev := range page {
			stats.LastSeq = ev.Seq
			stats.Events++

			acc, ok := pools[ev.PoolID]
			switch ev.Kind {
			case model.KindPoolCreated:
				if ok {
					continue
				}
				summary, err := model.NewPoolSummary(ev, ev.RecordedAt)
				if err != nil {
					return stats, err
				}
				pools[ev.PoolID] = &accumulator{summary: summary}
			case model.KindBetPlaced:
				if !ok {
					stats.Orphans++
					continue
				}
				acc.addBet(ev, ev.RecordedAt)
			case model.KindPoolResolved:
				if !ok {
					stats.Orphans++
					continue
				}
				acc.resolve(ev, ev.RecordedAt)
			}
		}
	}

	ids := make([]uint64, 0, len(pools))
	for id := range pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := p.store.PutSummary(ctx, pools[id].summary); err != nil {
			return stats, fmt.Errorf("write summary for pool %d: %w", id, err)
		}
		stats.Summaries++
	}

	p.logger.Info("summaries rebuilt",
		zap.Int("events", stats.Events),
		zap.Int("summaries", stats.Summaries),
		zap.Int("orphans", stats.Orphans),
		zap.Int64("last_seq", stats.LastSeq),
	)
	return stats, nil
}
