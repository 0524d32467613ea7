package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events []model.Event // in sequence order
	seq    int64
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// InsertEvent appends ev and assigns its sequence number.
func (s *EventStore) InsertEvent(_ context.Context, ev *model.Event) error {
	if ev == nil || !ev.Kind.Valid() {
		return fmt.Errorf("insert event: %w", model.Invalid("event", "unknown kind"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev.Seq = s.seq
	s.events = append(s.events, ev.Clone())
	return nil
}

// FindEvents returns copies of matching events in the requested order.
func (s *EventStore) FindEvents(_ context.Context, q storage.EventQuery) ([]model.Event, error) {
	s.mu.RLock()
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if q.Matches(ev) {
			out = append(out, ev.Clone())
		}
	}
	s.mu.RUnlock()

	sortEvents(out, q.Order)

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func sortEvents(events []model.Event, order storage.EventOrder) {
	var less func(a, b model.Event) bool
	switch order {
	case storage.OrderRecorded:
		less = func(a, b model.Event) bool {
			if !a.RecordedAt.Equal(b.RecordedAt) {
				return a.RecordedAt.Before(b.RecordedAt)
			}
			return a.Seq < b.Seq
		}
	case storage.OrderBetIndex:
		less = func(a, b model.Event) bool {
			ai, bi := betIndex(a), betIndex(b)
			if ai != bi {
				return ai < bi
			}
			return a.Seq < b.Seq
		}
	case storage.OrderPoolIDDesc:
		less = func(a, b model.Event) bool {
			if a.PoolID != b.PoolID {
				return a.PoolID > b.PoolID
			}
			return a.Seq < b.Seq
		}
	case storage.OrderPoolIDBetIndex:
		less = func(a, b model.Event) bool {
			if a.PoolID != b.PoolID {
				return a.PoolID < b.PoolID
			}
			ai, bi := betIndex(a), betIndex(b)
			if ai != bi {
				return ai < bi
			}
			return a.Seq < b.Seq
		}
	default:
		less = func(a, b model.Event) bool { return a.Seq < b.Seq }
	}

	sort.SliceStable(events, func(i, j int) bool {
		return less(events[i], events[j])
	})
}

// betIndex sorts events without a bet payload last, like NULLs in Postgres.
func betIndex(ev model.Event) int64 {
	if ev.BetPlaced == nil {
		return 1<<63 - 1
	}
	return ev.BetIndex
}
