package storage

import "diceledger/internal/model"

// EventOrder selects the sort applied by FindEvents.
type EventOrder int

const (
	// OrderSeq sorts by store sequence ascending.
	OrderSeq EventOrder = iota
	// OrderRecorded sorts by recorded_at ascending, then sequence.
	OrderRecorded
	// OrderBetIndex sorts by bet_index ascending, then sequence.
	OrderBetIndex
	// OrderPoolIDDesc sorts by pool_id descending, then sequence.
	OrderPoolIDDesc
	// OrderPoolIDBetIndex sorts by pool_id, then bet_index, then sequence.
	OrderPoolIDBetIndex
)

// EventQuery filters and orders FindEvents. Zero-valued filters match everything.
type EventQuery struct {
	PoolID   *uint64
	Kind     model.EventKind
	User     string
	AfterSeq int64
	Order    EventOrder
	Limit    int
}

// Matches reports whether ev passes the query filters.
func (q EventQuery) Matches(ev model.Event) bool {
	if q.PoolID != nil && ev.PoolID != *q.PoolID {
		return false
	}
	if q.Kind != "" && ev.Kind != q.Kind {
		return false
	}
	if q.User != "" && (ev.BetPlaced == nil || ev.User != q.User) {
		return false
	}
	if ev.Seq <= q.AfterSeq {
		return false
	}
	return true
}
