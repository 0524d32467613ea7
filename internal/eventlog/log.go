// Package eventlog is the append-only record of pool lifecycle events.
package eventlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

// Config holds the deployment provenance stamped on every event.
type Config struct {
	ChainID         uint64
	ContractAddress string
	// Now assigns recordedAt. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Log validates and appends events, and serves ordered reads over them.
type Log struct {
	store  storage.EventStore
	cfg    Config
	logger *zap.Logger
}

type PoolCreatedInput struct {
	PoolID          uint64
	StartTime       int64
	EndTime         int64
	DurationSeconds int64
	BaseAmountWei   model.Wei
	TxHash          string
	BlockNumber     *uint64
}

type BetInput struct {
	PoolID      uint64
	TxHash      string
	User        string
	AmountWei   model.Wei
	TargetScore int
	BetIndex    int64
	BlockNumber *uint64
}

type PoolResolvedInput struct {
	PoolID             uint64
	TxHash             string
	Result             int
	TotalAmountWei     model.Wei
	WinnerAddresses    []string
	PayoutPerWinnerWei model.Wei
	WinnerBetIndices   []int64
	BlockNumber        *uint64
}

func New(store storage.EventStore, cfg Config, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	cfg.ContractAddress = NormalizeAddress(cfg.ContractAddress)
	return &Log{store: store, cfg: cfg, logger: logger}
}

// AppendPoolCreated records a pool_created event. Duplicate pool ids are not checked here.
func (l *Log) AppendPoolCreated(ctx context.Context, in PoolCreatedInput) (model.Event, error) {
	if err := in.validate(); err != nil {
		return model.Event{}, err
	}
	ev := l.envelope(model.KindPoolCreated, in.PoolID, in.TxHash, in.BlockNumber)
	ev.PoolCreated = &model.PoolCreated{
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationSeconds: in.DurationSeconds,
		BaseAmountWei:   in.BaseAmountWei,
	}
	return l.insert(ctx, ev)
}

// AppendBet records a bet_placed event.
func (l *Log) AppendBet(ctx context.Context, in BetInput) (model.Event, error) {
	if err := in.validate(); err != nil {
		return model.Event{}, err
	}
	ev := l.envelope(model.KindBetPlaced, in.PoolID, in.TxHash, in.BlockNumber)
	ev.BetPlaced = &model.BetPlaced{
		User:        NormalizeAddress(in.User),
		AmountWei:   in.AmountWei,
		TargetScore: in.TargetScore,
		BetIndex:    in.BetIndex,
	}
	return l.insert(ctx, ev)
}

// AppendPoolResolved records a pool_resolved event. Winner order and duplicates are kept.
func (l *Log) AppendPoolResolved(ctx context.Context, in PoolResolvedInput) (model.Event, error) {
	if err := in.validate(); err != nil {
		return model.Event{}, err
	}
	winners := make([]string, 0, len(in.WinnerAddresses))
	for _, addr := range in.WinnerAddresses {
		winners = append(winners, NormalizeAddress(addr))
	}
	indices := append(make([]int64, 0, len(in.WinnerBetIndices)), in.WinnerBetIndices...)

	ev := l.envelope(model.KindPoolResolved, in.PoolID, in.TxHash, in.BlockNumber)
	ev.PoolResolved = &model.PoolResolved{
		Result:             in.Result,
		TotalAmountWei:     in.TotalAmountWei,
		WinnerAddresses:    winners,
		PayoutPerWinnerWei: in.PayoutPerWinnerWei,
		WinnerBetIndices:   indices,
	}
	return l.insert(ctx, ev)
}

// ListBets returns the pool's bets by ascending betIndex.
func (l *Log) ListBets(ctx context.Context, poolID uint64) ([]model.Event, error) {
	return l.find(ctx, storage.EventQuery{
		PoolID: &poolID,
		Kind:   model.KindBetPlaced,
		Order:  storage.OrderBetIndex,
	})
}

// ListEvents returns the pool's full history by ascending recordedAt.
func (l *Log) ListEvents(ctx context.Context, poolID uint64) ([]model.Event, error) {
	return l.find(ctx, storage.EventQuery{
		PoolID: &poolID,
		Order:  storage.OrderRecorded,
	})
}

// ListBetsByUser returns every bet placed by user, grouped by pool.
func (l *Log) ListBetsByUser(ctx context.Context, user string) ([]model.Event, error) {
	user = NormalizeAddress(user)
	if user == "" {
		return nil, model.Invalid("user", "is required")
	}
	return l.find(ctx, storage.EventQuery{
		Kind:  model.KindBetPlaced,
		User:  user,
		Order: storage.OrderPoolIDBetIndex,
	})
}

// LatestPoolID returns the greatest pool id with a pool_created event.
// ok is false when no pool has been created.
func (l *Log) LatestPoolID(ctx context.Context) (poolID uint64, ok bool, err error) {
	events, err := l.find(ctx, storage.EventQuery{
		Kind:  model.KindPoolCreated,
		Order: storage.OrderPoolIDDesc,
		Limit: 1,
	})
	if err != nil {
		return 0, false, err
	}
	if len(events) == 0 {
		return 0, false, nil
	}
	return events[0].PoolID, true, nil
}

// Replay returns up to limit events with sequence greater than afterSeq, in sequence order.
func (l *Log) Replay(ctx context.Context, afterSeq int64, limit int) ([]model.Event, error) {
	return l.find(ctx, storage.EventQuery{
		AfterSeq: afterSeq,
		Order:    storage.OrderSeq,
		Limit:    limit,
	})
}

func (l *Log) envelope(kind model.EventKind, poolID uint64, txHash string, blockNumber *uint64) model.Event {
	ev := model.Event{
		Kind:            kind,
		PoolID:          poolID,
		ChainID:         l.cfg.ChainID,
		ContractAddress: l.cfg.ContractAddress,
		RecordedAt:      l.cfg.Now(),
	}
	if strings.TrimSpace(txHash) != "" {
		ev.TxHash = NormalizeTxHash(txHash)
	}
	if blockNumber != nil {
		bn := *blockNumber
		ev.BlockNumber = &bn
	}
	return ev
}

func (l *Log) insert(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := l.store.InsertEvent(ctx, &ev); err != nil {
		return model.Event{}, fmt.Errorf("append %s: %w", ev.Kind, err)
	}
	l.logger.Debug("event appended",
		zap.String("event", string(ev.Kind)),
		zap.Uint64("pool_id", ev.PoolID),
		zap.Int64("seq", ev.Seq),
	)
	return ev, nil
}

func (l *Log) find(ctx context.Context, q storage.EventQuery) ([]model.Event, error) {
	events, err := l.store.FindEvents(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	return events, nil
}
