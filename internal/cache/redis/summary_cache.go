package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"diceledger/internal/model"
)

// DefaultSummaryTTL bounds how long a summary cached by a reader can outlive
// a concurrent write that invalidated it.
const DefaultSummaryTTL = 5 * time.Second

// SummaryCache stores pool summaries as JSON strings.
//
// Key schema:
//
//	diceledger:summary:{poolId} - JSON-encoded model.PoolSummary
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSummaryCache(c *Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &SummaryCache{rdb: c.Underlying(), ttl: ttl}
}

func summaryKey(poolID uint64) string {
	return "diceledger:summary:" + strconv.FormatUint(poolID, 10)
}

// Get returns model.ErrNotFound on a cache miss.
func (sc *SummaryCache) Get(ctx context.Context, poolID uint64) (model.PoolSummary, error) {
	data, err := sc.rdb.Get(ctx, summaryKey(poolID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PoolSummary{}, model.ErrNotFound
		}
		return model.PoolSummary{}, fmt.Errorf("redis: get summary %d: %w", poolID, err)
	}

	var summary model.PoolSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.PoolSummary{}, fmt.Errorf("redis: unmarshal summary %d: %w", poolID, err)
	}
	return summary, nil
}

func (sc *SummaryCache) Set(ctx context.Context, summary model.PoolSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal summary %d: %w", summary.PoolID, err)
	}
	if err := sc.rdb.Set(ctx, summaryKey(summary.PoolID), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set summary %d: %w", summary.PoolID, err)
	}
	return nil
}

func (sc *SummaryCache) Invalidate(ctx context.Context, poolID uint64) error {
	if err := sc.rdb.Del(ctx, summaryKey(poolID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate summary %d: %w", poolID, err)
	}
	return nil
}
