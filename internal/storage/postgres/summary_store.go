package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

const summarySelectCols = `pool_id, start_time, end_time, duration_seconds, base_amount_wei::text,
	total_amount_wei::text, total_bets, ended, result, chain_id, contract_address, created_at, updated_at`

// InsertSummary creates a summary row; an existing row for the pool is a conflict.
func (s *Store) InsertSummary(ctx context.Context, summary model.PoolSummary) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO pool_summaries (
			pool_id, start_time, end_time, duration_seconds, base_amount_wei,
			total_amount_wei, total_bets, ended, result, chain_id, contract_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (pool_id) DO NOTHING
	`, summaryArgs(summary)...)
	if err != nil {
		return translate("insert summary", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool %d summary: %w", summary.PoolID, model.ErrConflict)
	}
	return nil
}

// PutSummary inserts or replaces a summary row.
func (s *Store) PutSummary(ctx context.Context, summary model.PoolSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_summaries (
			pool_id, start_time, end_time, duration_seconds, base_amount_wei,
			total_amount_wei, total_bets, ended, result, chain_id, contract_address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (pool_id) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			duration_seconds = EXCLUDED.duration_seconds,
			base_amount_wei = EXCLUDED.base_amount_wei,
			total_amount_wei = EXCLUDED.total_amount_wei,
			total_bets = EXCLUDED.total_bets,
			ended = EXCLUDED.ended,
			result = EXCLUDED.result,
			chain_id = EXCLUDED.chain_id,
			contract_address = EXCLUDED.contract_address,
			created_at = LEAST(pool_summaries.created_at, EXCLUDED.created_at),
			updated_at = EXCLUDED.updated_at
	`, summaryArgs(summary)...)
	return translate("put summary", err)
}

func (s *Store) GetSummary(ctx context.Context, poolID uint64) (model.PoolSummary, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+summarySelectCols+` FROM pool_summaries WHERE pool_id = $1`, int64(poolID))
	summary, err := scanSummary(row)
	if err != nil {
		return model.PoolSummary{}, translate(fmt.Sprintf("pool %d summary", poolID), err)
	}
	return summary, nil
}

// IncrementSummary adds to the running totals in a single UPDATE so concurrent
// bets never lose updates.
func (s *Store) IncrementSummary(ctx context.Context, poolID uint64, amount model.Wei, bets int64, at time.Time) (storage.UpdateResult, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pool_summaries
		SET total_amount_wei = total_amount_wei + $2::text::numeric,
			total_bets = total_bets + $3,
			updated_at = $4
		WHERE pool_id = $1 AND NOT ended
	`, int64(poolID), amount.String(), bets, at.UTC())
	if err != nil {
		return storage.UpdateNotFound, translate("increment summary", err)
	}
	if tag.RowsAffected() == 1 {
		return storage.UpdateApplied, nil
	}
	return s.classifyMiss(ctx, poolID)
}

// ResolveSummary closes an open summary. The resolved total overwrites the running sum.
func (s *Store) ResolveSummary(ctx context.Context, poolID uint64, res storage.Resolution, at time.Time) (storage.UpdateResult, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pool_summaries
		SET ended = TRUE,
			result = $2,
			total_amount_wei = $3::text::numeric,
			updated_at = $4
		WHERE pool_id = $1 AND NOT ended
	`, int64(poolID), res.Result, res.TotalAmountWei.String(), at.UTC())
	if err != nil {
		return storage.UpdateNotFound, translate("resolve summary", err)
	}
	if tag.RowsAffected() == 1 {
		return storage.UpdateApplied, nil
	}
	return s.classifyMiss(ctx, poolID)
}

// classifyMiss tells apart a missing summary from an ended one after a guarded update matched nothing.
func (s *Store) classifyMiss(ctx context.Context, poolID uint64) (storage.UpdateResult, error) {
	var ended bool
	err := s.pool.QueryRow(ctx, `SELECT ended FROM pool_summaries WHERE pool_id = $1`, int64(poolID)).Scan(&ended)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.UpdateNotFound, nil
	}
	if err != nil {
		return storage.UpdateNotFound, translate("classify summary", err)
	}
	if ended {
		return storage.UpdateEnded, nil
	}
	return storage.UpdateNotFound, fmt.Errorf("pool %d summary matched no rows while open", poolID)
}

func summaryArgs(summary model.PoolSummary) []any {
	var result *int
	if summary.Result != nil {
		r := *summary.Result
		result = &r
	}
	return []any{
		int64(summary.PoolID),
		summary.StartTime,
		summary.EndTime,
		summary.DurationSeconds,
		summary.BaseAmountWei.String(),
		summary.TotalAmountWei.String(),
		summary.TotalBets,
		summary.Ended,
		result,
		int64(summary.ChainID),
		summary.ContractAddress,
		summary.CreatedAt.UTC(),
		summary.UpdatedAt.UTC(),
	}
}

func scanSummary(row pgx.Row) (model.PoolSummary, error) {
	var (
		summary           model.PoolSummary
		poolID, chainID   int64
		baseAmount, total string
		result            *int
	)
	if err := row.Scan(
		&poolID, &summary.StartTime, &summary.EndTime, &summary.DurationSeconds, &baseAmount,
		&total, &summary.TotalBets, &summary.Ended, &result, &chainID, &summary.ContractAddress,
		&summary.CreatedAt, &summary.UpdatedAt,
	); err != nil {
		return model.PoolSummary{}, err
	}

	var err error
	if summary.BaseAmountWei, err = model.ParseWei(baseAmount); err != nil {
		return model.PoolSummary{}, fmt.Errorf("column base_amount_wei: %w", err)
	}
	if summary.TotalAmountWei, err = model.ParseWei(total); err != nil {
		return model.PoolSummary{}, fmt.Errorf("column total_amount_wei: %w", err)
	}
	summary.PoolID = uint64(poolID)
	summary.ChainID = uint64(chainID)
	summary.Result = result
	summary.CreatedAt = summary.CreatedAt.UTC()
	summary.UpdatedAt = summary.UpdatedAt.UTC()
	return summary, nil
}
