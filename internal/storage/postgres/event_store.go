package postgres

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"diceledger/internal/model"
	"diceledger/internal/storage"
)

const eventSelectCols = `seq, event, pool_id, chain_id, contract_address, tx_hash, block_number, recorded_at,
	start_time, end_time, duration_seconds, base_amount_wei::text,
	user_address, amount_wei::text, target_score, bet_index,
	result, total_amount_wei::text, winner_addresses, payout_per_winner_wei::text, winner_bet_indices`

// InsertEvent appends one event row and assigns ev.Seq from the table sequence.
func (s *Store) InsertEvent(ctx context.Context, ev *model.Event) error {
	if ev == nil || !ev.Kind.Valid() {
		return fmt.Errorf("insert event: %w", model.Invalid("event", "unknown kind"))
	}
	if ev.PoolID > math.MaxInt64 {
		return fmt.Errorf("insert event: %w", model.Invalid("poolId", "exceeds storage range"))
	}

	var (
		startTime, endTime, duration, betIndex *int64
		baseAmount, amount, totalAmount, payout *string
		user                                    *string
		targetScore, result                     *int
		winners                                 []string
		winnerIndices                           []int64
	)
	switch {
	case ev.PoolCreated != nil:
		startTime = &ev.StartTime
		endTime = &ev.EndTime
		duration = &ev.DurationSeconds
		baseAmount = weiText(ev.BaseAmountWei)
	case ev.BetPlaced != nil:
		user = &ev.User
		amount = weiText(ev.AmountWei)
		targetScore = &ev.TargetScore
		betIndex = &ev.BetIndex
	case ev.PoolResolved != nil:
		result = &ev.Result
		totalAmount = weiText(ev.TotalAmountWei)
		payout = weiText(ev.PayoutPerWinnerWei)
		winners = nonNilStrings(ev.WinnerAddresses)
		winnerIndices = nonNilInt64s(ev.WinnerBetIndices)
	}

	var blockNumber *int64
	if ev.BlockNumber != nil {
		bn := int64(*ev.BlockNumber)
		blockNumber = &bn
	}

	const query = `
		INSERT INTO pool_events (
			event, pool_id, chain_id, contract_address, tx_hash, block_number, recorded_at,
			start_time, end_time, duration_seconds, base_amount_wei,
			user_address, amount_wei, target_score, bet_index,
			result, total_amount_wei, winner_addresses, payout_per_winner_wei, winner_bet_indices
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11::text::numeric,
			$12, $13::text::numeric, $14, $15,
			$16, $17::text::numeric, $18, $19::text::numeric, $20
		)
		RETURNING seq`

	var seq int64
	err := s.pool.QueryRow(ctx, query,
		string(ev.Kind),
		int64(ev.PoolID),
		int64(ev.ChainID),
		ev.ContractAddress,
		nullString(ev.TxHash),
		blockNumber,
		ev.RecordedAt.UTC(),
		startTime, endTime, duration, baseAmount,
		user, amount, targetScore, betIndex,
		result, totalAmount, winners, payout, winnerIndices,
	).Scan(&seq)
	if err != nil {
		return translate("insert event", err)
	}
	ev.Seq = seq
	return nil
}

// FindEvents runs a filtered, ordered, limited select over pool_events.
func (s *Store) FindEvents(ctx context.Context, q storage.EventQuery) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if q.PoolID != nil {
		add("pool_id = $%d", int64(*q.PoolID))
	}
	if q.Kind != "" {
		add("event = $%d", string(q.Kind))
	}
	if q.User != "" {
		add("user_address = $%d", q.User)
	}
	if q.AfterSeq > 0 {
		add("seq > $%d", q.AfterSeq)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(eventSelectCols)
	sb.WriteString(" FROM pool_events")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderClause(q.Order))
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, translate("find events", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, translate("scan events", err)
	}
	return events, nil
}

func orderClause(order storage.EventOrder) string {
	switch order {
	case storage.OrderRecorded:
		return "recorded_at ASC, seq ASC"
	case storage.OrderBetIndex:
		return "bet_index ASC NULLS LAST, seq ASC"
	case storage.OrderPoolIDDesc:
		return "pool_id DESC, seq ASC"
	case storage.OrderPoolIDBetIndex:
		return "pool_id ASC, bet_index ASC NULLS LAST, seq ASC"
	default:
		return "seq ASC"
	}
}

func scanEventRows(rows pgx.Rows) ([]model.Event, error) {
	events := make([]model.Event, 0)
	for rows.Next() {
		var (
			seq, poolID, chainID                   int64
			kind, contract                         string
			txHash, user                           *string
			blockNumber                            *int64
			recordedAt                             time.Time
			startTime, endTime, duration, betIndex *int64
			baseAmount, amount, totalAmount, payout *string
			targetScore, result                    *int
			winners                                []string
			winnerIndices                          []int64
		)
		if err := rows.Scan(
			&seq, &kind, &poolID, &chainID, &contract, &txHash, &blockNumber, &recordedAt,
			&startTime, &endTime, &duration, &baseAmount,
			&user, &amount, &targetScore, &betIndex,
			&result, &totalAmount, &winners, &payout, &winnerIndices,
		); err != nil {
			return nil, err
		}

		ev := model.Event{
			Seq:             seq,
			Kind:            model.EventKind(kind),
			PoolID:          uint64(poolID),
			ChainID:         uint64(chainID),
			ContractAddress: contract,
			RecordedAt:      recordedAt.UTC(),
		}
		if txHash != nil {
			ev.TxHash = *txHash
		}
		if blockNumber != nil {
			bn := uint64(*blockNumber)
			ev.BlockNumber = &bn
		}

		var err error
		switch ev.Kind {
		case model.KindPoolCreated:
			pc := &model.PoolCreated{
				StartTime:       deref(startTime),
				EndTime:         deref(endTime),
				DurationSeconds: deref(duration),
			}
			if pc.BaseAmountWei, err = parseWeiColumn("base_amount_wei", baseAmount); err != nil {
				return nil, err
			}
			ev.PoolCreated = pc
		case model.KindBetPlaced:
			bp := &model.BetPlaced{BetIndex: deref(betIndex)}
			if user != nil {
				bp.User = *user
			}
			if targetScore != nil {
				bp.TargetScore = *targetScore
			}
			if bp.AmountWei, err = parseWeiColumn("amount_wei", amount); err != nil {
				return nil, err
			}
			ev.BetPlaced = bp
		case model.KindPoolResolved:
			pr := &model.PoolResolved{
				WinnerAddresses:  nonNilStrings(winners),
				WinnerBetIndices: nonNilInt64s(winnerIndices),
			}
			if result != nil {
				pr.Result = *result
			}
			if pr.TotalAmountWei, err = parseWeiColumn("total_amount_wei", totalAmount); err != nil {
				return nil, err
			}
			if pr.PayoutPerWinnerWei, err = parseWeiColumn("payout_per_winner_wei", payout); err != nil {
				return nil, err
			}
			ev.PoolResolved = pr
		default:
			return nil, fmt.Errorf("unknown event kind %q at seq %d", kind, seq)
		}

		events = append(events, ev)
	}
	return events, rows.Err()
}

func parseWeiColumn(column string, value *string) (model.Wei, error) {
	if value == nil {
		return model.Wei{}, nil
	}
	w, err := model.ParseWei(*value)
	if err != nil {
		return model.Wei{}, fmt.Errorf("column %s: %w", column, err)
	}
	return w, nil
}

func weiText(w model.Wei) *string {
	s := w.String()
	return &s
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilInt64s(in []int64) []int64 {
	if in == nil {
		return []int64{}
	}
	return in
}
