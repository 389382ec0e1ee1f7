// internal/storage/sqlite/results.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/storage"
	"github.com/shopspring/decimal"
)

// SaveResult writes the result row and all of its trades in one
// transaction, so a failure never leaves a partial trade history.
func (s *Store) SaveResult(ctx context.Context, result *backtest.Result) (*storage.Record, error) {
	rec := &storage.Record{
		ID:        uuid.New().String(),
		CreatedAt: s.now().UTC(),
		Result:    *result,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	r := result
	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_results
		(id, symbol, start_date, end_date, total_days, initial_capital, final_capital, total_return,
		 num_trades, max_drawdown, cash_reserve, position_size, prediction_threshold, stop_loss,
		 take_profit, winning_trades, losing_trades, win_rate, sharpe_ratio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, r.Symbol, formatDate(r.StartDate), formatDate(r.EndDate), r.TotalDays,
		r.InitialCapital, r.FinalCapital, r.TotalReturnPct, r.NumTrades, r.MaxDrawdownPct,
		r.Params.CashReserve, r.Params.PositionSize, r.Params.PredictionThreshold,
		r.Params.StopLoss, r.Params.TakeProfit,
		r.Stats.WinningTrades, r.Stats.LosingTrades, r.Stats.WinRate, r.Stats.SharpeRatio,
		rec.CreatedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("inserting result: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades
		(backtest_id, seq, trade_id, entry_date, entry_price, shares, exit_date, exit_price, profit_loss, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()

	for i, t := range r.Trades {
		var exitDate, exitReason sql.NullString
		if t.ExitDate != nil {
			exitDate = sql.NullString{String: formatDate(*t.ExitDate), Valid: true}
		}
		if t.ExitReason != backtest.ExitNone {
			exitReason = sql.NullString{String: string(t.ExitReason), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, i, t.ID, formatDate(t.EntryDate), t.EntryPrice, t.Shares,
			exitDate, nullDecimal(t.ExitPrice), nullDecimal(t.ProfitLossPct), exitReason,
		); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("inserting trade %s: %w", t.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return rec, nil
}

// GetResult loads a stored result with its trades in entry order.
func (s *Store) GetResult(ctx context.Context, id string) (*storage.Record, error) {
	var rec storage.Record
	var start, end, created string
	r := &rec.Result
	err := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, start_date, end_date, total_days, initial_capital, final_capital, total_return,
		       num_trades, max_drawdown, cash_reserve, position_size, prediction_threshold, stop_loss,
		       take_profit, winning_trades, losing_trades, win_rate, sharpe_ratio, created_at
		FROM backtest_results WHERE id = ?`, id,
	).Scan(
		&rec.ID, &r.Symbol, &start, &end, &r.TotalDays, &r.InitialCapital, &r.FinalCapital,
		&r.TotalReturnPct, &r.NumTrades, &r.MaxDrawdownPct, &r.Params.CashReserve,
		&r.Params.PositionSize, &r.Params.PredictionThreshold, &r.Params.StopLoss,
		&r.Params.TakeProfit, &r.Stats.WinningTrades, &r.Stats.LosingTrades, &r.Stats.WinRate,
		&r.Stats.SharpeRatio, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("backtest %s", id))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	r.Params.InitialCapital = r.InitialCapital
	if r.StartDate, err = parseDate(start); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if r.EndDate, err = parseDate(end); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if rec.CreatedAt, err = time.Parse(timestampLayout, created); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	if r.Trades, err = s.listTrades(ctx, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) listTrades(ctx context.Context, backtestID string) ([]backtest.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, entry_date, entry_price, shares, exit_date, exit_price, profit_loss, exit_reason
		FROM backtest_trades WHERE backtest_id = ? ORDER BY seq ASC`, backtestID)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	trades := []backtest.Trade{}
	for rows.Next() {
		var (
			t                    backtest.Trade
			entry                string
			exitDate, exitReason sql.NullString
			exitPrice, pl        decimal.NullDecimal
		)
		if err := rows.Scan(&t.ID, &entry, &t.EntryPrice, &t.Shares, &exitDate, &exitPrice, &pl, &exitReason); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if t.EntryDate, err = parseDate(entry); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if exitDate.Valid {
			d, err := parseDate(exitDate.String)
			if err != nil {
				return nil, core.WrapError(core.ErrStorageFailed, err)
			}
			t.ExitDate = &d
		}
		if exitPrice.Valid {
			t.ExitPrice = &exitPrice.Decimal
		}
		if pl.Valid {
			t.ProfitLossPct = &pl.Decimal
		}
		t.ExitReason = backtest.ExitReason(exitReason.String)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return trades, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
