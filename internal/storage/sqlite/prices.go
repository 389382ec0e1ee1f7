// internal/storage/sqlite/prices.go
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/stockanalyzer/internal/core"
)

// UpsertBars writes all bars in one transaction, replacing rows that share
// symbol and date.
func (s *Store) UpsertBars(ctx context.Context, bars []core.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_prices
		(symbol, date, open_price, high_price, low_price, close_price, volume, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open_price = excluded.open_price,
			high_price = excluded.high_price,
			low_price = excluded.low_price,
			close_price = excluded.close_price,
			volume = excluded.volume,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()

	now := s.now().UTC().Format(timestampLayout)
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, formatDate(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume, now, now,
		); err != nil {
			return 0, core.WrapError(core.ErrStorageFailed,
				fmt.Errorf("upserting %s %s: %w", b.Symbol, formatDate(b.Date), err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, err)
	}
	return len(bars), nil
}

// ListBars returns bars of symbol within [start, end] ordered by date.
func (s *Store) ListBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	query := `
		SELECT symbol, date, open_price, high_price, low_price, close_price, volume
		FROM stock_prices
		WHERE symbol = ?`
	args := []any{symbol}
	if !start.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatDate(start))
	}
	if !end.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatDate(end))
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var bars []core.Bar
	for rows.Next() {
		var (
			b    core.Bar
			date string
		)
		if err := rows.Scan(&b.Symbol, &date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if b.Date, err = parseDate(date); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("bad date %q: %w", date, err))
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return bars, nil
}
