// internal/storage/interface.go
package storage

import (
	"context"
	"time"

	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
)

// PriceStore defines the interface for daily price history persistence.
type PriceStore interface {
	// UpsertBars inserts bars or replaces existing ones with the same symbol and date.
	UpsertBars(ctx context.Context, bars []core.Bar) (int, error)

	// ListBars returns a symbol's bars in ascending date order. A zero start or
	// end leaves that side of the range open.
	ListBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error)
}

// ResultStore defines the interface for backtest result persistence.
type ResultStore interface {
	// SaveResult persists a result and its trades atomically and assigns an ID.
	SaveResult(ctx context.Context, result *backtest.Result) (*Record, error)

	// GetResult retrieves a stored result by its ID.
	GetResult(ctx context.Context, id string) (*Record, error)
}

// Record is a persisted backtest result.
type Record struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Result    backtest.Result `json:"result"`
}

// InRange reports whether date falls inside [start, end], where zero bounds are open.
func InRange(date, start, end time.Time) bool {
	if !start.IsZero() && date.Before(start) {
		return false
	}
	if !end.IsZero() && date.After(end) {
		return false
	}
	return true
}
