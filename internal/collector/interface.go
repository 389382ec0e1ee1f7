package collector

import (
	"context"
	"time"

	"github.com/newthinker/stockanalyzer/internal/core"
)

// Config holds collector configuration
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string        // Empty selects the provider default
	Timeout   time.Duration // Zero selects the provider default
}

// Collector fetches daily price history from one market data provider.
type Collector interface {
	// Name identifies the provider, e.g. "alphavantage".
	Name() string

	// Init applies configuration. It fails when a required credential is missing.
	Init(cfg Config) error

	// FetchDaily returns the symbol's daily bars in [start, end] in ascending
	// date order. Zero bounds leave the range open on that side.
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error)
}
