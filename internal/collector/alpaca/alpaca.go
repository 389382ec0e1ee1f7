package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

// historyStart is where Alpaca's daily history begins.
var historyStart = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Alpaca fetches daily bars from the Alpaca market data API.
type Alpaca struct {
	client barsClient
	feed   marketdata.Feed
}

// New creates an unconfigured collector; Init builds the client.
func New() *Alpaca {
	return &Alpaca{feed: marketdata.IEX}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

// Init requires an API key pair.
func (a *Alpaca) Init(cfg collector.Config) error {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("alpaca api key and secret"))
	}
	a.client = marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return nil
}

// FetchDaily returns daily bars in [start, end]. The client call itself is not
// cancellable, so ctx is only checked before the request.
func (a *Alpaca) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	if a.client == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("alpaca collector not initialized"))
	}
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("symbol cannot be empty"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		Feed:      a.feed,
	}
	if start.IsZero() {
		req.Start = historyStart
	}
	if !end.IsZero() {
		req.End = end.AddDate(0, 0, 1)
	}

	raw, err := a.client.GetBars(symbol, req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching %s bars: %w", symbol, err))
	}

	bars := make([]core.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, core.Bar{
			Symbol: symbol,
			Date:   core.TruncateDay(b.Timestamp),
			Open:   decimal.NewFromFloat(b.Open),
			High:   decimal.NewFromFloat(b.High),
			Low:    decimal.NewFromFloat(b.Low),
			Close:  decimal.NewFromFloat(b.Close),
			Volume: int64(b.Volume),
		})
	}
	return collector.Normalize(bars, start, end), nil
}
