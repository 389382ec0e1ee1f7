package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

const defaultBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage fetches TIME_SERIES_DAILY from Alpha Vantage.
// The free tier allows 5 calls per minute; callers pace requests.
type AlphaVantage struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New creates an Alpha Vantage collector with the given API key.
func New(apiKey string) *AlphaVantage {
	return &AlphaVantage{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}
}

func (a *AlphaVantage) Name() string {
	return "alphavantage"
}

// Init requires an API key.
func (a *AlphaVantage) Init(cfg collector.Config) error {
	if cfg.APIKey != "" {
		a.apiKey = cfg.APIKey
	}
	if a.apiKey == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("alphavantage api key"))
	}
	if cfg.BaseURL != "" {
		a.baseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		a.client.Timeout = cfg.Timeout
	}
	return nil
}

// FetchDaily downloads the full daily series and keeps bars within [start, end].
func (a *AlphaVantage) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	symbol = core.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("symbol cannot be empty"))
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "full")
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching %s: %w", symbol, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var body dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}
	if msg := body.apiError(); msg != "" {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("API error: %s", msg))
	}

	bars := make([]core.Bar, 0, len(body.TimeSeries))
	for date, values := range body.TimeSeries {
		bar, err := values.toBar(symbol, date)
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, err)
		}
		bars = append(bars, bar)
	}
	return collector.Normalize(bars, start, end), nil
}

type dailyResponse struct {
	ErrorMessage string                `json:"Error Message"`
	Note         string                `json:"Note"`
	Information  string                `json:"Information"`
	TimeSeries   map[string]dailyEntry `json:"Time Series (Daily)"`
}

// apiError returns the provider message of an error or throttling reply.
func (r dailyResponse) apiError() string {
	switch {
	case r.ErrorMessage != "":
		return r.ErrorMessage
	case r.TimeSeries == nil && r.Note != "":
		return r.Note
	case r.TimeSeries == nil && r.Information != "":
		return r.Information
	}
	return ""
}

type dailyEntry struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

func (e dailyEntry) toBar(symbol, date string) (core.Bar, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Bar{}, err
	}
	bar := core.Bar{Symbol: symbol, Date: d}
	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&bar.Open, e.Open},
		{&bar.High, e.High},
		{&bar.Low, e.Low},
		{&bar.Close, e.Close},
	} {
		if *f.dst, err = decimal.NewFromString(strings.TrimSpace(f.raw)); err != nil {
			return core.Bar{}, fmt.Errorf("%s %s: bad price %q", symbol, date, f.raw)
		}
	}
	if bar.Volume, err = strconv.ParseInt(strings.TrimSpace(e.Volume), 10, 64); err != nil {
		return core.Bar{}, fmt.Errorf("%s %s: bad volume %q", symbol, date, e.Volume)
	}
	return bar, nil
}
