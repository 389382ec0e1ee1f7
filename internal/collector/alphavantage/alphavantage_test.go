package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphaVantage_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*AlphaVantage)(nil)
}

func TestAlphaVantage_InitRequiresAPIKey(t *testing.T) {
	err := New("").Init(collector.Config{})
	assert.True(t, errors.Is(err, core.ErrConfigMissing), "got %v", err)

	assert.NoError(t, New("").Init(collector.Config{APIKey: "demo"}))
}

const dailyBody = `{
	"Meta Data": {"2. Symbol": "IBM"},
	"Time Series (Daily)": {
		"2024-01-04": {"1. open": "162.8300", "2. high": "163.4000", "3. low": "161.5100", "4. close": "161.5100", "5. volume": "4027154"},
		"2024-01-03": {"1. open": "160.0000", "2. high": "161.7300", "3. low": "160.0800", "4. close": "160.1000", "5. volume": "4086133"},
		"2024-01-02": {"1. open": "161.0000", "2. high": "163.2900", "3. low": "160.5200", "4. close": "162.1100", "5. volume": "3825045"}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *AlphaVantage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := New("test-key")
	require.NoError(t, a.Init(collector.Config{BaseURL: srv.URL}))
	return a
}

func TestAlphaVantage_FetchDaily(t *testing.T) {
	var query map[string]string
	a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query = map[string]string{
			"function":   q.Get("function"),
			"symbol":     q.Get("symbol"),
			"outputsize": q.Get("outputsize"),
			"apikey":     q.Get("apikey"),
		}
		w.Write([]byte(dailyBody))
	})

	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := a.FetchDaily(context.Background(), "ibm", start, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     "IBM",
		"outputsize": "full",
		"apikey":     "test-key",
	}, query)

	require.Len(t, bars, 2)
	assert.Equal(t, start, bars[0].Date)
	assert.Equal(t, "160.1", bars[0].Close.String())
	assert.Equal(t, int64(4027154), bars[1].Volume)
	assert.Equal(t, "IBM", bars[1].Symbol)
}

func TestAlphaVantage_FetchDailyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error message", http.StatusOK, `{"Error Message": "Invalid API call."}`},
		{"rate limited", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`},
		{"bad status", http.StatusInternalServerError, `{}`},
		{"bad json", http.StatusOK, `not json`},
		{"bad price", http.StatusOK, `{"Time Series (Daily)": {"2024-01-02": {"1. open": "x", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := a.FetchDaily(context.Background(), "IBM", time.Time{}, time.Time{})
			assert.True(t, errors.Is(err, core.ErrCollectorFailed), "got %v", err)
		})
	}
}
