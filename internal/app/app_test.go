package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/history"
	"github.com/newthinker/stockanalyzer/internal/notifier"
	"github.com/newthinker/stockanalyzer/internal/storage/archive"
	"github.com/newthinker/stockanalyzer/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordedBacktest struct {
	status string
	trades int
}

type spyRecorder struct {
	calls []recordedBacktest
}

func (s *spyRecorder) RecordBacktest(status string, duration float64, trades int) {
	s.calls = append(s.calls, recordedBacktest{status, trades})
}

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decs(ss ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(ss))
	for i, s := range ss {
		out[i] = dec(s)
	}
	return out
}

type spyNotifier struct {
	events []notifier.Event
	err    error
}

func (s *spyNotifier) Name() string                   { return "spy" }
func (s *spyNotifier) Init(cfg notifier.Config) error { return nil }
func (s *spyNotifier) Send(ctx context.Context, e notifier.Event) error {
	s.events = append(s.events, e)
	return s.err
}

type fixture struct {
	app      *App
	store    *memory.Store
	recorder *spyRecorder
	archive  *archive.LocalFS
}

func newFixture(t *testing.T, logger *zap.Logger) *fixture {
	t.Helper()
	store := memory.New(10)
	hist := history.New(store, collector.NewRegistry(), "")

	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	rec := &spyRecorder{}
	f := &fixture{
		app:      New(hist, store, archive.NewArchiver(fs), rec, logger),
		store:    store,
		recorder: rec,
		archive:  fs,
	}

	closes := []string{"100", "101", "110", "111"}
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Symbol: "AAPL", Date: jan(2 + i), Open: dec(c), High: dec(c), Low: dec(c), Close: dec(c), Volume: 100}
	}
	_, err = store.UpsertBars(context.Background(), bars)
	require.NoError(t, err)
	return f
}

func TestApp_Backtest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	report, err := f.app.Backtest(ctx, BacktestRequest{
		Symbol:      "aapl",
		Start:       jan(2),
		End:         jan(4),
		Predictions: decs("103", "0", "0"),
		Params:      backtest.DefaultParams(dec("10000")),
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.ID)

	result := report.Result
	assert.Equal(t, "AAPL", result.Symbol)
	assert.Equal(t, 3, result.TotalDays)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, backtest.ExitTakeProfit, result.Trades[0].ExitReason)
	assert.Equal(t, "10500", result.FinalCapital.String())

	stored, err := f.app.GetBacktest(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, result.NumTrades, stored.Result.NumTrades)

	exists, err := f.archive.Exists(ctx, report.ArchivePath)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "backtests/AAPL/2024/"+report.ID+".json", report.ArchivePath)

	assert.Equal(t, []recordedBacktest{{StatusSuccess, 1}}, f.recorder.calls)
}

func TestApp_BacktestPredictionMismatch(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.app.Backtest(context.Background(), BacktestRequest{
		Symbol:      "AAPL",
		Predictions: decs("1", "2"),
		Params:      backtest.DefaultParams(dec("10000")),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrPredictionMismatch), "got %v", err)
	assert.Contains(t, err.Error(), "number of predictions (2) does not match historical data length (4)")
	assert.Contains(t, err.Error(), "2024-01-02 to 2024-01-05")
}

func TestApp_BacktestNoData(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.app.Backtest(context.Background(), BacktestRequest{
		Symbol:      "MSFT",
		Predictions: decs("1"),
		Params:      backtest.DefaultParams(dec("10000")),
	})
	assert.True(t, errors.Is(err, core.ErrNoData), "got %v", err)
}

func TestApp_BacktestRequiresPredictions(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.app.Backtest(context.Background(), BacktestRequest{
		Symbol: "AAPL",
		Params: backtest.DefaultParams(dec("10000")),
	})
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
}

func TestApp_SimulateWithoutSave(t *testing.T) {
	f := newFixture(t, nil)

	obs := []backtest.Observation{
		{Date: jan(2), Close: dec("10"), Predicted: dec("10")},
		{Date: jan(3), Close: dec("10"), Predicted: dec("10")},
	}
	report, err := f.app.Simulate(context.Background(), "aapl", obs, backtest.DefaultParams(dec("1000")), false)
	require.NoError(t, err)
	assert.Empty(t, report.ID)
	assert.Empty(t, report.ArchivePath)
	assert.Zero(t, report.Result.NumTrades)
}

func TestApp_SimulateRejectedRecordsError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.app.Simulate(context.Background(), "AAPL", nil, backtest.DefaultParams(dec("1000")), true)
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
	assert.Equal(t, []recordedBacktest{{StatusError, 0}}, f.recorder.calls)
}

func TestApp_LogsTradeTrailAtDebug(t *testing.T) {
	obsCore, logs := observer.New(zap.DebugLevel)
	f := newFixture(t, zap.New(obsCore))

	_, err := f.app.Backtest(context.Background(), BacktestRequest{
		Symbol:      "AAPL",
		Predictions: decs("103", "0", "0", "0"),
		Params:      backtest.DefaultParams(dec("10000")),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("backtest complete").Len())
	trades := logs.FilterMessage("trade").All()
	require.Len(t, trades, 1)
	assert.Equal(t, "take_profit", trades[0].ContextMap()["exit_reason"])
}

func TestApp_GetBacktestNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.app.GetBacktest(context.Background(), "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}

func TestApp_NotifiesSavedResults(t *testing.T) {
	obsCore, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, zap.New(obsCore))

	spy := &spyNotifier{err: errors.New("endpoint down")}
	registry := notifier.NewRegistry()
	require.NoError(t, registry.Register(spy))
	f.app.SetNotifier(registry)

	report, err := f.app.Backtest(context.Background(), BacktestRequest{
		Symbol:      "AAPL",
		Predictions: decs("103", "0", "0", "0"),
		Params:      backtest.DefaultParams(dec("10000")),
	})
	require.NoError(t, err, "notification failures must not fail the backtest")

	require.Len(t, spy.events, 1)
	event := spy.events[0]
	assert.Equal(t, notifier.EventBacktestCompleted, event.Type)
	data, ok := event.Data.(Completed)
	require.True(t, ok)
	assert.Equal(t, report.ID, data.BacktestID)
	assert.Equal(t, "AAPL", data.Symbol)
	assert.Equal(t, 1, data.NumTrades)

	assert.Equal(t, 1, logs.FilterMessage("notification failed").Len())

	// Unsaved runs are not announced
	_, err = f.app.Simulate(context.Background(), "AAPL", []backtest.Observation{
		{Date: jan(2), Close: dec("10"), Predicted: dec("10")},
	}, backtest.DefaultParams(dec("1000")), false)
	require.NoError(t, err)
	assert.Len(t, spy.events, 1)
}
