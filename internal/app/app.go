package app

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/history"
	"github.com/newthinker/stockanalyzer/internal/notifier"
	"github.com/newthinker/stockanalyzer/internal/storage"
	"github.com/newthinker/stockanalyzer/internal/storage/archive"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Backtest outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder receives backtest outcomes.
type Recorder interface {
	RecordBacktest(status string, duration float64, trades int)
}

type nopRecorder struct{}

func (nopRecorder) RecordBacktest(string, float64, int) {}

// BacktestRequest asks for a backtest over stored history. Zero dates leave
// the range open; Predictions must have one entry per stored bar in range.
type BacktestRequest struct {
	Symbol      string
	Start       time.Time
	End         time.Time
	Predictions []decimal.Decimal
	Params      backtest.Params
}

// Report is a finished backtest. ID is empty when the result was not saved.
type Report struct {
	ID          string
	CreatedAt   time.Time
	ArchivePath string
	Result      *backtest.Result
}

// App runs backtests against stored history and keeps their results.
type App struct {
	history  *history.Service
	results  storage.ResultStore
	archiver *archive.Archiver
	notifier *notifier.Registry
	recorder Recorder
	logger   *zap.Logger
}

// Completed is the data of a backtest.completed event.
type Completed struct {
	BacktestID     string          `json:"backtest_id"`
	Symbol         string          `json:"symbol"`
	NumTrades      int             `json:"num_trades"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
	FinalCapital   decimal.Decimal `json:"final_capital"`
}

// New creates an App. archiver may be nil to skip archiving.
func New(hist *history.Service, results storage.ResultStore, archiver *archive.Archiver, recorder Recorder, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &App{
		history:  hist,
		results:  results,
		archiver: archiver,
		recorder: recorder,
		logger:   logger,
	}
}

// SetNotifier sets the registry told about saved results. nil disables events.
func (a *App) SetNotifier(r *notifier.Registry) {
	a.notifier = r
}

// History returns the price history service.
func (a *App) History() *history.Service {
	return a.history
}

// Backtest loads the stored bars of the requested range, pairs them with the
// predictions, runs the engine and persists the result.
func (a *App) Backtest(ctx context.Context, req BacktestRequest) (*Report, error) {
	symbol := core.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("symbol is required"))
	}
	if len(req.Predictions) == 0 {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("predictions are required"))
	}

	bars, err := a.history.Bars(ctx, symbol, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no historical data found for %s in the specified date range", symbol))
	}

	obs, err := backtest.Join(bars, req.Predictions)
	if err != nil {
		return nil, err
	}
	return a.Simulate(ctx, symbol, obs, req.Params, true)
}

// Simulate runs the engine over obs and, when save is set, persists and
// archives the result.
func (a *App) Simulate(ctx context.Context, symbol string, obs []backtest.Observation, params backtest.Params, save bool) (*Report, error) {
	symbol = core.NormalizeSymbol(symbol)
	log := a.logger.With(zap.String("symbol", symbol))
	start := time.Now()

	result, err := backtest.Run(obs, symbol, params)
	if err != nil {
		a.recorder.RecordBacktest(StatusError, time.Since(start).Seconds(), 0)
		log.Warn("backtest rejected", zap.Error(err))
		return nil, err
	}
	a.recorder.RecordBacktest(StatusSuccess, time.Since(start).Seconds(), result.NumTrades)

	log.Info("backtest complete",
		zap.Int("days", result.TotalDays),
		zap.Int("trades", result.NumTrades),
		zap.String("total_return_pct", result.TotalReturnPct.String()),
		zap.String("max_drawdown_pct", result.MaxDrawdownPct.String()),
	)
	a.logTrades(log, result)

	report := &Report{Result: result}
	if !save {
		return report, nil
	}

	rec, err := a.results.SaveResult(ctx, result)
	if err != nil {
		return nil, err
	}
	report.ID = rec.ID
	report.CreatedAt = rec.CreatedAt

	if a.archiver != nil {
		// The stored result stays authoritative when archiving fails.
		if p, err := a.archiver.Put(ctx, rec); err != nil {
			log.Warn("archiving result failed", zap.String("backtest_id", rec.ID), zap.Error(err))
		} else {
			report.ArchivePath = p
		}
	}

	a.notify(ctx, log, rec)
	return report, nil
}

// notify publishes a backtest.completed event. Delivery failures are logged only.
func (a *App) notify(ctx context.Context, log *zap.Logger, rec *storage.Record) {
	event := notifier.Event{
		Type: notifier.EventBacktestCompleted,
		Time: rec.CreatedAt,
		Data: Completed{
			BacktestID:     rec.ID,
			Symbol:         rec.Result.Symbol,
			NumTrades:      rec.Result.NumTrades,
			TotalReturnPct: rec.Result.TotalReturnPct,
			MaxDrawdownPct: rec.Result.MaxDrawdownPct,
			FinalCapital:   rec.Result.FinalCapital,
		},
	}
	for name, err := range a.notifier.NotifyAll(ctx, event) {
		log.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

// logTrades emits the trade trail at debug level.
func (a *App) logTrades(log *zap.Logger, result *backtest.Result) {
	if !log.Core().Enabled(zap.DebugLevel) {
		return
	}
	for _, t := range result.Trades {
		fields := []zap.Field{
			zap.String("trade_id", t.ID),
			zap.String("entry_date", t.EntryDate.Format(core.DateLayout)),
			zap.String("entry_price", t.EntryPrice.String()),
			zap.Int64("shares", t.Shares),
		}
		if t.IsClosed() {
			fields = append(fields,
				zap.String("exit_date", t.ExitDate.Format(core.DateLayout)),
				zap.String("exit_price", t.ExitPrice.String()),
				zap.String("profit_loss_pct", t.ProfitLossPct.String()),
				zap.String("exit_reason", string(t.ExitReason)),
			)
		}
		log.Debug("trade", fields...)
	}
}

// GetBacktest returns a stored result by ID.
func (a *App) GetBacktest(ctx context.Context, id string) (*storage.Record, error) {
	return a.results.GetResult(ctx, id)
}
