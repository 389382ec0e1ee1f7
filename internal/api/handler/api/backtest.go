// internal/api/handler/api/backtest.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/newthinker/stockanalyzer/internal/api/response"
	"github.com/newthinker/stockanalyzer/internal/app"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

// BacktestRequest is the request body for running a backtest. Omitted
// parameters take the configured defaults.
type BacktestRequest struct {
	StartDate           string            `json:"start_date"`
	EndDate             string            `json:"end_date"`
	Predictions         []decimal.Decimal `json:"predictions"`
	InitialCapital      *decimal.Decimal  `json:"initial_capital"`
	CashReserve         *decimal.Decimal  `json:"cash_reserve"`
	PositionSize        *decimal.Decimal  `json:"position_size"`
	PredictionThreshold *decimal.Decimal  `json:"prediction_threshold"`
	StopLoss            *decimal.Decimal  `json:"stop_loss"`
	TakeProfit          *decimal.Decimal  `json:"take_profit"`
}

// params overlays the request's parameters on defaults.
func (r BacktestRequest) params(defaults backtest.Params) backtest.Params {
	p := defaults
	for _, f := range []struct {
		dst *decimal.Decimal
		src *decimal.Decimal
	}{
		{&p.InitialCapital, r.InitialCapital},
		{&p.CashReserve, r.CashReserve},
		{&p.PositionSize, r.PositionSize},
		{&p.PredictionThreshold, r.PredictionThreshold},
		{&p.StopLoss, r.StopLoss},
		{&p.TakeProfit, r.TakeProfit},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return p
}

// DataPeriod describes the simulated date range.
type DataPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TotalDays int    `json:"total_days"`
}

// TradeView is a trade with calendar dates.
type TradeView struct {
	ID            string           `json:"id"`
	EntryDate     string           `json:"entry_date"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	Shares        int64            `json:"shares"`
	ExitDate      *string          `json:"exit_date"`
	ExitPrice     *decimal.Decimal `json:"exit_price"`
	ProfitLossPct *decimal.Decimal `json:"profit_loss_pct"`
	ExitReason    string           `json:"exit_reason,omitempty"`
}

// BacktestResponse is the body returned for a run or stored backtest.
type BacktestResponse struct {
	BacktestID     string          `json:"backtest_id"`
	Symbol         string          `json:"symbol"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	NumTrades      int             `json:"num_trades"`
	MaxDrawdown    decimal.Decimal `json:"max_drawdown"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalCapital   decimal.Decimal `json:"final_capital"`
	DataPeriod     DataPeriod      `json:"data_period"`
	ParametersUsed backtest.Params `json:"parameters_used"`
	Stats          backtest.Stats  `json:"stats"`
	Trades         []TradeView     `json:"trades"`
	ArchivePath    string          `json:"archive_path,omitempty"`
}

func newBacktestResponse(id string, r *backtest.Result) BacktestResponse {
	trades := make([]TradeView, len(r.Trades))
	for i, t := range r.Trades {
		v := TradeView{
			ID:            t.ID,
			EntryDate:     t.EntryDate.Format(core.DateLayout),
			EntryPrice:    t.EntryPrice,
			Shares:        t.Shares,
			ExitPrice:     t.ExitPrice,
			ProfitLossPct: t.ProfitLossPct,
			ExitReason:    string(t.ExitReason),
		}
		if t.ExitDate != nil {
			d := t.ExitDate.Format(core.DateLayout)
			v.ExitDate = &d
		}
		trades[i] = v
	}

	return BacktestResponse{
		BacktestID:     id,
		Symbol:         r.Symbol,
		TotalReturn:    r.TotalReturnPct,
		NumTrades:      r.NumTrades,
		MaxDrawdown:    r.MaxDrawdownPct,
		InitialCapital: r.InitialCapital,
		FinalCapital:   r.FinalCapital,
		DataPeriod: DataPeriod{
			StartDate: r.StartDate.Format(core.DateLayout),
			EndDate:   r.EndDate.Format(core.DateLayout),
			TotalDays: r.TotalDays,
		},
		ParametersUsed: r.Params,
		Stats:          r.Stats,
		Trades:         trades,
	}
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	app      *app.App
	defaults backtest.Params
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(a *app.App, defaults backtest.Params) *BacktestHandler {
	return &BacktestHandler{app: a, defaults: defaults}
}

// Run executes a backtest for the {symbol} path value and returns the
// persisted result.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, fmt.Errorf("decoding body: %w", err)))
		return
	}

	start, err := core.ParseOptionalDate(req.StartDate)
	if err != nil {
		response.Fail(w, err)
		return
	}
	end, err := core.ParseOptionalDate(req.EndDate)
	if err != nil {
		response.Fail(w, err)
		return
	}

	report, err := h.app.Backtest(r.Context(), app.BacktestRequest{
		Symbol:      r.PathValue("symbol"),
		Start:       start,
		End:         end,
		Predictions: req.Predictions,
		Params:      req.params(h.defaults),
	})
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := newBacktestResponse(report.ID, report.Result)
	resp.ArchivePath = report.ArchivePath
	response.JSON(w, http.StatusOK, resp)
}

// Get returns a stored backtest by its {id} path value.
func (h *BacktestHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.app.GetBacktest(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, newBacktestResponse(rec.ID, &rec.Result))
}
