package backtest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one trading day of the input series.
type Observation struct {
	Date      time.Time       `json:"date"`
	Close     decimal.Decimal `json:"close"`
	Predicted decimal.Decimal `json:"predicted"`
}

// Params holds the strategy and sizing parameters of a run
type Params struct {
	InitialCapital      decimal.Decimal `json:"initial_capital"`
	CashReserve         decimal.Decimal `json:"cash_reserve"`
	PositionSize        decimal.Decimal `json:"position_size"`
	PredictionThreshold decimal.Decimal `json:"prediction_threshold"`
	StopLoss            decimal.Decimal `json:"stop_loss"`
	TakeProfit          decimal.Decimal `json:"take_profit"`
}

// DefaultParams returns the default parameter set for the given capital.
func DefaultParams(initialCapital decimal.Decimal) Params {
	return Params{
		InitialCapital:      initialCapital,
		CashReserve:         decimal.Zero,
		PositionSize:        decimal.NewFromInt(1),
		PredictionThreshold: decimal.RequireFromString("0.02"),
		StopLoss:            decimal.RequireFromString("0.05"),
		TakeProfit:          decimal.RequireFromString("0.05"),
	}
}

// ExitReason explains why a trade was closed
type ExitReason string

const (
	ExitNone        ExitReason = ""
	ExitTakeProfit  ExitReason = "take_profit"
	ExitStopLoss    ExitReason = "stop_loss"
	ExitEndOfPeriod ExitReason = "end_of_period"
)

// Position is the single live holding. Positions are never mutated once created.
type Position struct {
	TradeID         string
	EntryDate       time.Time
	EntryPrice      decimal.Decimal
	Shares          int64
	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal
}

// Trade is the ledger record of a position, open until its exit is recorded.
type Trade struct {
	ID            string           `json:"id"`
	EntryDate     time.Time        `json:"entry_date"`
	EntryPrice    decimal.Decimal  `json:"entry_price"`
	Shares        int64            `json:"shares"`
	ExitDate      *time.Time       `json:"exit_date"`
	ExitPrice     *decimal.Decimal `json:"exit_price"`
	ProfitLossPct *decimal.Decimal `json:"profit_loss_pct"` // Percentage of entry price
	ExitReason    ExitReason       `json:"exit_reason"`
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return t.ExitDate != nil
}

// IsWin returns true if the trade was closed at a profit
func (t Trade) IsWin() bool {
	return t.IsClosed() && t.ProfitLossPct != nil && t.ProfitLossPct.IsPositive()
}

// Result holds the complete backtest output
type Result struct {
	Symbol         string          `json:"symbol"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	TotalDays      int             `json:"total_days"`
	Params         Params          `json:"parameters_used"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	FinalCapital   decimal.Decimal `json:"final_capital"`
	TotalReturnPct decimal.Decimal `json:"total_return_pct"` // Percentage of initial capital
	NumTrades      int             `json:"num_trades"`
	MaxDrawdownPct decimal.Decimal `json:"max_drawdown_pct"`
	Trades         []Trade         `json:"trades"`
	Stats          Stats           `json:"stats"`
}

// Stats holds supplementary performance statistics
type Stats struct {
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // Percentage of profitable closed trades
	SharpeRatio   float64 `json:"sharpe_ratio"` // Annualized, from daily equity returns
}
