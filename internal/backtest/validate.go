package backtest

import (
	"fmt"

	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ValidateSeries checks the observation sequence contract: non-empty, strictly
// ascending dates and positive close prices.
func ValidateSeries(obs []Observation) error {
	if len(obs) == 0 {
		return core.WrapError(core.ErrInvalidInput, fmt.Errorf("observation series is empty"))
	}
	for i, o := range obs {
		if !o.Close.IsPositive() {
			return core.WrapError(core.ErrInvalidInput,
				fmt.Errorf("close price on %s must be positive, got %s", o.Date.Format(core.DateLayout), o.Close))
		}
		if i > 0 && !o.Date.After(obs[i-1].Date) {
			return core.WrapError(core.ErrInvalidInput,
				fmt.Errorf("dates must be strictly ascending: %s follows %s",
					o.Date.Format(core.DateLayout), obs[i-1].Date.Format(core.DateLayout)))
		}
	}
	return nil
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	switch {
	case !p.InitialCapital.IsPositive():
		return invalidParam("initial_capital must be positive, got %s", p.InitialCapital)
	case p.CashReserve.IsNegative() || p.CashReserve.GreaterThanOrEqual(one):
		return invalidParam("cash_reserve must be in [0,1), got %s", p.CashReserve)
	case !p.PositionSize.IsPositive() || p.PositionSize.GreaterThan(one):
		return invalidParam("position_size must be in (0,1], got %s", p.PositionSize)
	case !p.StopLoss.IsPositive() || p.StopLoss.GreaterThanOrEqual(one):
		return invalidParam("stop_loss must be in (0,1), got %s", p.StopLoss)
	case !p.TakeProfit.IsPositive() || p.TakeProfit.GreaterThanOrEqual(one):
		return invalidParam("take_profit must be in (0,1), got %s", p.TakeProfit)
	}
	return nil
}

func invalidParam(format string, args ...any) error {
	return core.WrapError(core.ErrInvalidInput, fmt.Errorf(format, args...))
}
