package backtest

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Performance tracks peak equity and the largest peak-to-trough decline.
type Performance struct {
	Peak        decimal.Decimal
	MaxDrawdown decimal.Decimal // Fraction of peak, in [0,1]
}

// NewPerformance seeds the running peak with the initial capital.
func NewPerformance(initialCapital decimal.Decimal) Performance {
	return Performance{
		Peak:        initialCapital,
		MaxDrawdown: decimal.Zero,
	}
}

// Mark folds one day's mark-to-market equity into the running statistics.
func (p Performance) Mark(equity decimal.Decimal) Performance {
	if equity.GreaterThan(p.Peak) {
		p.Peak = equity
	}
	if !p.Peak.IsPositive() {
		return p
	}
	if dd := p.Peak.Sub(equity).Div(p.Peak); dd.GreaterThan(p.MaxDrawdown) {
		p.MaxDrawdown = dd
	}
	return p
}

// MaxDrawdownPct returns the drawdown as a percentage rounded half-up to 4 places.
func (p Performance) MaxDrawdownPct() decimal.Decimal {
	return p.MaxDrawdown.Mul(hundred).Round(4)
}

// TotalReturnPct returns the return on initial capital as a percentage
// rounded half-up to 4 places.
func TotalReturnPct(initial, final decimal.Decimal) decimal.Decimal {
	if !initial.IsPositive() {
		return decimal.Zero
	}
	return final.Sub(initial).Div(initial).Mul(hundred).Round(4)
}
