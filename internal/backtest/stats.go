package backtest

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// CalculateStats computes win/loss counts over closed trades and the
// annualized Sharpe ratio of the daily equity curve.
func CalculateStats(trades []Trade, equity []decimal.Decimal) Stats {
	var winning, losing int
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	closedTrades := winning + losing
	var winRate float64
	if closedTrades > 0 {
		winRate = float64(winning) / float64(closedTrades) * 100
	}

	return Stats{
		WinningTrades: winning,
		LosingTrades:  losing,
		WinRate:       winRate,
		SharpeRatio:   calculateSharpeRatio(dailyReturns(equity)),
	}
}

// dailyReturns converts an equity curve into day-over-day fractional returns
func dailyReturns(equity []decimal.Decimal) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if !prev.IsPositive() {
			continue
		}
		returns = append(returns, equity[i].Sub(prev).Div(prev).InexactFloat64())
	}
	return returns
}

// calculateSharpeRatio computes risk-adjusted return
// Assumes risk-free rate of 0 for simplicity
func calculateSharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	stdDev, err := stats.StandardDeviationSample(returns)
	if err != nil || stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(tradingDaysPerYear)
}
