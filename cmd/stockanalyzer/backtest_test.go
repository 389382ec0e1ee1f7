package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/newthinker/stockanalyzer/internal/app"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktestParams(t *testing.T) {
	defaults := backtest.DefaultParams(decimal.NewFromInt(10000))

	backtestCapital, backtestThreshold = "5000", "0.1"
	t.Cleanup(func() { backtestCapital, backtestThreshold = "", "" })

	p, err := backtestParams(defaults)
	require.NoError(t, err)
	assert.Equal(t, "5000", p.InitialCapital.String())
	assert.Equal(t, "0.1", p.PredictionThreshold.String())
	assert.True(t, p.StopLoss.Equal(defaults.StopLoss))
}

func TestBacktestParams_Invalid(t *testing.T) {
	backtestStopLoss = "five percent"
	t.Cleanup(func() { backtestStopLoss = "" })

	_, err := backtestParams(backtest.DefaultParams(decimal.NewFromInt(10000)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--stop-loss")
}

func TestPrintReport(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	obs := []backtest.Observation{
		{Date: day(2), Close: decimal.NewFromInt(100), Predicted: decimal.NewFromInt(103)},
		{Date: day(3), Close: decimal.NewFromInt(101), Predicted: decimal.Zero},
		{Date: day(4), Close: decimal.NewFromInt(110), Predicted: decimal.Zero},
	}
	result, err := backtest.Run(obs, "AAPL", backtest.DefaultParams(decimal.NewFromInt(10000)))
	require.NoError(t, err)

	var buf bytes.Buffer
	printReport(&buf, &app.Report{Result: result})

	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "2024-01-02 to 2024-01-04 (3 days)")
	assert.Contains(t, out, "10500.00")
	assert.Contains(t, out, "take_profit")
	assert.NotContains(t, out, "ID:")
}
