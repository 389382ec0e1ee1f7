package history

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

type observationRow struct {
	Date      string `csv:"date"`
	Close     string `csv:"close"`
	Predicted string `csv:"predicted"`
}

type predictionRow struct {
	Predicted string `csv:"predicted"`
}

type tradeRow struct {
	ID            string `csv:"id"`
	EntryDate     string `csv:"entry_date"`
	EntryPrice    string `csv:"entry_price"`
	Shares        int64  `csv:"shares"`
	ExitDate      string `csv:"exit_date"`
	ExitPrice     string `csv:"exit_price"`
	ProfitLossPct string `csv:"profit_loss_pct"`
	ExitReason    string `csv:"exit_reason"`
}

// ReadObservations parses a date,close,predicted CSV with a header row.
// Row order is kept; the engine validates ordering.
func ReadObservations(r io.Reader) ([]backtest.Observation, error) {
	var rows []observationRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("reading observations: %w", err))
	}

	obs := make([]backtest.Observation, len(rows))
	for i, row := range rows {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		closePrice, err := parseDecimal(i, "close", row.Close)
		if err != nil {
			return nil, err
		}
		predicted, err := parseDecimal(i, "predicted", row.Predicted)
		if err != nil {
			return nil, err
		}
		obs[i] = backtest.Observation{Date: date, Close: closePrice, Predicted: predicted}
	}
	return obs, nil
}

// ReadPredictions parses a single-column predicted CSV with a header row.
func ReadPredictions(r io.Reader) ([]decimal.Decimal, error) {
	var rows []predictionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("reading predictions: %w", err))
	}

	out := make([]decimal.Decimal, len(rows))
	for i, row := range rows {
		d, err := parseDecimal(i, "predicted", row.Predicted)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// WriteTrades writes the ledger as CSV. Open trades leave the exit columns empty.
func WriteTrades(w io.Writer, trades []backtest.Trade) error {
	rows := make([]tradeRow, len(trades))
	for i, t := range trades {
		row := tradeRow{
			ID:         t.ID,
			EntryDate:  t.EntryDate.Format(core.DateLayout),
			EntryPrice: t.EntryPrice.String(),
			Shares:     t.Shares,
			ExitReason: string(t.ExitReason),
		}
		if t.ExitDate != nil {
			row.ExitDate = t.ExitDate.Format(core.DateLayout)
		}
		if t.ExitPrice != nil {
			row.ExitPrice = t.ExitPrice.String()
		}
		if t.ProfitLossPct != nil {
			row.ProfitLossPct = t.ProfitLossPct.String()
		}
		rows[i] = row
	}
	return gocsv.Marshal(rows, w)
}

func parseDecimal(i int, column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("row %d: invalid %s %q", i+1, column, s))
	}
	return d, nil
}
