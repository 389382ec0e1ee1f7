package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/newthinker/stockanalyzer/internal/app"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/history"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	backtestFile        string
	backtestPredictions string
	backtestFrom        string
	backtestTo          string
	backtestSave        bool
	backtestTradesOut   string

	// Decimal parameters as strings; empty keeps the config default.
	backtestCapital      string
	backtestCashReserve  string
	backtestPositionSize string
	backtestThreshold    string
	backtestStopLoss     string
	backtestTakeProfit   string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest SYMBOL",
	Short: "Run a prediction-driven backtest",
	Long: `Replay the prediction threshold strategy over one symbol.

Either pass --file with a date,close,predicted CSV, or --predictions with a
single-column predicted CSV that is paired with the stored price history in
[--from, --to]. Runs against stored history are always saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestFile, "file", "", "CSV of date,close,predicted")
	f.StringVar(&backtestPredictions, "predictions", "", "CSV of predicted closes for stored history")
	f.StringVar(&backtestFrom, "from", "", "start date YYYY-MM-DD (with --predictions)")
	f.StringVar(&backtestTo, "to", "", "end date YYYY-MM-DD (with --predictions)")
	f.BoolVar(&backtestSave, "save", false, "persist the result (with --file)")
	f.StringVar(&backtestTradesOut, "trades-out", "", "write the trade ledger as CSV to this file")

	f.StringVar(&backtestCapital, "capital", "", "initial capital")
	f.StringVar(&backtestCashReserve, "cash-reserve", "", "fraction of capital never invested")
	f.StringVar(&backtestPositionSize, "position-size", "", "fraction of available capital per entry")
	f.StringVar(&backtestThreshold, "threshold", "", "minimum predicted return to enter")
	f.StringVar(&backtestStopLoss, "stop-loss", "", "stop loss fraction")
	f.StringVar(&backtestTakeProfit, "take-profit", "", "take profit fraction")

	backtestCmd.MarkFlagsMutuallyExclusive("file", "predictions")
	backtestCmd.MarkFlagsOneRequired("file", "predictions")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	symbol := core.NormalizeSymbol(args[0])

	svc, err := setup()
	if err != nil {
		return err
	}
	defer svc.Close()

	params, err := backtestParams(svc.cfg.Backtest.Params())
	if err != nil {
		return err
	}

	var report *app.Report
	if backtestFile != "" {
		obs, err := readCSV(backtestFile, history.ReadObservations)
		if err != nil {
			return err
		}
		report, err = svc.app.Simulate(cmd.Context(), symbol, obs, params, backtestSave)
		if err != nil {
			return err
		}
	} else {
		preds, err := readCSV(backtestPredictions, history.ReadPredictions)
		if err != nil {
			return err
		}
		from, err := core.ParseOptionalDate(backtestFrom)
		if err != nil {
			return err
		}
		to, err := core.ParseOptionalDate(backtestTo)
		if err != nil {
			return err
		}
		report, err = svc.app.Backtest(cmd.Context(), app.BacktestRequest{
			Symbol:      symbol,
			Start:       from,
			End:         to,
			Predictions: preds,
			Params:      params,
		})
		if err != nil {
			return err
		}
	}

	printReport(cmd.OutOrStdout(), report)

	if backtestTradesOut != "" {
		f, err := os.Create(backtestTradesOut)
		if err != nil {
			return fmt.Errorf("creating trades file: %w", err)
		}
		defer f.Close()
		if err := history.WriteTrades(f, report.Result.Trades); err != nil {
			return fmt.Errorf("writing trades: %w", err)
		}
	}
	return nil
}

func readCSV[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return read(f)
}

// backtestParams overlays the parameter flags on defaults.
func backtestParams(defaults backtest.Params) (backtest.Params, error) {
	p := defaults
	for _, f := range []struct {
		name string
		val  string
		dst  *decimal.Decimal
	}{
		{"capital", backtestCapital, &p.InitialCapital},
		{"cash-reserve", backtestCashReserve, &p.CashReserve},
		{"position-size", backtestPositionSize, &p.PositionSize},
		{"threshold", backtestThreshold, &p.PredictionThreshold},
		{"stop-loss", backtestStopLoss, &p.StopLoss},
		{"take-profit", backtestTakeProfit, &p.TakeProfit},
	} {
		if f.val == "" {
			continue
		}
		d, err := decimal.NewFromString(f.val)
		if err != nil {
			return p, fmt.Errorf("invalid --%s %q: %w", f.name, f.val, err)
		}
		*f.dst = d
	}
	return p, nil
}

func printReport(w io.Writer, report *app.Report) {
	r := report.Result

	fmt.Fprintln(w, "=== Backtest ===")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if report.ID != "" {
		fmt.Fprintf(tw, "ID:\t%s\n", report.ID)
	}
	fmt.Fprintf(tw, "Symbol:\t%s\n", r.Symbol)
	fmt.Fprintf(tw, "Period:\t%s to %s (%d days)\n",
		r.StartDate.Format(core.DateLayout), r.EndDate.Format(core.DateLayout), r.TotalDays)
	fmt.Fprintf(tw, "Initial capital:\t%s\n", r.InitialCapital.StringFixed(2))
	fmt.Fprintf(tw, "Final capital:\t%s\n", r.FinalCapital.StringFixed(2))
	fmt.Fprintf(tw, "Total return:\t%s%%\n", r.TotalReturnPct)
	fmt.Fprintf(tw, "Max drawdown:\t%s%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(tw, "Trades:\t%d (%d won, %d lost, %.2f%% win rate)\n",
		r.NumTrades, r.Stats.WinningTrades, r.Stats.LosingTrades, r.Stats.WinRate)
	fmt.Fprintf(tw, "Sharpe ratio:\t%.4f\n", r.Stats.SharpeRatio)
	if report.ArchivePath != "" {
		fmt.Fprintf(tw, "Archived:\t%s\n", report.ArchivePath)
	}
	tw.Flush()

	if len(r.Trades) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ENTRY\tPRICE\tSHARES\tEXIT\tPRICE\tP/L %\tREASON\t")
	for _, t := range r.Trades {
		exitDate, exitPrice, pl := "-", "-", "-"
		if t.ExitDate != nil {
			exitDate = t.ExitDate.Format(core.DateLayout)
		}
		if t.ExitPrice != nil {
			exitPrice = t.ExitPrice.StringFixed(2)
		}
		if t.ProfitLossPct != nil {
			pl = t.ProfitLossPct.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t\n",
			t.EntryDate.Format(core.DateLayout), t.EntryPrice.StringFixed(2), t.Shares,
			exitDate, exitPrice, pl, t.ExitReason)
	}
	tw.Flush()
}
