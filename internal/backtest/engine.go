package backtest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

// tradeNamespace scopes the name-based trade ids.
var tradeNamespace = uuid.MustParse("6f1c1d3e-4b5a-5c8e-9a47-2d0c3f6b8e11")

// State is the engine state between two days. It is a value; every step
// returns a new State and leaves its input untouched.
type State struct {
	Capital  decimal.Decimal
	Position *Position // nil while flat
	Ledger   Ledger
	Perf     Performance
}

// IsOpen reports whether a position is held.
func (s State) IsOpen() bool {
	return s.Position != nil
}

// Equity returns capital plus the open position marked at price.
func (s State) Equity(price decimal.Decimal) decimal.Decimal {
	if s.Position == nil {
		return s.Capital
	}
	return s.Capital.Add(price.Mul(decimal.NewFromInt(s.Position.Shares)))
}

// Engine applies the prediction-threshold strategy of one symbol.
type Engine struct {
	symbol string
	params Params
}

// NewEngine creates an engine for symbol with validated params.
func NewEngine(symbol string, params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{symbol: symbol, params: params}, nil
}

// Init returns the flat starting state.
func (e *Engine) Init() State {
	return State{
		Capital: e.params.InitialCapital,
		Perf:    NewPerformance(e.params.InitialCapital),
	}
}

// Step evaluates day today against the following day next. A flat state may
// buy at today's close; an open state may exit on next's close. Never both.
// Equity is marked at today's close after the decision.
func (e *Engine) Step(s State, today, next Observation) (State, error) {
	var err error
	if s.Position == nil {
		s, err = e.tryOpen(s, today)
	} else {
		s, err = e.checkExit(s, next)
	}
	if err != nil {
		return s, err
	}

	s.Perf = s.Perf.Mark(s.Equity(today.Close))
	return s, nil
}

// Finish force-closes an open position at the last observation's close.
func (e *Engine) Finish(s State, last Observation) (State, error) {
	if s.Position == nil {
		return s, nil
	}
	return e.exit(s, Exit{Date: last.Date, Price: last.Close, Reason: ExitEndOfPeriod})
}

func (e *Engine) tryOpen(s State, today Observation) (State, error) {
	price := today.Close
	predictedReturn := today.Predicted.Sub(price).Div(price)
	if !predictedReturn.GreaterThan(e.params.PredictionThreshold) {
		return s, nil
	}

	available := s.Capital.Mul(one.Sub(e.params.CashReserve))
	quotient, _ := available.Mul(e.params.PositionSize).QuoRem(price, 0)
	shares := quotient.IntPart()
	if shares <= 0 {
		return s, nil
	}

	pos := &Position{
		TradeID:         e.tradeID(s.Ledger.Len(), today.Date),
		EntryDate:       today.Date,
		EntryPrice:      price,
		Shares:          shares,
		TakeProfitPrice: price.Mul(one.Add(e.params.TakeProfit)),
		StopLossPrice:   price.Mul(one.Sub(e.params.StopLoss)),
	}

	ledger, err := s.Ledger.Append(Trade{
		ID:         pos.TradeID,
		EntryDate:  pos.EntryDate,
		EntryPrice: pos.EntryPrice,
		Shares:     pos.Shares,
	})
	if err != nil {
		return s, err
	}

	s.Capital = s.Capital.Sub(price.Mul(decimal.NewFromInt(shares)))
	s.Position = pos
	s.Ledger = ledger
	return s, nil
}

func (e *Engine) checkExit(s State, next Observation) (State, error) {
	pos := s.Position
	switch {
	case next.Close.GreaterThanOrEqual(pos.TakeProfitPrice):
		return e.exit(s, Exit{Date: next.Date, Price: pos.TakeProfitPrice, Reason: ExitTakeProfit})
	case next.Close.LessThanOrEqual(pos.StopLossPrice):
		return e.exit(s, Exit{Date: next.Date, Price: pos.StopLossPrice, Reason: ExitStopLoss})
	}
	return s, nil
}

func (e *Engine) exit(s State, exit Exit) (State, error) {
	ledger, err := s.Ledger.Close(s.Position.TradeID, exit)
	if err != nil {
		return s, err
	}

	s.Capital = s.Capital.Add(exit.Price.Mul(decimal.NewFromInt(s.Position.Shares)))
	s.Position = nil
	s.Ledger = ledger
	return s, nil
}

// tradeID derives a stable id so identical runs produce identical ledgers.
func (e *Engine) tradeID(seq int, entry time.Time) string {
	name := fmt.Sprintf("%s/%d/%s", e.symbol, seq, entry.Format(core.DateLayout))
	return uuid.NewSHA1(tradeNamespace, []byte(name)).String()
}

// Run simulates the strategy over obs and returns the finalized result.
// Inputs are validated up-front; nothing is simulated on a contract violation.
func Run(obs []Observation, symbol string, params Params) (*Result, error) {
	if err := ValidateSeries(obs); err != nil {
		return nil, err
	}
	engine, err := NewEngine(symbol, params)
	if err != nil {
		return nil, err
	}

	state := engine.Init()
	equity := make([]decimal.Decimal, 0, len(obs))

	for i := 0; i < len(obs)-1; i++ {
		state, err = engine.Step(state, obs[i], obs[i+1])
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", obs[i].Date.Format(core.DateLayout), err)
		}
		equity = append(equity, state.Equity(obs[i].Close))
	}

	state, err = engine.Finish(state, obs[len(obs)-1])
	if err != nil {
		return nil, fmt.Errorf("closing final position: %w", err)
	}
	equity = append(equity, state.Capital)

	trades := state.Ledger.Trades()

	return &Result{
		Symbol:         symbol,
		StartDate:      obs[0].Date,
		EndDate:        obs[len(obs)-1].Date,
		TotalDays:      len(obs),
		Params:         params,
		InitialCapital: params.InitialCapital,
		FinalCapital:   state.Capital,
		TotalReturnPct: TotalReturnPct(params.InitialCapital, state.Capital),
		NumTrades:      len(trades),
		MaxDrawdownPct: state.Perf.MaxDrawdownPct(),
		Trades:         trades,
		Stats:          CalculateStats(trades, equity),
	}, nil
}
