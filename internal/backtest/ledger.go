package backtest

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Exit describes how a trade was resolved.
type Exit struct {
	Date   time.Time
	Price  decimal.Decimal
	Reason ExitReason
}

// Ledger is the ordered, append-only record of trades of one run.
//
// A Ledger is a value: Append and Close return a new Ledger and never touch
// the receiver, so earlier engine states stay intact.
type Ledger struct {
	trades []Trade
	index  map[string]int
}

// Append adds an open trade at the end of the ledger.
func (l Ledger) Append(t Trade) (Ledger, error) {
	if _, ok := l.index[t.ID]; ok {
		return l, fmt.Errorf("duplicate trade id %s", t.ID)
	}

	index := make(map[string]int, len(l.index)+1)
	for id, i := range l.index {
		index[id] = i
	}
	index[t.ID] = len(l.trades)

	trades := make([]Trade, len(l.trades), len(l.trades)+1)
	copy(trades, l.trades)

	return Ledger{trades: append(trades, t), index: index}, nil
}

// Get looks up a trade by id.
func (l Ledger) Get(id string) (Trade, bool) {
	i, ok := l.index[id]
	if !ok {
		return Trade{}, false
	}
	return l.trades[i], true
}

// Close records the exit of an open trade. A trade is closed exactly once.
func (l Ledger) Close(id string, exit Exit) (Ledger, error) {
	i, ok := l.index[id]
	if !ok {
		return l, fmt.Errorf("trade %s not found", id)
	}
	t := l.trades[i]
	if t.IsClosed() {
		return l, fmt.Errorf("trade %s already closed", id)
	}

	exitDate := exit.Date
	exitPrice := exit.Price
	pl := exit.Price.Sub(t.EntryPrice).Div(t.EntryPrice).Mul(hundred).Round(4)

	t.ExitDate = &exitDate
	t.ExitPrice = &exitPrice
	t.ProfitLossPct = &pl
	t.ExitReason = exit.Reason

	trades := slices.Clone(l.trades)
	trades[i] = t
	return Ledger{trades: trades, index: l.index}, nil
}

// Len returns the number of trades, open or closed.
func (l Ledger) Len() int {
	return len(l.trades)
}

// Trades returns a copy of the trades in entry order.
func (l Ledger) Trades() []Trade {
	trades := make([]Trade, len(l.trades))
	copy(trades, l.trades)
	return trades
}
