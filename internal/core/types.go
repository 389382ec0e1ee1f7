package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on every external surface.
const DateLayout = "2006-01-02"

// Bar represents one daily price record of a symbol
type Bar struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// IsValid checks if the bar has required fields
func (b Bar) IsValid() bool {
	return b.Symbol != "" && !b.Date.IsZero() && b.Close.IsPositive()
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, WrapError(ErrInvalidInput,
			fmt.Errorf("invalid date %q, use YYYY-MM-DD", s))
	}
	return t, nil
}

// ParseOptionalDate parses s with ParseDate, returning the zero time for "".
func ParseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseDate(s)
}

// TruncateDay strips the clock part of t, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
