package collector

import (
	"testing"
	"time"

	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	bar := func(d int, close int64) core.Bar {
		return core.Bar{Symbol: "AAPL", Date: day(d), Close: decimal.NewFromInt(close)}
	}

	bars := []core.Bar{bar(5, 5), bar(1, 1), bar(3, 3), bar(4, 0), bar(2, 2)}

	got := Normalize(bars, day(2), day(5))
	dates := make([]time.Time, len(got))
	for i, b := range got {
		dates[i] = b.Date
	}
	assert.Equal(t, []time.Time{day(2), day(3), day(5)}, dates)

	assert.Len(t, Normalize(bars, time.Time{}, time.Time{}), 4)
	assert.Empty(t, Normalize(nil, time.Time{}, time.Time{}))
}
