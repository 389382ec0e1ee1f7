package collector

import (
	"sort"
	"time"

	"github.com/newthinker/stockanalyzer/internal/core"
)

// Normalize drops invalid bars and bars outside [start, end], then sorts the
// rest by date. Providers that ignore range parameters rely on it.
func Normalize(bars []core.Bar, start, end time.Time) []core.Bar {
	out := make([]core.Bar, 0, len(bars))
	for _, b := range bars {
		if !b.IsValid() {
			continue
		}
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
