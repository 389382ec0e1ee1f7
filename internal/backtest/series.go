package backtest

import (
	"fmt"

	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

// Join pairs daily bars with caller-supplied predictions, one prediction per
// bar in order. A count mismatch is rejected before any simulation happens.
func Join(bars []core.Bar, predictions []decimal.Decimal) ([]Observation, error) {
	if len(bars) == 0 {
		return nil, core.ErrNoData
	}
	if len(predictions) != len(bars) {
		return nil, core.WrapError(core.ErrPredictionMismatch, fmt.Errorf(
			"number of predictions (%d) does not match historical data length (%d) for the specified date range (%s to %s)",
			len(predictions), len(bars),
			bars[0].Date.Format(core.DateLayout), bars[len(bars)-1].Date.Format(core.DateLayout)))
	}

	obs := make([]Observation, len(bars))
	for i, b := range bars {
		obs[i] = Observation{
			Date:      b.Date,
			Close:     b.Close,
			Predicted: predictions[i],
		}
	}
	return obs, nil
}
