package history

import (
	"context"

	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/shopspring/decimal"
)

// Query asks for the stored history of one symbol. Empty dates are open bounds.
type Query struct {
	Symbol    string `json:"symbol"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// Series is the history of one symbol as parallel arrays.
type Series struct {
	Symbol    string            `json:"symbol"`
	Timeframe string            `json:"timeframe"`
	Dates     []string          `json:"dates"`
	Opens     []decimal.Decimal `json:"opens"`
	Closes    []decimal.Decimal `json:"closes"`
	Volumes   []int64           `json:"volumes"`
	StartDate string            `json:"start_date,omitempty"`
	EndDate   string            `json:"end_date,omitempty"`
}

// Batch is the answer to a list of queries.
type Batch struct {
	Data     []Series      `json:"data"`
	Metadata BatchMetadata `json:"metadata"`
}

// BatchMetadata counts requested and returned symbols.
type BatchMetadata struct {
	RequestedCount int `json:"requested_count"`
	ReturnedCount  int `json:"returned_count"`
}

// Lookup answers each query in order. Queries without a symbol are skipped;
// a malformed date fails the whole batch.
func (s *Service) Lookup(ctx context.Context, queries []Query) (*Batch, error) {
	batch := &Batch{
		Data:     []Series{},
		Metadata: BatchMetadata{RequestedCount: len(queries)},
	}

	for _, q := range queries {
		symbol := core.NormalizeSymbol(q.Symbol)
		if symbol == "" {
			continue
		}
		start, err := core.ParseOptionalDate(q.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := core.ParseOptionalDate(q.EndDate)
		if err != nil {
			return nil, err
		}

		bars, err := s.Bars(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		series := toSeries(symbol, bars)
		series.StartDate, series.EndDate = q.StartDate, q.EndDate
		batch.Data = append(batch.Data, series)
	}

	batch.Metadata.ReturnedCount = len(batch.Data)
	return batch, nil
}

func toSeries(symbol string, bars []core.Bar) Series {
	s := Series{
		Symbol:    symbol,
		Timeframe: "daily",
		Dates:     make([]string, len(bars)),
		Opens:     make([]decimal.Decimal, len(bars)),
		Closes:    make([]decimal.Decimal, len(bars)),
		Volumes:   make([]int64, len(bars)),
	}
	for i, b := range bars {
		s.Dates[i] = b.Date.Format(core.DateLayout)
		s.Opens[i] = b.Open
		s.Closes[i] = b.Close
		s.Volumes[i] = b.Volume
	}
	return s
}
