// Package history imports daily prices from collectors and serves them back.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/storage"
	"go.uber.org/zap"
)

// DefaultInterval paces imports to 5 calls per minute.
const DefaultInterval = 12 * time.Second

// Import outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder receives import outcomes.
type Recorder interface {
	RecordImport(collector, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordImport(string, string) {}

// ImportResult reports the outcome of importing one symbol.
type ImportResult struct {
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Bars    int    `json:"bars"`
}

// Service imports price history into a PriceStore and answers range queries.
type Service struct {
	prices     storage.PriceStore
	collectors *collector.Registry
	fallback   string
	interval   time.Duration
	recorder   Recorder
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithInterval sets the wait between two collector calls.
func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithRecorder sets the import metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service. fallback names the collector used when an import
// does not pick one.
func New(prices storage.PriceStore, collectors *collector.Registry, fallback string, opts ...Option) *Service {
	s := &Service{
		prices:     prices,
		collectors: collectors,
		fallback:   fallback,
		interval:   DefaultInterval,
		recorder:   nopRecorder{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collector resolves a collector by name, falling back to the default.
func (s *Service) Collector(name string) (collector.Collector, error) {
	if name == "" {
		name = s.fallback
	}
	c, ok := s.collectors.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("unknown collector %q, available: %v", name, s.collectors.Names()))
	}
	return c, nil
}

// Import fetches and upserts the full daily history of each symbol, one
// collector call at a time with the configured interval in between. A failing
// symbol is reported and the batch continues. progress, if set, is called
// after each symbol. Import stops early when ctx is done.
func (s *Service) Import(ctx context.Context, collectorName string, symbols []string, progress func(done, total int)) ([]ImportResult, error) {
	c, err := s.Collector(collectorName)
	if err != nil {
		return nil, err
	}

	results := make([]ImportResult, 0, len(symbols))
	for i, raw := range symbols {
		if i > 0 && s.interval > 0 {
			if err := wait(ctx, s.interval); err != nil {
				return results, err
			}
		}

		res := s.importSymbol(ctx, c, core.NormalizeSymbol(raw))
		results = append(results, res)
		s.recorder.RecordImport(c.Name(), res.Status)

		if progress != nil {
			progress(i+1, len(symbols))
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

func (s *Service) importSymbol(ctx context.Context, c collector.Collector, symbol string) ImportResult {
	log := s.logger.With(zap.String("symbol", symbol), zap.String("collector", c.Name()))

	fail := func(err error) ImportResult {
		log.Warn("import failed", zap.Error(err))
		return ImportResult{
			Symbol:  symbol,
			Status:  StatusError,
			Message: fmt.Sprintf("Error processing %s: %v", symbol, err),
		}
	}

	bars, err := c.FetchDaily(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return fail(err)
	}
	if len(bars) == 0 {
		return fail(core.WrapError(core.ErrNoData, fmt.Errorf("failed to fetch data for %s", symbol)))
	}

	n, err := s.prices.UpsertBars(ctx, bars)
	if err != nil {
		return fail(err)
	}

	log.Info("imported price history", zap.Int("bars", n))
	return ImportResult{
		Symbol:  symbol,
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Successfully updated data for %s", symbol),
		Bars:    n,
	}
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Bars returns the stored bars of symbol within [start, end] in ascending order.
func (s *Service) Bars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("start date %s is after end date %s", start.Format(core.DateLayout), end.Format(core.DateLayout)))
	}
	return s.prices.ListBars(ctx, core.NormalizeSymbol(symbol), start, end)
}
