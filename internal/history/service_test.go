package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/stockanalyzer/internal/collector"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) Name() string                    { return "mock" }
func (m *mockCollector) Init(cfg collector.Config) error { return nil }
func (m *mockCollector) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	args := m.Called(symbol)
	bars, _ := args.Get(0).([]core.Bar)
	return bars, args.Error(1)
}

type countingRecorder struct {
	statuses []string
}

func (r *countingRecorder) RecordImport(collector, status string) {
	r.statuses = append(r.statuses, collector+":"+status)
}

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func bars(symbol string, days ...int) []core.Bar {
	out := make([]core.Bar, len(days))
	for i, d := range days {
		c := decimal.NewFromInt(int64(100 + d))
		out[i] = core.Bar{Symbol: symbol, Date: jan(d), Open: c, High: c, Low: c, Close: c, Volume: int64(d)}
	}
	return out
}

func newTestService(t *testing.T, c collector.Collector, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New(10)
	reg := collector.NewRegistry()
	reg.Register(c)
	opts = append([]Option{WithInterval(0)}, opts...)
	return New(store, reg, c.Name(), opts...), store
}

func TestService_Import(t *testing.T) {
	c := &mockCollector{}
	c.On("FetchDaily", "AAPL").Return(bars("AAPL", 2, 3), nil)
	c.On("FetchDaily", "FAIL").Return(nil, core.WrapError(core.ErrCollectorFailed, errors.New("boom")))
	c.On("FetchDaily", "EMPTY").Return([]core.Bar{}, nil)

	rec := &countingRecorder{}
	svc, store := newTestService(t, c, WithRecorder(rec))

	var progress []int
	results, err := svc.Import(context.Background(), "", []string{"aapl", "FAIL", "empty"}, func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	c.AssertExpectations(t)

	require.Len(t, results, 3)
	assert.Equal(t, ImportResult{
		Symbol:  "AAPL",
		Status:  StatusSuccess,
		Message: "Successfully updated data for AAPL",
		Bars:    2,
	}, results[0])
	assert.Equal(t, StatusError, results[1].Status)
	assert.Contains(t, results[1].Message, "Error processing FAIL")
	assert.Equal(t, StatusError, results[2].Status)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, []string{"mock:success", "mock:error", "mock:error"}, rec.statuses)

	stored, err := store.ListBars(context.Background(), "AAPL", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestService_ImportUnknownCollector(t *testing.T) {
	svc, _ := newTestService(t, &mockCollector{})

	_, err := svc.Import(context.Background(), "nope", []string{"AAPL"}, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
}

func TestService_ImportStopsWhenCanceledDuringWait(t *testing.T) {
	c := &mockCollector{}
	c.On("FetchDaily", "AAPL").Return(bars("AAPL", 2), nil)

	svc, _ := newTestService(t, c, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	results, err := svc.Import(ctx, "", []string{"AAPL", "MSFT"}, func(done, total int) {
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	c.AssertNotCalled(t, "FetchDaily", "MSFT")
}

func TestService_ImportWaitsBetweenCalls(t *testing.T) {
	c := &mockCollector{}
	c.On("FetchDaily", mock.Anything).Return(bars("X", 2), nil)

	svc, _ := newTestService(t, c, WithInterval(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Import(context.Background(), "", []string{"A", "B", "C"}, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestService_BarsRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t, &mockCollector{})

	_, err := svc.Bars(context.Background(), "AAPL", jan(5), jan(2))
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
}
