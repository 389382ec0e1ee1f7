// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/stockanalyzer/internal/backtest"
	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/storage"
)

// Store is an in-memory price and result store. It backs tests and runs
// where no database path is configured.
type Store struct {
	bars       map[string]map[string]core.Bar // symbol -> date -> bar
	results    []storage.Record
	maxResults int
	mu         sync.RWMutex
	now        func() time.Time
}

// New creates an empty store keeping at most maxResults results.
func New(maxResults int) *Store {
	return &Store{
		bars:       make(map[string]map[string]core.Bar),
		results:    make([]storage.Record, 0, maxResults),
		maxResults: maxResults,
		now:        time.Now,
	}
}

// UpsertBars stores bars, replacing any with the same symbol and date.
func (m *Store) UpsertBars(ctx context.Context, bars []core.Bar) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range bars {
		byDate, ok := m.bars[b.Symbol]
		if !ok {
			byDate = make(map[string]core.Bar)
			m.bars[b.Symbol] = byDate
		}
		byDate[b.Date.Format(core.DateLayout)] = b
	}
	return len(bars), nil
}

// ListBars returns bars of symbol within [start, end] ordered by date.
func (m *Store) ListBars(ctx context.Context, symbol string, start, end time.Time) ([]core.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []core.Bar
	for _, b := range m.bars[symbol] {
		if storage.InRange(b.Date, start, end) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// SaveResult stores a copy of result under a new ID.
func (m *Store) SaveResult(ctx context.Context, result *backtest.Result) (*storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := storage.Record{
		ID:        uuid.New().String(),
		CreatedAt: m.now().UTC(),
		Result:    *result,
	}
	rec.Result.Trades = append([]backtest.Trade{}, result.Trades...)

	m.results = append(m.results, rec)

	// Trim if over capacity (remove oldest)
	if m.maxResults > 0 && len(m.results) > m.maxResults {
		m.results = m.results[len(m.results)-m.maxResults:]
	}

	return &rec, nil
}

// GetResult retrieves a result by ID.
func (m *Store) GetResult(ctx context.Context, id string) (*storage.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.results {
		if m.results[i].ID == id {
			rec := m.results[i]
			return &rec, nil
		}
	}
	return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("backtest %s", id))
}

// Close is a no-op; it lets Store stand in for a database-backed store.
func (m *Store) Close() error {
	return nil
}
