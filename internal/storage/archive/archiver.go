// internal/storage/archive/archiver.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/newthinker/stockanalyzer/internal/core"
	"github.com/newthinker/stockanalyzer/internal/storage"
)

const resultsPrefix = "backtests"

// Archiver writes finished backtest records to a Storage backend as JSON,
// laid out as backtests/<SYMBOL>/<YYYY>/<id>.json by the run's end year.
type Archiver struct {
	store Storage
}

// NewArchiver creates an archiver over store.
func NewArchiver(store Storage) *Archiver {
	return &Archiver{store: store}
}

// ResultPath returns the archive path of rec.
func ResultPath(rec *storage.Record) string {
	year := rec.Result.EndDate.Format("2006")
	return path.Join(resultsPrefix, rec.Result.Symbol, year, rec.ID+".json")
}

// Put archives rec and returns the path it was written to.
func (a *Archiver) Put(ctx context.Context, rec *storage.Record) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	p := ResultPath(rec)
	if err := a.store.Write(ctx, p, data); err != nil {
		return "", core.WrapError(core.ErrStorageFailed, fmt.Errorf("archiving %s: %w", p, err))
	}
	return p, nil
}

// Get reads an archived record back from p.
func (a *Archiver) Get(ctx context.Context, p string) (*storage.Record, error) {
	data, err := a.store.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	var rec storage.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("decoding %s: %w", p, err))
	}
	return &rec, nil
}

// List returns the archived record paths of symbol.
func (a *Archiver) List(ctx context.Context, symbol string) ([]string, error) {
	paths, err := a.store.List(ctx, path.Join(resultsPrefix, symbol))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	out := paths[:0]
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			out = append(out, p)
		}
	}
	return out, nil
}
