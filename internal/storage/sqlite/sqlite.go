// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/newthinker/stockanalyzer/internal/core"
)

const timestampLayout = time.RFC3339Nano

// Store persists price history and backtest results in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("opening %s: %w", path, err))
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("applying schema: %w", err))
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatDate(t time.Time) string {
	return t.Format(core.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(core.DateLayout, s)
}
