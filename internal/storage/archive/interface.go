// internal/storage/archive/interface.go
package archive

import "context"

// Storage is a blob store for archived backtest results.
type Storage interface {
	// Write stores data at path, replacing any existing object.
	Write(ctx context.Context, path string, data []byte) error

	// Read returns the data at path, or core.ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns the relative paths of objects under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) (bool, error)
}
