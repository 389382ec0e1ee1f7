// internal/storage/archive/s3_test.go
package archive

import (
	"errors"
	"testing"

	"github.com/newthinker/stockanalyzer/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{Region: "us-east-1"})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestS3Storage_KeyAndRelative(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "backtests/AAPL/2024/x.json", "backtests/AAPL/2024/x.json"},
		{"archive", "x.json", "archive/x.json"},
		{"/archive/", "x.json", "archive/x.json"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "results", Region: "us-east-1", Prefix: tt.prefix})
		if err != nil {
			t.Fatalf("NewS3: %v", err)
		}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if rel := s.relative(got); rel != tt.path {
			t.Errorf("relative(%q) = %q, want %q", got, rel, tt.path)
		}
	}
}
