// Package csvfile implements the "csv" storage kind: the cleaned table is
// written to <dir>/<key>_life_expectancy.csv with a header row and no index
// column.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lifeexp/internal/country"
	"lifeexp/internal/storage"
	"lifeexp/pkg/records"
)

// Kind is the storage kind this package registers.
const Kind = "csv"

// Suffix is appended to the destination key to form the file name.
const Suffix = "_life_expectancy.csv"

// Path returns the output path for key inside dir. An empty key falls back to
// the unfiltered country key.
func Path(dir, key string) string {
	if strings.TrimSpace(key) == "" {
		key = country.DefaultKey
	}
	return filepath.Join(dir, key+Suffix)
}

// Repository writes rows to a single CSV file.
type Repository struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	w       *csv.Writer
	columns []string
	header  bool
	written int64
}

// Open creates (or truncates) the output file for cfg. The directory is
// created if needed. When cfg.Columns is set the header is written at once,
// so a run with no surviving rows still leaves a header-only file.
func Open(cfg storage.Config) (*Repository, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvfile: mkdir %s: %w", dir, err)
	}
	path := Path(dir, cfg.Key)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvfile: create %s: %w", path, err)
	}
	r := &Repository{path: path, f: f, w: csv.NewWriter(f)}
	if len(cfg.Columns) > 0 {
		if err := r.writeHeader(cfg.Columns); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return r, nil
}

// Path returns the file being written.
func (r *Repository) Path() string { return r.path }

// Written returns the number of data rows written so far.
func (r *Repository) Written() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

func (r *Repository) writeHeader(columns []string) error {
	r.columns = append([]string(nil), columns...)
	if err := r.w.Write(r.columns); err != nil {
		return fmt.Errorf("csvfile: write header: %w", err)
	}
	r.header = true
	return nil
}

// CopyFrom appends rows. Missing cells are written as empty fields and
// floats in their shortest round-trip form.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !r.header {
		if err := r.writeHeader(columns); err != nil {
			return 0, err
		}
	} else if len(columns) != len(r.columns) {
		return 0, fmt.Errorf("csvfile: got %d columns, header has %d", len(columns), len(r.columns))
	}

	rec := make([]string, len(columns))
	var n int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return n, fmt.Errorf("csvfile: row %d has %d cells, want %d", i, len(row), len(columns))
		}
		for j, v := range row {
			rec[j] = records.FormatValue(v)
		}
		if err := r.w.Write(rec); err != nil {
			return n, fmt.Errorf("csvfile: write %s: %w", r.path, err)
		}
		n++
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return n, fmt.Errorf("csvfile: flush %s: %w", r.path, err)
	}
	r.written += n
	return n, nil
}

// Exec is a no-op; files have no schema to bootstrap.
func (r *Repository) Exec(context.Context, string) error { return nil }

// Close flushes buffered output and closes the file.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		slog.Error("csvfile: flush", "path", r.path, "err", err)
	}
	if err := r.f.Close(); err != nil {
		slog.Error("csvfile: close", "path", r.path, "err", err)
	}
	r.f = nil
}

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register(Kind, func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
		return Open(cfg)
	})
}
