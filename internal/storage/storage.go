// Package storage contains storage-agnostic contracts and utilities.
//
// Backends register a Factory under a kind name at init time; callers obtain
// a Repository via New without importing the backend directly. Importing
// lifeexp/internal/storage/all enables every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config carries everything a backend needs to open a Repository.
type Config struct {
	// Kind selects the backend ("csv", "sqlite", "postgres", "mssql", "mysql").
	Kind string

	// DSN is the driver connection string for SQL backends.
	DSN string

	// Table is the destination table for SQL backends.
	Table string

	// Columns is the ordered destination column list.
	Columns []string

	// KeyColumns becomes the primary key when the table is auto-created.
	KeyColumns []string

	// Types maps column names to logical types ("int", "float"); columns
	// without an entry are text. Used only for DDL.
	Types map[string]string

	// Dir is the output directory for the csv backend.
	Dir string

	// Key names the destination for file backends (e.g. "pt-fr" or "eu").
	Key string
}

// Repository is the write side of a storage backend.
type Repository interface {
	// CopyFrom inserts rows aligned to columns and returns the number of rows
	// written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)

	// Exec runs a backend statement, typically DDL. File backends ignore it.
	Exec(ctx context.Context, sql string) error

	// Close flushes and releases the backend.
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order. The slice is a copy.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
