package storage

import (
	"context"
	"fmt"
	"sync"

	"lifeexp/internal/ddl"
)

var (
	ddlMu    sync.RWMutex
	dialects = map[string]ddl.Dialect{}
)

// RegisterDDL registers (or replaces) the DDL dialect for a storage kind.
// SQL backends call it from init.
func RegisterDDL(kind string, d ddl.Dialect) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	dialects[kind] = d
}

// CreateTableSQL renders the CREATE TABLE statement for cfg using the
// dialect registered for cfg.Kind.
func CreateTableSQL(cfg Config) (string, error) {
	ddlMu.RLock()
	d, ok := dialects[cfg.Kind]
	ddlMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL dialect registered for storage.kind=%q", cfg.Kind)
	}
	def, err := ddl.Infer(cfg.Table, cfg.Columns, cfg.KeyColumns, cfg.Types, d)
	if err != nil {
		return "", fmt.Errorf("infer table definition: %w", err)
	}
	return ddl.BuildCreateTableSQL(def, d)
}

// EnsureTable creates cfg.Table through repo.Exec if it does not exist.
func EnsureTable(ctx context.Context, cfg Config, repo Repository) error {
	stmt, err := CreateTableSQL(cfg)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
