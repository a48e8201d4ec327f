package storage

import (
	"context"

	"caucus/internal/models"

	_ "modernc.org/sqlite"
)

// NewSQLiteStorage opens a SQLite database through the pure-Go
// modernc.org/sqlite driver and creates the schema if needed.
//
// SQLite serialises writers, so the pool is pinned to one connection unless
// the config says otherwise.
func NewSQLiteStorage(ctx context.Context, cfg models.DatabaseConfig) (*SQLStorage, error) {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 1
	}
	return openSQL(ctx, dialectSQLite, cfg)
}
