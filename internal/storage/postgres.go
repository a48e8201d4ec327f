package storage

import (
	"context"

	"caucus/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPostgresStorage opens a PostgreSQL database through pgx's database/sql
// driver and creates the schema if needed.
func NewPostgresStorage(ctx context.Context, cfg models.DatabaseConfig) (*SQLStorage, error) {
	return openSQL(ctx, dialectPostgres, cfg)
}
