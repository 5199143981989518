// Package database handles database connections and migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/database/migrations"
)

// New creates a PostgreSQL connection pool and verifies connectivity
// before returning it.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Migrate runs database migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return MigrateWithLogger(ctx, pool, nil)
}

// MigrateWithLogger runs database migrations with a custom logger.
func MigrateWithLogger(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	return migrations.Run(ctx, pool, logger)
}

// GetAppliedMigrations returns information about applied migrations.
func GetAppliedMigrations(ctx context.Context, pool *pgxpool.Pool) ([]migrations.AppliedMigration, error) {
	return migrations.GetAppliedMigrations(ctx, pool)
}

// GetLatestVersion returns the latest applied migration version.
func GetLatestVersion(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	return migrations.GetLatestVersion(ctx, pool)
}
