package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

var ErrMigrationsUnsupported = errors.New("migrations require a pgxpool connection")

func (db *DB) Migrate(ctx context.Context) error {
	return db.withGoose(func(sqlDB *sql.DB) error {
		if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	})
}

// Reset rolls back every migration and applies them again, leaving an empty
// schema at the latest version.
func (db *DB) Reset(ctx context.Context) error {
	return db.withGoose(func(sqlDB *sql.DB) error {
		if err := goose.ResetContext(ctx, sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("migration reset failed: %w", err)
		}
		if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	})
}

func (db *DB) withGoose(fn func(*sql.DB) error) error {
	pool, ok := db.Pool.(*pgxpool.Pool)
	if !ok {
		return ErrMigrationsUnsupported
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	return fn(sqlDB)
}
