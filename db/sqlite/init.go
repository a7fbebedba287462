// Package sqlite is a single-file store backend on the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open opens (or creates) the database at path and applies pending migrations.
// ":memory:" gives a private database that lives as long as the returned handle.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite has a single writer; one connection also keeps ":memory:" databases whole
	d.SetMaxOpenConns(1)

	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	// journal_mode may not be supported for in-memory databases
	_, _ = d.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if _, err := d.ExecContext(ctx, `PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}

	if err := Migrate(ctx, d); err != nil {
		_ = d.Close()
		return nil, err
	}
	log.Printf("SQLite database ready: %s", path)
	return d, nil
}

// Migrate applies the embedded migrations that have not run yet.
func Migrate(ctx context.Context, d *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, d, fsys, goose.WithDisableGlobalRegistry(true))
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return nil
}
