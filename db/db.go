// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/votedesk/cliparse"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to the configured database and verifies the connection.
// SQLite connections get foreign keys and a busy timeout enabled.
func Open(ctx context.Context, databaseType, databaseURL string) (*sql.DB, error) {
	driver, dsn, err := driverFor(databaseType, databaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

func driverFor(databaseType, databaseURL string) (string, string, error) {
	switch databaseType {
	case cliparse.DatabasePostgres:
		return "postgres", databaseURL, nil
	case cliparse.DatabaseSQLite:
		return "sqlite", sqliteDSN(databaseURL), nil
	default:
		return "", "", fmt.Errorf("unsupported database type %q", databaseType)
	}
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Migrate applies all pending schema migrations.
// Safe to call multiple times - goose tracks applied versions.
func Migrate(ctx context.Context, conn *sql.DB, databaseType string) error {
	dialect := goose.DialectSQLite3
	if databaseType == cliparse.DatabasePostgres {
		dialect = goose.DialectPostgres
	}

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, conn, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	for _, r := range results {
		slog.Info("migration applied", "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}

	return nil
}
