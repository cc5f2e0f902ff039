// SPDX-License-Identifier: Apache-2.0

// Package migrations embeds and applies the database schema for both
// supported backends. The schema is duplicated per dialect because the type
// systems differ (BYTEA vs BLOB, sequences vs rowid autoincrement).
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var embedMigrations embed.FS

// Run applies all pending migrations for the given database/sql driver name
// ("pgx" or "sqlite3").
func Run(ctx context.Context, db *sql.DB, driver string) error {
	var dir, dialect string

	switch driver {
	case "pgx":
		dir, dialect = "postgres", "postgres"
	case "sqlite3":
		dir, dialect = "sqlite", "sqlite3"
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	sub, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return fmt.Errorf("sub migrations fs: %w", err)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
