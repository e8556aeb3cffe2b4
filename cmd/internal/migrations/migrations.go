// Package migrations embeds the posts schema for each supported SQL dialect.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql mysql/*.sql
var files embed.FS

// FS returns the migration files for dialect ("postgres" or "mysql").
func FS(dialect string) (fs.FS, error) {
	switch dialect {
	case "postgres", "mysql":
		return fs.Sub(files, dialect)
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
}

// Up applies all pending migrations for dialect.
func Up(db *sql.DB, dialect string) error {
	migrationsFS, err := FS(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
