// Package migrations embeds the versioned schema and applies it with goose.
// The SQL is portable between SQLite and PostgreSQL: ids, dates, decimals
// and timestamps are TEXT.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Dialect maps a database/sql driver name to goose's dialect.
func Dialect(driver string) (goose.Dialect, error) {
	switch driver {
	case "sqlite3":
		return goose.DialectSQLite3, nil
	case "pgx", "postgres":
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

// NewProvider builds a goose provider over the embedded migrations.
func NewProvider(db *sql.DB, driver string) (*goose.Provider, error) {
	dialect, err := Dialect(driver)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, db, FS)
}

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	p, err := NewProvider(db, driver)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
