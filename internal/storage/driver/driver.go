// Package driver abstracts the SQL engines sprintloop can persist to:
// SQLite for the default single-user setup, PostgreSQL for shared
// deployments.
package driver

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect identifies the database engine.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Driver abstracts database operations across dialects.
type Driver interface {
	Open(dsn string) error
	Close() error

	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)

	Dialect() Dialect
	// Placeholder renders the parameter marker for 1-based index: $1 for
	// Postgres, ? for SQLite.
	Placeholder(index int) string

	// DB exposes the raw handle for advanced operations.
	DB() *sql.DB
}

// New returns a driver for the given dialect.
func New(dialect Dialect) (Driver, error) {
	switch dialect {
	case DialectSQLite:
		return NewSQLite(), nil
	case DialectPostgres:
		return NewPostgres(), nil
	default:
		return nil, fmt.Errorf("unknown database dialect %q", dialect)
	}
}
