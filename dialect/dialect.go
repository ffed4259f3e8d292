package dialect

import (
	"fmt"
	"strings"

	"github.com/guadalsistema/querybuilder/dialect/mysql"
	"github.com/guadalsistema/querybuilder/dialect/postgres"
	"github.com/guadalsistema/querybuilder/dialect/sqlite"
	"github.com/guadalsistema/querybuilder/typeconv"
)

// Dialect represents a SQL dialect (placeholder style and feature support).
type Dialect interface {
	// Name returns the canonical dialect name ("sqlite", "postgres", "mysql").
	Name() string

	// Placeholder returns the positional placeholder for the given 1-based
	// position, e.g. "?" for SQLite/MySQL and "$1" for Postgres.
	Placeholder(position int) string

	// SupportsReturning indicates if the dialect supports RETURNING clauses.
	SupportsReturning() bool

	// TypeRegistry returns the converters used to normalise driver values.
	TypeRegistry() *typeconv.Registry
}

// ByName returns a dialect by name.
func ByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return sqlite.NewSQLiteDialect(), nil
	case "postgres", "postgresql", "pgx":
		return postgres.NewPostgresDialect(), nil
	case "mysql":
		return mysql.NewMySQLDialect(), nil
	default:
		return nil, fmt.Errorf("unknown dialect: %s", name)
	}
}
