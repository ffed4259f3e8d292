package builder

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/guadalsistema/querybuilder/dialect"
)

// Params maps placeholder names (without the leading colon) to bound values.
type Params map[string]any

// Row is a single result row keyed by column name.
type Row map[string]any

// Data maps column names to values for INSERT and UPDATE.
type Data map[string]any

// RawSQL is a caller-written SQL fragment that bypasses structural checks.
//
// Only use it with trusted text. Values must go through named placeholders
// (":name") and the accompanying Params, never through string concatenation.
// Text inside quoted literals is never treated as a placeholder.
type RawSQL string

// Statement is a compiled SQL string together with its named bindings.
type Statement struct {
	SQL    string
	Params Params
}

// Connection is the database collaborator a QueryBuilder executes against.
// Builders borrow it; they never close it.
type Connection interface {
	// Dialect returns the SQL dialect, or nil when unknown.
	Dialect() dialect.Dialect

	// Logger returns the logger for warnings and SQL tracing (may be nil).
	Logger() *slog.Logger

	// Execute runs a statement using named ":name" placeholders.
	Execute(ctx context.Context, query string, params Params) (sql.Result, error)

	// Query runs a statement and returns every row.
	Query(ctx context.Context, query string, params Params) ([]Row, error)

	// RowCount returns the affected-row count of the last Execute.
	RowCount() int64

	BeginTransaction(ctx context.Context) error
	Commit() error
	RollBack() error
}
