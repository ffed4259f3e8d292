package sqlite

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/guadalsistema/querybuilder/typeconv"
)

// SQLiteDialect implements the Dialect interface for SQLite.
type SQLiteDialect struct {
	registry *typeconv.Registry
}

// NewSQLiteDialect creates a SQLite dialect. SQLite stores timestamps as text
// or integers, so time targets need converters.
func NewSQLiteDialect() *SQLiteDialect {
	registry := typeconv.NewRegistry()
	registry.RegisterDefault(reflect.TypeOf(time.Time{}), typeconv.DefaultTimeConverter)
	registry.RegisterDefault(reflect.TypeOf(sql.NullTime{}), typeconv.DefaultNullTimeConverter)
	registry.RegisterDefault(reflect.TypeOf(false), typeconv.DefaultBoolConverter)
	return &SQLiteDialect{registry: registry}
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(position int) string {
	return "?"
}

func (d *SQLiteDialect) SupportsReturning() bool {
	return true // SQLite 3.35.0+ supports RETURNING
}

func (d *SQLiteDialect) TypeRegistry() *typeconv.Registry {
	if d.registry == nil {
		d.registry = typeconv.NewRegistry()
	}
	return d.registry
}
