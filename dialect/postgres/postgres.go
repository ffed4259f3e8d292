package postgres

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/guadalsistema/querybuilder/typeconv"
)

// PostgresDialect implements the Dialect interface for PostgreSQL.
type PostgresDialect struct {
	registry *typeconv.Registry
}

// NewPostgresDialect creates a PostgreSQL dialect with type converters configured.
func NewPostgresDialect() *PostgresDialect {
	registry := typeconv.NewRegistry()

	// lib/pq and pgx return time.Time natively; the defaults only cover text
	// casts made in raw projections.
	registry.RegisterDefault(reflect.TypeOf(time.Time{}), typeconv.DefaultTimeConverter)
	registry.RegisterDefault(reflect.TypeOf(sql.NullTime{}), typeconv.DefaultNullTimeConverter)
	// lib/pq hands NUMERIC back as []byte.
	registry.RegisterDefault(reflect.TypeOf(float64(0)), typeconv.DefaultFloat64Converter)

	return &PostgresDialect{registry: registry}
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (d *PostgresDialect) SupportsReturning() bool {
	return true
}

// TypeRegistry returns the type converter registry for this dialect.
func (d *PostgresDialect) TypeRegistry() *typeconv.Registry {
	if d.registry == nil {
		d.registry = typeconv.NewRegistry()
	}
	return d.registry
}
