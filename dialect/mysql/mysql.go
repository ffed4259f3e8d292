package mysql

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/guadalsistema/querybuilder/typeconv"
)

// MySQLDialect implements the Dialect interface for MySQL.
type MySQLDialect struct {
	registry *typeconv.Registry
}

// NewMySQLDialect creates a MySQL dialect. Without parseTime the driver hands
// back []byte for text and temporal columns.
func NewMySQLDialect() *MySQLDialect {
	registry := typeconv.NewRegistry()
	registry.RegisterNormalizer(reflect.TypeOf([]byte(nil)), typeconv.BytesToString)
	registry.RegisterDefault(reflect.TypeOf(time.Time{}), typeconv.DefaultTimeConverter)
	registry.RegisterDefault(reflect.TypeOf(sql.NullTime{}), typeconv.DefaultNullTimeConverter)
	registry.RegisterDefault(reflect.TypeOf(false), typeconv.DefaultBoolConverter)
	registry.RegisterDefault(reflect.TypeOf(int64(0)), typeconv.DefaultInt64Converter)
	registry.RegisterDefault(reflect.TypeOf(float64(0)), typeconv.DefaultFloat64Converter)
	return &MySQLDialect{registry: registry}
}

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) Placeholder(position int) string {
	return "?"
}

func (d *MySQLDialect) SupportsReturning() bool {
	return false // MySQL doesn't support RETURNING
}

func (d *MySQLDialect) TypeRegistry() *typeconv.Registry {
	if d.registry == nil {
		d.registry = typeconv.NewRegistry()
	}
	return d.registry
}
