package engine

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/guadalsistema/querybuilder/builder"
	"github.com/guadalsistema/querybuilder/dialect"
	"github.com/guadalsistema/querybuilder/typeconv"
)

// Connection represents a database connection/transaction context. It
// implements builder.Connection and is not safe for concurrent use.
type Connection struct {
	engine   *Engine
	db       *sqlx.DB
	tx       *sqlx.Tx
	rowCount int64
}

var _ builder.Connection = (*Connection)(nil)

// Table starts a query builder bound to this connection.
func (c *Connection) Table(name string) *builder.QueryBuilder {
	return builder.New(c).Table(name)
}

// Dialect returns the engine dialect.
func (c *Connection) Dialect() dialect.Dialect {
	return c.engine.Dialect()
}

// Logger returns the engine logger (may be nil).
func (c *Connection) Logger() *slog.Logger {
	return c.engine.Logger()
}

// Execute runs a statement written with ":name" placeholders and records its
// affected-row count.
func (c *Connection) Execute(ctx context.Context, query string, params builder.Params) (sql.Result, error) {
	bound, args, err := c.bind(query, params)
	if err != nil {
		return nil, err
	}
	res, err := c.ext().ExecContext(ctx, bound, args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	c.rowCount = affected
	return res, nil
}

// Query runs a statement written with ":name" placeholders and returns every
// row, with driver values normalised by the dialect.
func (c *Connection) Query(ctx context.Context, query string, params builder.Params) ([]builder.Row, error) {
	bound, args, err := c.bind(query, params)
	if err != nil {
		return nil, err
	}
	rows, err := c.ext().QueryxContext(ctx, bound, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registry := c.registry()
	out := []builder.Row{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for column, value := range row {
			normalized, err := registry.Normalize(value)
			if err != nil {
				return nil, err
			}
			row[column] = normalized
		}
		out = append(out, builder.Row(row))
	}
	return out, rows.Err()
}

// RowCount returns the affected-row count of the last Execute.
func (c *Connection) RowCount() int64 {
	return c.rowCount
}

// BeginTransaction starts a transaction on the connection.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	if c.tx != nil {
		return ErrAlreadyInTransaction
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// Commit commits the transaction.
func (c *Connection) Commit() error {
	if c.tx == nil {
		return ErrNotInTransaction
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// RollBack rolls back the transaction.
func (c *Connection) RollBack() error {
	if c.tx == nil {
		return ErrNotInTransaction
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// InTransaction returns true if the connection is in a transaction.
func (c *Connection) InTransaction() bool {
	return c.tx != nil
}

// Close rolls back a pending transaction. The engine pool stays open.
func (c *Connection) Close() error {
	if c.tx != nil {
		return c.RollBack()
	}
	return nil
}

// Engine returns the underlying engine.
func (c *Connection) Engine() *Engine {
	return c.engine
}

func (c *Connection) registry() *typeconv.Registry {
	if d := c.Dialect(); d != nil {
		return d.TypeRegistry()
	}
	return nil
}

func (c *Connection) ext() sqlx.ExtContext {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// bind compiles ":name" placeholders into positional arguments for the
// dialect. "::" casts and colons inside quoted literals survive the
// named-parameter pass.
func (c *Connection) bind(query string, params builder.Params) (string, []interface{}, error) {
	named, args, err := sqlx.Named(escapeColons(query), map[string]interface{}(params))
	if err != nil {
		return "", nil, err
	}
	formatted := named
	if d := c.Dialect(); d != nil {
		formatted = FormatPlaceholders(named, d)
	}
	logSQLTransform(c.Logger(), query, formatted, args)
	return formatted, args, nil
}

// escapeColons doubles the colons sqlx.Named must emit literally: every colon
// inside a quoted span and every "::" cast outside one.
func escapeColons(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	splitQuoted(query, func(part string, quoted bool) {
		if quoted {
			b.WriteString(strings.ReplaceAll(part, ":", "::"))
			return
		}
		b.WriteString(strings.ReplaceAll(part, "::", "::::"))
	})
	return b.String()
}

// FormatPlaceholders converts ? placeholders to driver-specific format.
// Question marks inside quoted literals are kept.
func FormatPlaceholders(sql string, d dialect.Dialect) string {
	position := 1
	var b strings.Builder
	b.Grow(len(sql))
	splitQuoted(sql, func(part string, quoted bool) {
		if quoted {
			b.WriteString(part)
			return
		}
		for i := 0; i < len(part); i++ {
			if part[i] == '?' {
				b.WriteString(d.Placeholder(position))
				position++
				continue
			}
			b.WriteByte(part[i])
		}
	})
	return b.String()
}

// splitQuoted hands fn the runs of sql in order, flagging those wrapped in
// single, double or back quotes. An unterminated quote runs to the end.
func splitQuoted(sql string, fn func(part string, quoted bool)) {
	for sql != "" {
		start := strings.IndexAny(sql, "'\"`")
		if start < 0 {
			fn(sql, false)
			return
		}
		if start > 0 {
			fn(sql[:start], false)
		}
		end := strings.IndexByte(sql[start+1:], sql[start])
		if end < 0 {
			fn(sql[start:], true)
			return
		}
		fn(sql[start:start+end+2], true)
		sql = sql[start+end+2:]
	}
}

func logSQLTransform(logger *slog.Logger, rawSQL string, formattedSQL string, args []interface{}) {
	if logger == nil {
		return
	}
	if rawSQL == formattedSQL {
		logger.Debug("querybuilder: sql built", "sql", formattedSQL, "args_len", len(args))
		return
	}
	logger.Debug("querybuilder: sql placeholders formatted", "raw_sql", rawSQL, "sql", formattedSQL, "args_len", len(args))
}
