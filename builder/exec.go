package builder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guadalsistema/querybuilder/typeconv"
)

// Get runs the SELECT and returns every row. The result is never nil.
func (b *QueryBuilder) Get(ctx context.Context) ([]Row, error) {
	stmt, err := b.Compile()
	if err != nil {
		return nil, err
	}
	rows, err := b.query(ctx, "get", stmt)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// First runs the SELECT with LIMIT 1. The stored limit is left untouched.
// ok is false when no row matched.
func (b *QueryBuilder) First(ctx context.Context) (row Row, ok bool, err error) {
	one := 1
	stmt, err := b.compileWith("first", selectOptions{limit: &one})
	if err != nil {
		return nil, false, err
	}
	rows, err := b.query(ctx, "first", stmt)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Count returns the number of rows the SELECT would produce.
func (b *QueryBuilder) Count(ctx context.Context) (int64, error) {
	stmt, err := b.CompileCount()
	if err != nil {
		return 0, err
	}
	rows, err := b.query(ctx, "count", stmt)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := typeconv.ToInt64(rows[0]["aggregate"])
	if err != nil {
		return 0, NewExecError("count", stmt.SQL, err)
	}
	return n, nil
}

// Exists reports whether the SELECT matches at least one row.
func (b *QueryBuilder) Exists(ctx context.Context) (bool, error) {
	stmt, err := b.CompileExists()
	if err != nil {
		return false, err
	}
	rows, err := b.query(ctx, "exists", stmt)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	found, err := typeconv.ToBool(rows[0]["result"])
	if err != nil {
		return false, NewExecError("exists", stmt.SQL, err)
	}
	return found, nil
}

// Insert adds one row. Where conditions are ignored.
func (b *QueryBuilder) Insert(ctx context.Context, data Data) error {
	stmt, err := b.CompileInsert(data)
	if err != nil {
		return err
	}
	_, err = b.exec(ctx, "insert", stmt)
	return err
}

// InsertBatch adds several rows in one statement.
func (b *QueryBuilder) InsertBatch(ctx context.Context, rows []Data) error {
	stmt, err := b.CompileInsertBatch(rows)
	if err != nil {
		return err
	}
	_, err = b.exec(ctx, "insertBatch", stmt)
	return err
}

// InsertGetID adds one row and returns its generated key. Dialects with
// RETURNING read idColumn back; the others use the driver's LastInsertId.
func (b *QueryBuilder) InsertGetID(ctx context.Context, data Data, idColumn string) (int64, error) {
	const op = "insertGetID"

	if b.conn != nil && b.conn.Dialect() != nil && b.conn.Dialect().SupportsReturning() && idColumn != "" {
		stmt, err := b.compileInsert(op, []Data{data}, idColumn)
		if err != nil {
			return 0, err
		}
		rows, err := b.query(ctx, op, stmt)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, NewExecError(op, stmt.SQL, fmt.Errorf("no row returned for %s", idColumn))
		}
		id, err := typeconv.ToInt64(rows[0][idColumn])
		if err != nil {
			return 0, NewExecError(op, stmt.SQL, err)
		}
		return id, nil
	}

	stmt, err := b.compileInsert(op, []Data{data}, "")
	if err != nil {
		return 0, err
	}
	res, err := b.exec(ctx, op, stmt)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, NewExecError(op, stmt.SQL, errors.New("connection returned no result"))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, NewExecError(op, stmt.SQL, err)
	}
	return id, nil
}

// Update sets data on every row matching the where conditions and returns the
// affected-row count.
//
// Execution failures are logged at WARN and reported as (0, nil), which
// cannot be told apart from "no row matched". Use UpdateStrict to get the
// error. Configuration errors are always returned.
func (b *QueryBuilder) Update(ctx context.Context, data Data) (int64, error) {
	n, err := b.UpdateStrict(ctx, data)
	return b.swallowExecError("update", n, err)
}

// UpdateStrict is Update with execution failures returned as *ExecError.
func (b *QueryBuilder) UpdateStrict(ctx context.Context, data Data) (int64, error) {
	stmt, err := b.CompileUpdate(data)
	if err != nil {
		return 0, err
	}
	if _, err := b.exec(ctx, "update", stmt); err != nil {
		return 0, err
	}
	return b.conn.RowCount(), nil
}

// Delete removes every row matching the where conditions and returns the
// affected-row count. Failures are handled like in Update.
func (b *QueryBuilder) Delete(ctx context.Context) (int64, error) {
	n, err := b.DeleteStrict(ctx)
	return b.swallowExecError("delete", n, err)
}

// DeleteStrict is Delete with execution failures returned as *ExecError.
func (b *QueryBuilder) DeleteStrict(ctx context.Context) (int64, error) {
	stmt, err := b.CompileDelete()
	if err != nil {
		return 0, err
	}
	if _, err := b.exec(ctx, "delete", stmt); err != nil {
		return 0, err
	}
	return b.conn.RowCount(), nil
}

func (b *QueryBuilder) swallowExecError(op string, n int64, err error) (int64, error) {
	var execErr *ExecError
	if err != nil && errors.As(err, &execErr) {
		b.logger().Warn("querybuilder: statement failed, reporting 0 affected rows",
			"op", op,
			"sql", execErr.SQL,
			"error", execErr.Err,
		)
		return 0, nil
	}
	return n, err
}

func (b *QueryBuilder) query(ctx context.Context, op string, stmt Statement) ([]Row, error) {
	if b.conn == nil {
		return nil, NewConfigError(op, ErrNilConnection)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewExecError(op, stmt.SQL, err)
	}
	rows, err := b.conn.Query(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return nil, NewExecError(op, stmt.SQL, err)
	}
	return rows, nil
}

func (b *QueryBuilder) exec(ctx context.Context, op string, stmt Statement) (sql.Result, error) {
	if b.conn == nil {
		return nil, NewConfigError(op, ErrNilConnection)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewExecError(op, stmt.SQL, err)
	}
	res, err := b.conn.Execute(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return nil, NewExecError(op, stmt.SQL, err)
	}
	return res, nil
}

func (b *QueryBuilder) logger() *slog.Logger {
	if b.conn != nil {
		if l := b.conn.Logger(); l != nil {
			return l
		}
	}
	return slog.Default()
}
