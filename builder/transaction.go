package builder

import "context"

// BeginTransaction starts a transaction on the connection.
func (b *QueryBuilder) BeginTransaction(ctx context.Context) error {
	if b.conn == nil {
		return NewConfigError("begin", ErrNilConnection)
	}
	if err := b.conn.BeginTransaction(ctx); err != nil {
		return NewExecError("begin", "", err)
	}
	return nil
}

// Commit commits the connection's current transaction.
func (b *QueryBuilder) Commit() error {
	if b.conn == nil {
		return NewConfigError("commit", ErrNilConnection)
	}
	if err := b.conn.Commit(); err != nil {
		return NewExecError("commit", "", err)
	}
	return nil
}

// RollBack rolls back the connection's current transaction.
func (b *QueryBuilder) RollBack() error {
	if b.conn == nil {
		return NewConfigError("rollback", ErrNilConnection)
	}
	if err := b.conn.RollBack(); err != nil {
		return NewExecError("rollback", "", err)
	}
	return nil
}

// Transaction runs fn inside a transaction. fn receives b itself, so a table
// and clauses set before the call carry over; use New(tx.Connection()) for
// further statements.
//
// The transaction is committed when fn returns nil. When fn returns an error it
// is rolled back once and that error is returned unchanged. A panic in fn
// rolls back and re-panics. Nested transactions are not supported.
func (b *QueryBuilder) Transaction(ctx context.Context, fn func(tx *QueryBuilder) error) error {
	if err := b.BeginTransaction(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.rollbackQuietly()
			panic(r)
		}
	}()

	if err := fn(b); err != nil {
		b.rollbackQuietly()
		return err
	}
	return b.Commit()
}

// InTransaction is Transaction for callbacks that produce a value. The value
// is returned only when the commit succeeded.
func InTransaction[T any](ctx context.Context, b *QueryBuilder, fn func(tx *QueryBuilder) (T, error)) (T, error) {
	var out T
	err := b.Transaction(ctx, func(tx *QueryBuilder) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (b *QueryBuilder) rollbackQuietly() {
	if err := b.conn.RollBack(); err != nil {
		b.logger().Warn("querybuilder: rollback failed", "error", err)
	}
}
