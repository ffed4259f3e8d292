package builder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// selectOptions overrides parts of the stored state for one compilation
// without touching the builder.
type selectOptions struct {
	columns   []string
	limit     *int
	skipOrder bool
	skipPage  bool
}

// Compile renders the SELECT statement. It is pure: compiling the same builder
// twice yields the same SQL and the same parameter names.
func (b *QueryBuilder) Compile() (Statement, error) {
	return b.compileWith("compile", selectOptions{})
}

// CompileCount renders the row-count variant of the SELECT. Distinct, grouped,
// limited or unioned statements are counted through a derived table.
func (b *QueryBuilder) CompileCount() (Statement, error) {
	if err := b.validate("count"); err != nil {
		return Statement{}, err
	}
	p := newParamSet()

	if !b.distinct && len(b.groupBy) == 0 && len(b.havings) == 0 && len(b.unions) == 0 && b.limit == nil && b.offset == nil {
		sql, err := b.renderSelect(p, selectOptions{
			columns:   []string{"COUNT(*) AS aggregate"},
			skipOrder: true,
			skipPage:  true,
		})
		if err != nil {
			return Statement{}, NewConfigError("count", err)
		}
		return Statement{SQL: sql, Params: p.values}, nil
	}

	inner, err := b.renderSelect(p, selectOptions{})
	if err != nil {
		return Statement{}, NewConfigError("count", err)
	}
	return Statement{
		SQL:    "SELECT COUNT(*) AS aggregate FROM (" + inner + ") AS aggregate_table",
		Params: p.values,
	}, nil
}

// CompileExists renders "SELECT EXISTS(<select LIMIT 1>) AS result".
func (b *QueryBuilder) CompileExists() (Statement, error) {
	if err := b.validate("exists"); err != nil {
		return Statement{}, err
	}
	p := newParamSet()

	opts := selectOptions{}
	if len(b.unions) == 0 {
		one := 1
		opts.limit = &one
	}
	inner, err := b.renderSelect(p, opts)
	if err != nil {
		return Statement{}, NewConfigError("exists", err)
	}
	return Statement{SQL: "SELECT EXISTS(" + inner + ") AS result", Params: p.values}, nil
}

// CompileInsert renders "INSERT INTO t (a, b) VALUES (:a, :b)". Columns are
// emitted in sorted order.
func (b *QueryBuilder) CompileInsert(data Data) (Statement, error) {
	return b.compileInsert("insert", []Data{data}, "")
}

// CompileInsertBatch renders a multi-row INSERT. The column list is the
// sorted union of every row's keys; absent values bind NULL.
func (b *QueryBuilder) CompileInsertBatch(rows []Data) (Statement, error) {
	return b.compileInsert("insertBatch", rows, "")
}

// CompileUpdate renders "UPDATE t SET a = :a WHERE ...". At least one where
// condition is required, and clauses UPDATE cannot carry are refused.
func (b *QueryBuilder) CompileUpdate(data Data) (Statement, error) {
	const op = "update"
	if err := b.validate(op); err != nil {
		return Statement{}, err
	}
	if err := b.checkMutationClauses(op); err != nil {
		return Statement{}, err
	}
	if len(b.wheres) == 0 {
		return Statement{}, NewConfigError(op, ErrMissingWhere)
	}
	if len(data) == 0 {
		return Statement{}, NewConfigError(op, ErrEmptyData)
	}

	p := newParamSet()
	columns := sortedKeys(data)
	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = col + " = " + p.bind(col, data[col])
	}

	where, err := b.renderMutationWhere(op, p)
	if err != nil {
		return Statement{}, err
	}

	sql := "UPDATE " + b.table + " SET " + strings.Join(assignments, ", ") + " WHERE " + where
	return Statement{SQL: sql, Params: p.values}, nil
}

// CompileDelete renders "DELETE FROM t WHERE ...". At least one where
// condition is required.
func (b *QueryBuilder) CompileDelete() (Statement, error) {
	const op = "delete"
	if err := b.validate(op); err != nil {
		return Statement{}, err
	}
	if err := b.checkMutationClauses(op); err != nil {
		return Statement{}, err
	}
	if len(b.wheres) == 0 {
		return Statement{}, NewConfigError(op, ErrMissingWhere)
	}

	p := newParamSet()
	where, err := b.renderMutationWhere(op, p)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DELETE FROM " + b.table + " WHERE " + where, Params: p.values}, nil
}

func (b *QueryBuilder) compileWith(op string, opts selectOptions) (Statement, error) {
	if err := b.validate(op); err != nil {
		return Statement{}, err
	}
	p := newParamSet()
	sql, err := b.renderSelect(p, opts)
	if err != nil {
		return Statement{}, NewConfigError(op, err)
	}
	return Statement{SQL: sql, Params: p.values}, nil
}

// validate reports the deferred chaining error, then a missing table.
func (b *QueryBuilder) validate(op string) error {
	if b.err != nil {
		return b.err
	}
	if b.table == "" {
		return NewConfigError(op, ErrMissingTable)
	}
	return nil
}

// renderSelect writes one SELECT, followed by its unions, allocating every
// placeholder from p.
func (b *QueryBuilder) renderSelect(p *paramSet, opts selectOptions) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.table == "" {
		return "", ErrMissingTable
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if b.distinct {
		sql.WriteString("DISTINCT ")
	}

	columns := opts.columns
	if columns == nil {
		columns = b.columns
	}
	if len(columns) > 0 {
		sql.WriteString(strings.Join(columns, ", "))
	} else {
		sql.WriteString("*")
	}

	sql.WriteString(" FROM ")
	sql.WriteString(b.table)

	for _, j := range b.joins {
		joinSQL, err := j.render(p)
		if err != nil {
			return "", err
		}
		sql.WriteString(" ")
		sql.WriteString(joinSQL)
	}

	where, err := renderConditions(b.wheres, p)
	if err != nil {
		return "", err
	}
	if where != "" {
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}

	if len(b.groupBy) > 0 {
		sql.WriteString(" GROUP BY ")
		sql.WriteString(strings.Join(b.groupBy, ", "))
	}

	having, err := renderConditions(b.havings, p)
	if err != nil {
		return "", err
	}
	if having != "" {
		sql.WriteString(" HAVING ")
		sql.WriteString(having)
	}

	if len(b.orderBy) > 0 && !opts.skipOrder {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			parts[i] = o.column + " " + string(o.direction)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(parts, ", "))
	}

	if !opts.skipPage {
		limit := b.limit
		if opts.limit != nil {
			limit = opts.limit
		}
		if limit != nil {
			sql.WriteString(" LIMIT ")
			sql.WriteString(strconv.Itoa(*limit))
			if b.offset != nil {
				sql.WriteString(" OFFSET ")
				sql.WriteString(strconv.Itoa(*b.offset))
			}
		}
	}

	for _, u := range b.unions {
		nested, err := u.query.renderSelect(p, selectOptions{})
		if err != nil {
			return "", fmt.Errorf("union: %w", err)
		}
		if u.all {
			sql.WriteString(" UNION ALL ")
		} else {
			sql.WriteString(" UNION ")
		}
		sql.WriteString(nested)
	}

	return sql.String(), nil
}

// checkMutationClauses refuses SELECT-only clauses on UPDATE/DELETE instead
// of dropping them from the rendered statement.
func (b *QueryBuilder) checkMutationClauses(op string) error {
	var clause string
	switch {
	case b.distinct:
		clause = "distinct"
	case len(b.joins) > 0:
		clause = "join"
	case len(b.groupBy) > 0:
		clause = "group by"
	case len(b.havings) > 0:
		clause = "having"
	case len(b.orderBy) > 0:
		clause = "order by"
	case b.limit != nil:
		clause = "limit"
	case b.offset != nil:
		clause = "offset"
	case len(b.unions) > 0:
		clause = "union"
	default:
		return nil
	}
	return NewConfigError(op, fmt.Errorf("%w: %s", ErrUnsupportedClause, clause))
}

// renderMutationWhere renders the WHERE of UPDATE/DELETE. A where list that
// renders to nothing (only empty WhereNotIn calls) is refused like a missing
// one.
func (b *QueryBuilder) renderMutationWhere(op string, p *paramSet) (string, error) {
	where, err := renderConditions(b.wheres, p)
	if err != nil {
		return "", NewConfigError(op, err)
	}
	if where == "" {
		return "", NewConfigError(op, ErrMissingWhere)
	}
	return where, nil
}

func (b *QueryBuilder) compileInsert(op string, rows []Data, returning string) (Statement, error) {
	if err := b.validate(op); err != nil {
		return Statement{}, err
	}
	if len(rows) == 0 {
		return Statement{}, NewConfigError(op, ErrEmptyData)
	}

	colSet := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			colSet[col] = struct{}{}
		}
	}
	if len(colSet) == 0 {
		return Statement{}, NewConfigError(op, ErrEmptyData)
	}
	columns := make([]string, 0, len(colSet))
	for col := range colSet {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	p := newParamSet()
	tuples := make([]string, len(rows))
	for i, row := range rows {
		placeholders := make([]string, len(columns))
		for j, col := range columns {
			placeholders[j] = p.bind(col, row[col])
		}
		tuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(b.table)
	sql.WriteString(" (")
	sql.WriteString(strings.Join(columns, ", "))
	sql.WriteString(") VALUES ")
	sql.WriteString(strings.Join(tuples, ", "))
	if returning != "" {
		sql.WriteString(" RETURNING ")
		sql.WriteString(returning)
	}
	return Statement{SQL: sql.String(), Params: p.values}, nil
}

func sortedKeys(data Data) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
