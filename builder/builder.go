// Package builder provides a fluent SQL query builder that compiles into
// statements with named parameters and executes them on a borrowed Connection.
//
//	rows, err := builder.New(conn).
//		Table("orders").
//		WhereIn("status", []any{"paid", "shipped"}).
//		OrderBy("created_at", "DESC").
//		Limit(10).
//		Get(ctx)
//
// A QueryBuilder is mutable and not safe for concurrent use. Build one per
// statement, or Clone a shared base before specialising it.
package builder

import (
	"fmt"
	"strings"
)

// JoinKind is the type of a JOIN clause.
type JoinKind string

const (
	InnerJoin JoinKind = "INNER"
	LeftJoin  JoinKind = "LEFT"
	RightJoin JoinKind = "RIGHT"
)

// Direction is an ORDER BY direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection normalises s to ASC or DESC. Anything else is ASC.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

type joinClause struct {
	kind     JoinKind
	table    string
	left     string
	operator string
	right    string
	raw      RawSQL
	params   Params
}

type orderClause struct {
	column    string
	direction Direction
}

type unionClause struct {
	query *QueryBuilder
	all   bool
}

// QueryBuilder accumulates the clauses of one statement.
type QueryBuilder struct {
	conn Connection

	table    string
	distinct bool
	columns  []string
	joins    []joinClause
	wheres   []condition
	groupBy  []string
	havings  []condition
	orderBy  []orderClause
	limit    *int
	offset   *int
	unions   []unionClause

	// err holds the first configuration error recorded while chaining.
	err error
}

// New creates a builder bound to conn.
func New(conn Connection) *QueryBuilder {
	return &QueryBuilder{conn: conn}
}

// Connection returns the connection the builder executes against.
func (b *QueryBuilder) Connection() Connection {
	return b.conn
}

// Clone returns a deep copy that can be mutated independently.
func (b *QueryBuilder) Clone() *QueryBuilder {
	out := *b
	out.columns = append([]string(nil), b.columns...)
	out.groupBy = append([]string(nil), b.groupBy...)
	out.orderBy = append([]orderClause(nil), b.orderBy...)

	out.joins = make([]joinClause, len(b.joins))
	for i, j := range b.joins {
		out.joins[i] = j
		if j.params != nil {
			out.joins[i].params = copyParams(j.params)
		}
	}

	out.wheres = cloneConditions(b.wheres)
	out.havings = cloneConditions(b.havings)

	if b.limit != nil {
		n := *b.limit
		out.limit = &n
	}
	if b.offset != nil {
		n := *b.offset
		out.offset = &n
	}

	out.unions = make([]unionClause, len(b.unions))
	for i, u := range b.unions {
		out.unions[i] = unionClause{query: u.query.Clone(), all: u.all}
	}
	return &out
}

// Table sets the target table.
func (b *QueryBuilder) Table(name string) *QueryBuilder {
	b.table = strings.TrimSpace(name)
	return b
}

// Select replaces the projection list. No columns means "*".
func (b *QueryBuilder) Select(columns ...string) *QueryBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

// AddSelect appends columns to the projection list.
func (b *QueryBuilder) AddSelect(columns ...string) *QueryBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Distinct turns the statement into SELECT DISTINCT.
func (b *QueryBuilder) Distinct() *QueryBuilder {
	b.distinct = true
	return b
}

// Where appends "column OP :param". The operator defaults to "=".
func (b *QueryBuilder) Where(column string, value any, operator ...string) *QueryBuilder {
	return b.addCompare(&b.wheres, condCompare, "where", column, value, operator)
}

// WhereNot appends "NOT (column OP :param)".
func (b *QueryBuilder) WhereNot(column string, value any, operator ...string) *QueryBuilder {
	return b.addCompare(&b.wheres, condNot, "whereNot", column, value, operator)
}

// WhereIn appends "column IN (...)" with one placeholder per value.
//
// An empty values list compiles to the always-false predicate "1 = 0", so the
// statement matches no rows. WhereNotIn treats an empty list differently.
func (b *QueryBuilder) WhereIn(column string, values []any) *QueryBuilder {
	b.wheres = append(b.wheres, condition{kind: condIn, column: column, values: append([]any(nil), values...)})
	return b
}

// WhereNotIn appends "column NOT IN (...)".
//
// An empty values list adds no restriction at all: NOT IN of the empty set is
// true for every row. Callers relying on "matches nothing" want WhereIn.
func (b *QueryBuilder) WhereNotIn(column string, values []any) *QueryBuilder {
	b.wheres = append(b.wheres, condition{kind: condNotIn, column: column, values: append([]any(nil), values...)})
	return b
}

// WhereNull appends "column IS NULL".
func (b *QueryBuilder) WhereNull(column string) *QueryBuilder {
	b.wheres = append(b.wheres, condition{kind: condNull, column: column})
	return b
}

// WhereNotNull appends "column IS NOT NULL".
func (b *QueryBuilder) WhereNotNull(column string) *QueryBuilder {
	b.wheres = append(b.wheres, condition{kind: condNotNull, column: column})
	return b
}

// WhereBetween appends "column BETWEEN :low AND :high".
func (b *QueryBuilder) WhereBetween(column string, low, high any) *QueryBuilder {
	b.wheres = append(b.wheres, condition{kind: condBetween, column: column, values: []any{low, high}})
	return b
}

// WhereRaw appends a caller-written predicate. Placeholders in fragment use
// the ":name" form and are bound from params; names that clash with other
// bindings of the statement are renamed automatically.
//
// Conditions are always AND-joined; use a raw fragment for OR groups.
func (b *QueryBuilder) WhereRaw(fragment RawSQL, params Params) *QueryBuilder {
	b.wheres = append(b.wheres, condition{kind: condRaw, raw: fragment, params: copyParams(params)})
	return b
}

// GroupBy appends GROUP BY columns.
func (b *QueryBuilder) GroupBy(columns ...string) *QueryBuilder {
	b.groupBy = append(b.groupBy, columns...)
	return b
}

// Having appends "column OP :param" to the HAVING clause.
func (b *QueryBuilder) Having(column string, value any, operator ...string) *QueryBuilder {
	return b.addCompare(&b.havings, condCompare, "having", column, value, operator)
}

// HavingRaw appends a caller-written HAVING predicate. See WhereRaw.
func (b *QueryBuilder) HavingRaw(fragment RawSQL, params Params) *QueryBuilder {
	b.havings = append(b.havings, condition{kind: condRaw, raw: fragment, params: copyParams(params)})
	return b
}

// OrderBy appends an ORDER BY column. direction is normalised to ASC or DESC;
// unrecognised values fall back to ASC.
func (b *QueryBuilder) OrderBy(column string, direction string) *QueryBuilder {
	b.orderBy = append(b.orderBy, orderClause{column: column, direction: ParseDirection(direction)})
	return b
}

// OrderByDesc appends "column DESC".
func (b *QueryBuilder) OrderByDesc(column string) *QueryBuilder {
	b.orderBy = append(b.orderBy, orderClause{column: column, direction: Desc})
	return b
}

// Limit sets the LIMIT.
func (b *QueryBuilder) Limit(n int) *QueryBuilder {
	if n < 0 {
		b.setErr("limit", fmt.Errorf("%w: limit %d", ErrInvalidLimit, n))
		return b
	}
	b.limit = &n
	return b
}

// Offset sets the OFFSET. It is only rendered together with a LIMIT.
func (b *QueryBuilder) Offset(n int) *QueryBuilder {
	if n < 0 {
		b.setErr("offset", fmt.Errorf("%w: offset %d", ErrInvalidLimit, n))
		return b
	}
	b.offset = &n
	return b
}

// Paginate sets LIMIT perPage OFFSET (page-1)*perPage. page is 1-based;
// non-positive arguments leave the builder unchanged.
func (b *QueryBuilder) Paginate(page, perPage int) *QueryBuilder {
	if page <= 0 || perPage <= 0 {
		return b
	}
	return b.Limit(perPage).Offset((page - 1) * perPage)
}

// Union appends other as "UNION <other>". A clone of other is stored, so
// later changes to other do not affect this builder.
func (b *QueryBuilder) Union(other *QueryBuilder) *QueryBuilder {
	if other != nil {
		b.unions = append(b.unions, unionClause{query: other.Clone()})
	}
	return b
}

// UnionAll appends other as "UNION ALL <other>".
func (b *QueryBuilder) UnionAll(other *QueryBuilder) *QueryBuilder {
	if other != nil {
		b.unions = append(b.unions, unionClause{query: other.Clone(), all: true})
	}
	return b
}

// Err returns the first configuration error recorded while chaining.
func (b *QueryBuilder) Err() error {
	return b.err
}

func (b *QueryBuilder) addCompare(dst *[]condition, kind conditionKind, op, column string, value any, operator []string) *QueryBuilder {
	rawOp := ""
	if len(operator) > 0 {
		rawOp = operator[0]
	}
	normalized, err := normalizeOperator(rawOp)
	if err != nil {
		b.setErr(op, err)
		return b
	}
	*dst = append(*dst, condition{kind: kind, column: column, operator: normalized, values: []any{value}})
	return b
}

func (b *QueryBuilder) setErr(op string, err error) {
	if b.err == nil {
		b.err = NewConfigError(op, err)
	}
}

func cloneConditions(in []condition) []condition {
	if in == nil {
		return nil
	}
	out := make([]condition, len(in))
	for i, c := range in {
		out[i] = c.clone()
	}
	return out
}

func copyParams(in Params) Params {
	if in == nil {
		return nil
	}
	out := make(Params, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
