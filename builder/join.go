package builder

import (
	"fmt"
	"strings"
)

// Join adds "INNER JOIN table ON left OP right". left and right are column
// references, not values.
func (b *QueryBuilder) Join(table, left, operator, right string) *QueryBuilder {
	return b.addJoin(InnerJoin, table, left, operator, right)
}

// LeftJoin adds "LEFT JOIN table ON left OP right".
func (b *QueryBuilder) LeftJoin(table, left, operator, right string) *QueryBuilder {
	return b.addJoin(LeftJoin, table, left, operator, right)
}

// RightJoin adds "RIGHT JOIN table ON left OP right".
func (b *QueryBuilder) RightJoin(table, left, operator, right string) *QueryBuilder {
	return b.addJoin(RightJoin, table, left, operator, right)
}

// JoinRaw adds a join whose ON condition is a caller-written fragment with
// named placeholders bound from params.
func (b *QueryBuilder) JoinRaw(kind JoinKind, table string, on RawSQL, params Params) *QueryBuilder {
	if !validJoinKind(kind) {
		b.setErr("join", fmt.Errorf("%w: unknown kind %q", ErrInvalidJoin, kind))
		return b
	}
	table = strings.TrimSpace(table)
	if table == "" || strings.TrimSpace(string(on)) == "" {
		b.setErr("join", fmt.Errorf("%w: table and condition are required", ErrInvalidJoin))
		return b
	}
	b.joins = append(b.joins, joinClause{kind: kind, table: table, raw: on, params: copyParams(params)})
	return b
}

func (b *QueryBuilder) addJoin(kind JoinKind, table, left, operator, right string) *QueryBuilder {
	table = strings.TrimSpace(table)
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	if table == "" || left == "" || right == "" {
		b.setErr("join", fmt.Errorf("%w: table and both columns are required", ErrInvalidJoin))
		return b
	}
	op, err := normalizeOperator(operator)
	if err != nil {
		b.setErr("join", err)
		return b
	}
	b.joins = append(b.joins, joinClause{kind: kind, table: table, left: left, operator: op, right: right})
	return b
}

func (j joinClause) render(p *paramSet) (string, error) {
	prefix := string(j.kind) + " JOIN " + j.table + " ON "
	if j.raw != "" {
		on, err := p.bindRaw(j.raw, j.params)
		if err != nil {
			return "", err
		}
		return prefix + on, nil
	}
	return prefix + j.left + " " + j.operator + " " + j.right, nil
}

func validJoinKind(kind JoinKind) bool {
	switch kind {
	case InnerJoin, LeftJoin, RightJoin:
		return true
	}
	return false
}
