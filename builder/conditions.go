package builder

import (
	"fmt"
	"strings"
)

type conditionKind int

const (
	condCompare conditionKind = iota
	condNot
	condIn
	condNotIn
	condNull
	condNotNull
	condBetween
	condRaw
)

// condition is one AND-joined predicate of a WHERE or HAVING clause.
// Placeholder names are not chosen here; render allocates them from the
// statement's paramSet.
type condition struct {
	kind     conditionKind
	column   string
	operator string
	values   []any
	raw      RawSQL
	params   Params
}

// alwaysFalse is emitted for WhereIn with an empty list.
const alwaysFalse = "1 = 0"

var allowedOperators = map[string]bool{
	"=": true, "!=": true, "<>": true, "<": true, ">": true, "<=": true, ">=": true,
	"LIKE": true, "NOT LIKE": true, "ILIKE": true, "NOT ILIKE": true,
	"IS": true, "IS NOT": true,
}

// normalizeOperator upper-cases and validates op. An empty op means "=".
func normalizeOperator(op string) (string, error) {
	op = strings.ToUpper(strings.Join(strings.Fields(op), " "))
	if op == "" {
		return "=", nil
	}
	if !allowedOperators[op] {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return op, nil
}

// render returns the SQL text of c, or "" when c adds no restriction.
func (c condition) render(p *paramSet) (string, error) {
	switch c.kind {
	case condCompare:
		return c.column + " " + c.operator + " " + p.bind(c.column, c.values[0]), nil
	case condNot:
		return "NOT (" + c.column + " " + c.operator + " " + p.bind(c.column, c.values[0]) + ")", nil
	case condIn, condNotIn:
		if len(c.values) == 0 {
			if c.kind == condIn {
				return alwaysFalse, nil
			}
			return "", nil
		}
		placeholders := make([]string, len(c.values))
		for i, v := range c.values {
			placeholders[i] = p.bind(c.column, v)
		}
		op := " IN ("
		if c.kind == condNotIn {
			op = " NOT IN ("
		}
		return c.column + op + strings.Join(placeholders, ", ") + ")", nil
	case condNull:
		return c.column + " IS NULL", nil
	case condNotNull:
		return c.column + " IS NOT NULL", nil
	case condBetween:
		low := p.bind(c.column, c.values[0])
		high := p.bind(c.column, c.values[1])
		return c.column + " BETWEEN " + low + " AND " + high, nil
	case condRaw:
		return p.bindRaw(c.raw, c.params)
	default:
		return "", fmt.Errorf("unknown condition kind %d", c.kind)
	}
}

// renderConditions AND-joins conds, skipping those that add no restriction.
func renderConditions(conds []condition, p *paramSet) (string, error) {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		sql, err := c.render(p)
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, sql)
		}
	}
	return strings.Join(parts, " AND "), nil
}

func (c condition) clone() condition {
	out := c
	if c.values != nil {
		out.values = append([]any(nil), c.values...)
	}
	if c.params != nil {
		out.params = make(Params, len(c.params))
		for k, v := range c.params {
			out.params[k] = v
		}
	}
	return out
}
