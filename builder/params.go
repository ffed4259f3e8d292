package builder

import (
	"fmt"
	"strconv"
	"strings"
)

// paramSet allocates placeholder names for one compiled statement. Every
// allocation checks the whole set, so names stay unique across joins, where,
// having, assignments and merged unions.
type paramSet struct {
	values Params
}

func newParamSet() *paramSet {
	return &paramSet{values: Params{}}
}

// bind stores value under a fresh name derived from column and returns the
// placeholder text.
func (p *paramSet) bind(column string, value any) string {
	name := p.reserve(paramBase(column))
	p.values[name] = value
	return ":" + name
}

// reserve returns base, or base_N for the first N that is still free.
func (p *paramSet) reserve(base string) string {
	if _, taken := p.values[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if _, taken := p.values[candidate]; !taken {
			return candidate
		}
	}
}

// bindRaw merges the bindings of a raw fragment. Placeholders whose name is
// already taken are renamed in the returned text.
func (p *paramSet) bindRaw(fragment RawSQL, params Params) (string, error) {
	bound := make(Params, len(params))
	for k, v := range params {
		bound[strings.TrimPrefix(k, ":")] = v
	}

	renamed := make(map[string]string)
	var missing string
	out := rewritePlaceholders(string(fragment), func(name string) string {
		if target, ok := renamed[name]; ok {
			return target
		}
		value, ok := bound[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return name
		}
		target := p.reserve(name)
		p.values[target] = value
		renamed[name] = target
		return target
	})
	if missing != "" {
		return "", fmt.Errorf("%w: :%s", ErrUnboundParameter, missing)
	}
	return out, nil
}

// paramBase turns a column expression into a placeholder-safe identifier:
// "users.email" -> "users_email", "COUNT(id)" -> "COUNT_id".
func paramBase(column string) string {
	var b strings.Builder
	b.Grow(len(column))
	pendingSep := false
	for i := 0; i < len(column); i++ {
		c := column[i]
		if isIdentByte(c) && c != '_' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteByte(c)
			continue
		}
		pendingSep = true
	}

	name := b.String()
	if name == "" {
		return "p"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "p" + name
	}
	return name
}

// rewritePlaceholders walks fragment and replaces every ":name" placeholder
// with ":"+rename(name). Quoted text and "::" casts are left untouched.
func rewritePlaceholders(fragment string, rename func(string) string) string {
	var b strings.Builder
	b.Grow(len(fragment))

	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(fragment[i+1:], c)
			if end < 0 {
				b.WriteString(fragment[i:])
				return b.String()
			}
			b.WriteString(fragment[i : i+end+2])
			i += end + 1
		case c == ':' && i+1 < len(fragment) && fragment[i+1] == ':':
			b.WriteString("::")
			i++
		case c == ':' && i+1 < len(fragment) && isIdentStart(fragment[i+1]):
			j := i + 1
			for j < len(fragment) && isIdentByte(fragment[j]) {
				j++
			}
			b.WriteByte(':')
			b.WriteString(rename(fragment[i+1 : j]))
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
