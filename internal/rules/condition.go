package rules

import "strings"

// Operator names the comparison a single condition applies.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
)

// Value is one context entry: either a single string or a list of strings
// (multi-select / checkbox answers). The zero Value means "absent".
type Value struct {
	one   string
	many  []string
	multi bool
	set   bool
}

// String wraps a scalar context value.
func String(s string) Value { return Value{one: s, set: true} }

// Strings wraps a multi-valued context value.
func Strings(vs []string) Value { return Value{many: vs, multi: true, set: true} }

func (v Value) absent() bool {
	if !v.set {
		return true
	}
	if v.multi {
		return len(v.many) == 0
	}
	return v.one == ""
}

// Context is the ephemeral field -> value snapshot a condition group is
// evaluated against. Built fresh per event, never persisted, never shared.
type Context map[string]Value

// Condition is an atomic predicate over one field, operator and value.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Evaluate reports whether the condition holds for ctx.
//
// A condition with an empty field or value is vacuously true: the builder UI
// allows saving half-filled rows and an unconfigured condition must never
// veto. An absent (or empty) context value makes every operator false,
// including not_equals. Unknown operators are fail-open so that rule data
// written by a newer builder never disables older readers.
func (c Condition) Evaluate(ctx Context) bool {
	if c.Field == "" || c.Value == "" {
		return true
	}
	// The ticket_event=any condition is a scope marker meaning "fire on every
	// lifecycle event". The context key only ever carries "created" or
	// "updated", so the wildcard must hold for both.
	if c.Field == FieldTicketEvent && c.Value == "any" && c.Operator == OpEquals {
		return true
	}
	cur, ok := ctx[c.Field]
	if !ok || cur.absent() {
		return false
	}
	switch c.Operator {
	case OpEquals:
		if cur.multi {
			return containsString(cur.many, c.Value)
		}
		return cur.one == c.Value
	case OpNotEquals:
		if cur.multi {
			return !containsString(cur.many, c.Value)
		}
		return cur.one != c.Value
	case OpContains:
		want := strings.ToLower(c.Value)
		if cur.multi {
			for _, v := range cur.many {
				if strings.Contains(strings.ToLower(v), want) {
					return true
				}
			}
			return false
		}
		return strings.Contains(strings.ToLower(cur.one), want)
	default:
		return true
	}
}

func containsString(hay []string, needle string) bool {
	for _, v := range hay {
		if v == needle {
			return true
		}
	}
	return false
}
