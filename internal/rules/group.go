package rules

import (
	"bytes"
	"encoding/json"
)

// Group combines an AND list (All) and an OR list (Any) of conditions.
//
// The group is satisfied iff every condition in All holds (or All is empty)
// and at least one condition in Any holds (or Any is empty). The fully empty
// group is therefore vacuously satisfied; "at least one condition total" is a
// creation-time constraint enforced at the API boundary, not here.
type Group struct {
	All []Condition `json:"all"`
	Any []Condition `json:"any"`
}

// Evaluate reports whether the group is satisfied for ctx. Both lists
// short-circuit; conditions have no side effects so order never changes the
// result, only the cost.
func (g Group) Evaluate(ctx Context) bool {
	for _, c := range g.All {
		if !c.Evaluate(ctx) {
			return false
		}
	}
	if len(g.Any) == 0 {
		return true
	}
	for _, c := range g.Any {
		if c.Evaluate(ctx) {
			return true
		}
	}
	return false
}

// Empty reports whether the group carries no conditions at all.
func (g Group) Empty() bool {
	return len(g.All) == 0 && len(g.Any) == 0
}

// Normalize replaces nil slices with empty ones so the serialized form is
// always {"all":[...],"any":[...]} and round-trips byte-for-byte.
func (g Group) Normalize() Group {
	if g.All == nil {
		g.All = []Condition{}
	}
	if g.Any == nil {
		g.Any = []Condition{}
	}
	return g
}

// DecodeGroup parses a stored conditions document. Early versions persisted
// a bare condition array; those documents are still accepted and read as an
// All-only group.
func DecodeGroup(data []byte) (Group, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Group{}.Normalize(), nil
	}
	if trimmed[0] == '[' {
		var all []Condition
		if err := json.Unmarshal(trimmed, &all); err != nil {
			return Group{}, err
		}
		return Group{All: all}.Normalize(), nil
	}
	var g Group
	if err := json.Unmarshal(trimmed, &g); err != nil {
		return Group{}, err
	}
	return g.Normalize(), nil
}

// EncodeGroup serializes a group in the current storage format.
func EncodeGroup(g Group) ([]byte, error) {
	return json.Marshal(g.Normalize())
}
