package rules

import (
	"bytes"
	"encoding/json"
)

// FieldRule decides whether a form field is shown based on another field's
// current answer. Structurally a Condition restricted to All-only semantics:
// every rule on a field must hold for the field to be visible.
type FieldRule struct {
	SourceFieldID string   `json:"sourceFieldId"`
	Operator      Operator `json:"operator"`
	Value         string   `json:"value"`
}

// DecodeFieldRules parses a stored visibility rule list.
func DecodeFieldRules(data []byte) ([]FieldRule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var out []FieldRule
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// IsVisible reports whether a field with the given rules is shown for the
// current answers. A field with no rules is always visible. Pure function of
// the in-memory form state; a hidden field's stored answer is the caller's
// concern (kept in memory, dropped at submit time).
func IsVisible(fieldRules []FieldRule, values Context) bool {
	if len(fieldRules) == 0 {
		return true
	}
	g := Group{All: make([]Condition, 0, len(fieldRules))}
	for _, r := range fieldRules {
		g.All = append(g.All, Condition{Field: r.SourceFieldID, Operator: r.Operator, Value: r.Value})
	}
	return g.Evaluate(values)
}

// FieldView is the slice of a form field the evaluator needs.
type FieldView struct {
	ID    string
	Rules []FieldRule
}

// VisibleFields returns the set of field ids shown for the given answers,
// evaluating each field independently against the same snapshot.
func VisibleFields(fields []FieldView, values Context) map[string]bool {
	visible := make(map[string]bool, len(fields))
	for _, f := range fields {
		if IsVisible(f.Rules, values) {
			visible[f.ID] = true
		}
	}
	return visible
}
