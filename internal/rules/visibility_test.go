package rules

import "testing"

func TestIsVisible(t *testing.T) {
	values := Context{
		"category": String("hardware"),
		"urgency":  String("high"),
	}

	tests := []struct {
		name  string
		rules []FieldRule
		want  bool
	}{
		{"no rules always visible", nil, true},
		{
			"single rule match",
			[]FieldRule{{SourceFieldID: "category", Operator: OpEquals, Value: "hardware"}},
			true,
		},
		{
			"single rule mismatch",
			[]FieldRule{{SourceFieldID: "category", Operator: OpEquals, Value: "software"}},
			false,
		},
		{
			"all rules must hold",
			[]FieldRule{
				{SourceFieldID: "category", Operator: OpEquals, Value: "hardware"},
				{SourceFieldID: "urgency", Operator: OpEquals, Value: "low"},
			},
			false,
		},
		{
			"both rules hold",
			[]FieldRule{
				{SourceFieldID: "category", Operator: OpEquals, Value: "hardware"},
				{SourceFieldID: "urgency", Operator: OpEquals, Value: "high"},
			},
			true,
		},
		{
			"unanswered source field hides",
			[]FieldRule{{SourceFieldID: "model", Operator: OpEquals, Value: "x200"}},
			false,
		},
		{
			"unanswered source with not_equals also hides",
			[]FieldRule{{SourceFieldID: "model", Operator: OpNotEquals, Value: "x200"}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVisible(tt.rules, values); got != tt.want {
				t.Errorf("IsVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleFields(t *testing.T) {
	fields := []FieldView{
		{ID: "category"},
		{ID: "hardware_model", Rules: []FieldRule{
			{SourceFieldID: "category", Operator: OpEquals, Value: "hardware"},
		}},
		{ID: "software_name", Rules: []FieldRule{
			{SourceFieldID: "category", Operator: OpEquals, Value: "software"},
		}},
	}

	visible := VisibleFields(fields, Context{"category": String("hardware")})
	if !visible["category"] {
		t.Error("unconditional field should be visible")
	}
	if !visible["hardware_model"] {
		t.Error("hardware_model should be visible for category=hardware")
	}
	if visible["software_name"] {
		t.Error("software_name should be hidden for category=hardware")
	}

	// Changing the answer flips the dependent fields against the same form.
	visible = VisibleFields(fields, Context{"category": String("software")})
	if visible["hardware_model"] || !visible["software_name"] {
		t.Errorf("unexpected visibility: %v", visible)
	}
}

func TestDecodeFieldRules(t *testing.T) {
	rules, err := DecodeFieldRules([]byte(`[{"sourceFieldId":"category","operator":"equals","value":"hardware"}]`))
	if err != nil {
		t.Fatalf("DecodeFieldRules: %v", err)
	}
	if len(rules) != 1 || rules[0].SourceFieldID != "category" {
		t.Fatalf("unexpected rules %+v", rules)
	}

	empty, err := DecodeFieldRules(nil)
	if err != nil || empty != nil {
		t.Errorf("empty input should decode to nil, got %v, %v", empty, err)
	}

	if _, err := DecodeFieldRules([]byte(`[{`)); err == nil {
		t.Error("expected error for malformed rules")
	}
}
