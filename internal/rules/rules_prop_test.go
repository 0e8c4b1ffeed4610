package rules

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genOperator() gopter.Gen {
	return gen.OneConstOf(OpEquals, OpNotEquals, OpContains, Operator("bogus_op"))
}

func genFieldName() gopter.Gen {
	return gen.OneConstOf("status", "priority", "queue", "ticket_event", "missing", "")
}

func genValue() gopter.Gen {
	return gen.OneConstOf("open", "closed", "high", "created", "")
}

func sampleContext() Context {
	return Context{
		"status":       String("open"),
		"priority":     String("high"),
		"queue":        String("8"),
		"ticket_event": String("created"),
		"tags":         Strings([]string{"hardware", "urgent"}),
	}
}

// Evaluation is a pure function of its inputs: same condition, same context,
// same answer, every time.
func TestCondition_PropertyDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("evaluation is deterministic", prop.ForAll(
		func(field, value string, op Operator) bool {
			c := Condition{Field: field, Operator: op, Value: value}
			ctx := sampleContext()
			first := c.Evaluate(ctx)
			for i := 0; i < 3; i++ {
				if c.Evaluate(ctx) != first {
					return false
				}
			}
			return true
		},
		genFieldName(),
		genValue(),
		genOperator(),
	))

	properties.TestingRun(t)
}

func TestCondition_PropertyVacuousTruth(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("empty field or value is always true", prop.ForAll(
		func(field string, op Operator) bool {
			blankValue := Condition{Field: field, Operator: op, Value: ""}
			blankField := Condition{Field: "", Operator: op, Value: field}
			return blankValue.Evaluate(sampleContext()) && blankField.Evaluate(sampleContext())
		},
		genFieldName(),
		genOperator(),
	))

	properties.TestingRun(t)
}

func TestCondition_PropertyAbsentIsFalse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("configured condition on absent field is false for known operators", prop.ForAll(
		func(value string, op Operator) bool {
			if value == "" || op == Operator("bogus_op") {
				return true // covered by the vacuous-truth and fail-open properties
			}
			c := Condition{Field: "nowhere", Operator: op, Value: value}
			return !c.Evaluate(sampleContext())
		},
		genValue(),
		genOperator(),
	))

	properties.TestingRun(t)
}

func TestGroup_PropertyEvaluationNeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("group evaluation never panics", prop.ForAll(
		func(nAll, nAny int, field, value string, op Operator) (ok bool) {
			defer func() {
				if r := recover(); r != nil {
					ok = false
				}
			}()
			g := Group{}
			for i := 0; i < nAll; i++ {
				g.All = append(g.All, Condition{Field: field, Operator: op, Value: value})
			}
			for i := 0; i < nAny; i++ {
				g.Any = append(g.Any, Condition{Field: field, Operator: op, Value: value})
			}
			_ = g.Evaluate(sampleContext())
			_ = g.Evaluate(nil)
			return true
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		genFieldName(),
		genValue(),
		genOperator(),
	))

	properties.TestingRun(t)
}

// An empty Any list never vetoes; a non-empty Any with at least one passing
// condition behaves the same as an empty one.
func TestGroup_PropertyEmptyAnyNeutral(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("empty any list is neutral", prop.ForAll(
		func(field, value string, op Operator) bool {
			all := []Condition{{Field: field, Operator: op, Value: value}}
			withEmptyAny := Group{All: all}
			allOnly := Group{All: all, Any: []Condition{}}
			ctx := sampleContext()
			return withEmptyAny.Evaluate(ctx) == allOnly.Evaluate(ctx)
		},
		genFieldName(),
		genValue(),
		genOperator(),
	))

	properties.TestingRun(t)
}
