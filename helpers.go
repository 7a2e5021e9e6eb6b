package autocrud

import (
	"fmt"
	"strings"
)

// Amount is a monetary value. Fields of this type classify as monetary.
type Amount float64

func (a Amount) String() string {
	return fmt.Sprintf("₱%.2f", float64(a))
}

// ChoiceValue returns the stored value whose label is label.
func ChoiceValue(choices []Choice, label string) (any, bool) {
	for _, c := range choices {
		if c.Label == label {
			return c.Value, true
		}
	}
	return nil, false
}

// InvertChoices maps labels back to stored values.
func InvertChoices(choices []Choice) map[string]any {
	out := make(map[string]any, len(choices))
	for _, c := range choices {
		out[c.Label] = c.Value
	}
	return out
}

// CheckConstraint requires two columns of the same row to differ.
type CheckConstraint struct {
	Name  string
	Field string
	Other string
}

// CannotEqual builds the constraint field != other. When name is empty
// it is derived from the model name.
func CannotEqual(field, other, model, name string) (CheckConstraint, error) {
	if name == "" {
		if model == "" {
			return CheckConstraint{}, fmt.Errorf("constraint on %s/%s needs a model name", field, other)
		}
		name = fmt.Sprintf("%s_cannot_equal_%s_%s", strings.ToLower(model), field, other)
	}
	return CheckConstraint{Name: name, Field: field, Other: other}, nil
}

// SQL renders the constraint body.
func (c CheckConstraint) SQL() string {
	return fmt.Sprintf(`CONSTRAINT %q CHECK (NOT (%q = %q))`, c.Name, c.Field, c.Other)
}

// Violated reports whether entity breaks the constraint.
func (c CheckConstraint) Violated(entity any) bool {
	schema, err := SchemaOf(entity)
	if err != nil {
		return false
	}
	env := Env{Schema: schema}
	a, errA := env.Values(c.Field, entity)
	b, errB := env.Values(c.Other, entity)
	if errA != nil || errB != nil || len(a) == 0 || len(b) == 0 {
		return false
	}
	if a[0] == nil || b[0] == nil {
		return false
	}
	return CompareValues(a[0], b[0]) == 0
}
