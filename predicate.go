package autocrud

import (
	"fmt"
	"strings"
)

// Operator is the node kind of a predicate tree.
type Operator string

const (
	OperatorCondition Operator = "cond"
	OperatorAnd       Operator = "and"
	OperatorOr        Operator = "or"
	OperatorNot       Operator = "not"
)

// Predicate is a composed filter expression. The zero value matches
// everything; back ends must treat IsEmpty predicates as no-ops.
type Predicate struct {
	Operator Operator    `json:"op,omitempty"`
	Field    string      `json:"field,omitempty"`
	Lookup   Lookup      `json:"lookup,omitempty"`
	Value    any         `json:"value,omitempty"`
	Children []Predicate `json:"children,omitempty"`
}

// Cond compares the field path against value. Value is a string, or a
// []string for LookupIn.
func Cond(field string, lookup Lookup, value any) Predicate {
	if lookup == "" {
		lookup = LookupExact
	}
	return Predicate{
		Operator: OperatorCondition,
		Field:    field,
		Lookup:   lookup,
		Value:    value,
	}
}

// Where builds a condition from a "path__lookup" key.
func Where(key string, value any) Predicate {
	field, lookup := splitLookup(key)
	return Cond(field, lookup, value)
}

// And matches when every child matches. Empty children are dropped.
func And(children ...Predicate) Predicate {
	return group(OperatorAnd, children)
}

// Or matches when any child matches. Empty children are dropped.
func Or(children ...Predicate) Predicate {
	return group(OperatorOr, children)
}

// Not negates p.
func Not(p Predicate) Predicate {
	if p.IsEmpty() {
		return Predicate{}
	}
	return Predicate{Operator: OperatorNot, Children: []Predicate{p}}
}

func group(op Operator, children []Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		if c.IsEmpty() {
			continue
		}
		if c.Operator == op {
			kept = append(kept, c.Children...)
			continue
		}
		kept = append(kept, c)
	}

	switch len(kept) {
	case 0:
		return Predicate{}
	case 1:
		return kept[0]
	}

	return Predicate{Operator: op, Children: kept}
}

// IsEmpty reports whether the predicate places no constraint.
func (p Predicate) IsEmpty() bool {
	switch p.Operator {
	case OperatorCondition:
		return false
	case OperatorAnd, OperatorOr, OperatorNot:
		return len(p.Children) == 0
	}
	return true
}

// Walk visits every condition in the tree.
func (p Predicate) Walk(fn func(Predicate)) {
	if p.Operator == OperatorCondition {
		fn(p)
		return
	}
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

func (p Predicate) String() string {
	switch p.Operator {
	case OperatorCondition:
		return fmt.Sprintf("%s__%s=%v", p.Field, p.Lookup, p.Value)
	case OperatorNot:
		return "NOT (" + p.Children[0].String() + ")"
	case OperatorAnd, OperatorOr:
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(p.Operator))+" ") + ")"
	}
	return "()"
}

func splitLookup(key string) (string, Lookup) {
	idx := strings.LastIndex(key, PathSeparator)
	if idx == -1 {
		return key, LookupExact
	}
	if lookup, ok := ParseLookup(key[idx+len(PathSeparator):]); ok {
		return key[:idx], lookup
	}
	return key, LookupExact
}
