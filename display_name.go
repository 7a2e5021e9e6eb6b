package autocrud

import (
	"reflect"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayNameField is the annotation every list collection carries.
const DisplayNameField = "display_name"

// DefaultDisplayDepth bounds how far display fields are collected
// across to-one relations.
const DefaultDisplayDepth = 2

// DisplayFields collects the paths of display-worthy fields. A relation
// marked display contributes the display fields of its related type.
// To-many relations are never expanded and each type is visited once.
func DisplayFields(s *Schema, maxDepth int) []string {
	return displayFields(s, map[reflect.Type]bool{}, 0, maxDepth)
}

func displayFields(s *Schema, visited map[reflect.Type]bool, depth, maxDepth int) []string {
	if visited[s.Type] || depth > maxDepth {
		return nil
	}
	visited[s.Type] = true

	var paths []string
	for _, f := range s.Fields {
		if !f.Display {
			continue
		}
		switch f.Category {
		case CategoryRelationMulti:
			continue
		case CategoryRelationSingle:
			related, err := SchemaFor(f.Related)
			if err != nil {
				continue
			}
			for _, rf := range displayFields(related, visited, depth+1, maxDepth) {
				paths = append(paths, f.Name+PathSeparator+rf)
			}
		default:
			paths = append(paths, f.Name)
		}
	}
	return paths
}

var displayExprCache sync.Map

// DisplayNameExpression synthesizes the label of s:
//
//	no display fields:  "<Type> # <pk>"
//	one display field:  its value
//	several:            values joined by a space
//
// When joined, booleans render as a title derived from the field name
// or as an empty segment, and enumerated values render as their label.
func DisplayNameExpression(s *Schema) Expression {
	if cached, ok := displayExprCache.Load(s.Type); ok {
		return cached.(Expression)
	}
	expr := buildDisplayName(s)
	displayExprCache.Store(s.Type, expr)
	return expr
}

func buildDisplayName(s *Schema) Expression {
	paths := DisplayFields(s, DefaultDisplayDepth)

	switch len(paths) {
	case 0:
		return Concat{V(s.Name + " # "), F(s.PKName())}
	case 1:
		return F(paths[0])
	}

	var parts Concat
	for i, path := range paths {
		resolved, err := s.Resolve(path)
		if err != nil {
			continue
		}
		field := resolved.Field()

		switch {
		case field.IsBool():
			parts = append(parts, Case{
				Whens:   []When{{Condition: Cond(path, LookupExact, "true"), Then: V(BooleanTitle(field.Name))}},
				Default: V(""),
			})
		case field.Category == CategoryEnumerated:
			whens := make([]When, 0, len(field.Choices))
			for _, c := range field.Choices {
				whens = append(whens, When{
					Condition: Cond(path, LookupExact, stringify(c.Value)),
					Then:      V(c.Label),
				})
			}
			parts = append(parts, Case{Whens: whens})
		default:
			parts = append(parts, F(path))
		}

		if i < len(paths)-1 {
			parts = append(parts, V(" "))
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return parts
}

// BooleanTitle turns "is_active" into "Active".
func BooleanTitle(name string) string {
	if len(name) > 2 && strings.EqualFold(name[:2], "is") && (name[2] == '_' || isUpper(name[2])) {
		name = name[2:]
	}
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	// Casers keep state between calls.
	return cases.Title(language.English).String(name)
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// DisplayName evaluates the display name of a loaded entity. Relations
// referenced by display paths must be loaded.
func DisplayName(entity any) string {
	if entity == nil {
		return ""
	}
	schema, err := SchemaOf(entity)
	if err != nil {
		return ""
	}
	env := Env{Schema: schema}
	return stringify(env.Evaluate(DisplayNameExpression(schema), entity))
}
