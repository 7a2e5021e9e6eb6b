package autocrud

import (
	"strings"
)

// DefaultSearchDepth bounds the related text fields a relation search reaches.
const DefaultSearchDepth = 2

// TextFields lists text field paths of s and of its to-one relations,
// up to maxDepth levels below s. Self references are not followed.
func TextFields(s *Schema, maxDepth int) []string {
	return textFields(s, "", 0, maxDepth)
}

func textFields(s *Schema, prefix string, depth, maxDepth int) []string {
	if depth > maxDepth {
		return nil
	}

	var paths []string
	for _, f := range s.Fields {
		switch {
		case f.IsText():
			paths = append(paths, prefix+f.Name)
		case f.Category == CategoryRelationSingle && f.Related != s.Type:
			related, err := SchemaFor(f.Related)
			if err != nil {
				continue
			}
			paths = append(paths, textFields(related, prefix+f.Name+PathSeparator, depth+1, maxDepth)...)
		}
	}
	return paths
}

// SearchTerms splits a search value on whitespace.
func SearchTerms(value string) []string {
	return strings.Fields(value)
}

// searchPredicate matches field against terms:
//
//	relation:    any related text field contains any term
//	otherwise:   the field contains every term; enumerated fields are
//	             further restricted to values whose label contains a term
func searchPredicate(resolved FieldPath, terms []string, depth int) Predicate {
	if len(terms) == 0 {
		return Predicate{}
	}

	field := resolved.Field()
	path := resolved.Path()

	switch {
	case field.Category.IsRelation():
		related, err := SchemaFor(field.Related)
		if err != nil {
			return Predicate{}
		}
		var ors []Predicate
		for _, term := range terms {
			for _, text := range TextFields(related, depth) {
				ors = append(ors, Cond(path+PathSeparator+text, LookupIContains, term))
			}
		}
		if len(ors) == 0 {
			return Cond(path, LookupIn, []string{})
		}
		return Or(ors...)

	}

	all := make([]Predicate, 0, len(terms)+1)
	for _, term := range terms {
		all = append(all, Cond(path, LookupIContains, term))
	}

	if field.Category == CategoryEnumerated {
		matched := []string{}
		for _, c := range field.Choices {
			label := strings.ToLower(c.Label)
			for _, term := range terms {
				if strings.Contains(label, strings.ToLower(term)) {
					matched = append(matched, stringify(c.Value))
					break
				}
			}
		}
		all = append(all, Cond(path, LookupIn, matched))
	}
	return And(all...)
}
