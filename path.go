package autocrud

import (
	"fmt"
	"strings"
)

// PathSeparator joins field names across relations, e.g. "author__name".
const PathSeparator = "__"

// Lookup is the comparison applied at the end of a field path.
type Lookup string

const (
	LookupExact       Lookup = "exact"
	LookupIExact      Lookup = "iexact"
	LookupContains    Lookup = "contains"
	LookupIContains   Lookup = "icontains"
	LookupStartsWith  Lookup = "startswith"
	LookupIStartsWith Lookup = "istartswith"
	LookupEndsWith    Lookup = "endswith"
	LookupIEndsWith   Lookup = "iendswith"
	LookupIn          Lookup = "in"
	LookupGT          Lookup = "gt"
	LookupGTE         Lookup = "gte"
	LookupLT          Lookup = "lt"
	LookupLTE         Lookup = "lte"
	LookupIsNull      Lookup = "isnull"
)

var knownLookups = map[string]Lookup{
	"exact":       LookupExact,
	"iexact":      LookupIExact,
	"contains":    LookupContains,
	"icontains":   LookupIContains,
	"startswith":  LookupStartsWith,
	"istartswith": LookupIStartsWith,
	"endswith":    LookupEndsWith,
	"iendswith":   LookupIEndsWith,
	"in":          LookupIn,
	"gt":          LookupGT,
	"gte":         LookupGTE,
	"lt":          LookupLT,
	"lte":         LookupLTE,
	"isnull":      LookupIsNull,
}

// ParseLookup returns the lookup named s.
func ParseLookup(s string) (Lookup, bool) {
	l, ok := knownLookups[s]
	return l, ok
}

// FieldError reports a field path that does not resolve against a schema.
type FieldError struct {
	Schema string
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q on %s: %s", e.Key, e.Schema, e.Reason)
}

// FieldPath is a key resolved against a schema.
type FieldPath struct {
	Key    string
	Steps  []FieldDescriptor
	Lookup Lookup
}

// Path returns the storage path without the lookup.
func (p FieldPath) Path() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return strings.Join(names, PathSeparator)
}

// Field returns the last field of the path.
func (p FieldPath) Field() FieldDescriptor {
	return p.Steps[len(p.Steps)-1]
}

// ToMany reports whether the path crosses a to-many relation.
func (p FieldPath) ToMany() bool {
	for _, s := range p.Steps {
		if s.Category == CategoryRelationMulti {
			return true
		}
	}
	return false
}

// Resolve walks key across relations. A trailing segment that names a
// lookup is split off; the default lookup is exact.
func (s *Schema) Resolve(key string) (FieldPath, error) {
	path := FieldPath{Key: key, Lookup: LookupExact}
	segments := strings.Split(key, PathSeparator)

	current := s
	for i, segment := range segments {
		last := i == len(segments)-1

		if current == nil {
			if lookup, ok := ParseLookup(segment); ok && last {
				path.Lookup = lookup
				break
			}
			return path, &FieldError{Schema: s.Name, Key: key, Reason: fmt.Sprintf("cannot traverse into %q", segment)}
		}

		field, ok := current.Field(segment)
		if !ok {
			if lookup, isLookup := ParseLookup(segment); isLookup && last && i > 0 {
				path.Lookup = lookup
				break
			}
			return path, &FieldError{Schema: s.Name, Key: key, Reason: fmt.Sprintf("unknown field %q", segment)}
		}

		path.Steps = append(path.Steps, field)

		current = nil
		if field.Category.IsRelation() {
			related, err := SchemaFor(field.Related)
			if err != nil {
				return path, &FieldError{Schema: s.Name, Key: key, Reason: err.Error()}
			}
			current = related
		}
	}

	if len(path.Steps) == 0 {
		return path, &FieldError{Schema: s.Name, Key: key, Reason: "empty path"}
	}

	return path, nil
}

// BaseSegment returns the first path segment of key.
func BaseSegment(key string) string {
	base, _, _ := strings.Cut(key, PathSeparator)
	return base
}
