package autocrud

import (
	"reflect"
	"time"
)

// ComputedField is an extra, read-only value in serialized output.
type ComputedField struct {
	Name  string
	Value func(entity any) any
}

// Computed adapts a typed function. The entity may arrive as T or *T.
func Computed[T any](name string, fn func(T) any) ComputedField {
	return ComputedField{
		Name: name,
		Value: func(entity any) any {
			switch e := entity.(type) {
			case T:
				return fn(e)
			case *T:
				if e == nil {
					return nil
				}
				return fn(*e)
			}
			return nil
		},
	}
}

// Serializer renders entities as JSON objects keyed by storage name.
// Relations render as primary keys, to-many relations as key lists.
type Serializer struct {
	Schema   *Schema
	Computed []ComputedField
	// Omit lists storage names left out of the output.
	Omit []string
}

// NewSerializer serializes every field of schema plus computed.
func NewSerializer(schema *Schema, computed ...ComputedField) *Serializer {
	return &Serializer{Schema: schema, Computed: computed}
}

// Serialize renders one entity, including its display_name.
func (s *Serializer) Serialize(entity any) map[string]any {
	v, ok := structValue(entity)
	if !ok {
		return nil
	}

	joinColumns := map[string]bool{}
	for _, f := range s.Schema.Fields {
		if f.JoinColumn != "" {
			joinColumns[f.JoinColumn] = true
		}
	}

	out := make(map[string]any, len(s.Schema.Fields)+len(s.Computed)+1)
	for _, f := range s.Schema.Fields {
		if s.omitted(f.Name) || joinColumns[f.Name] {
			continue
		}
		fv := v.FieldByIndex(f.Index)

		switch f.Category {
		case CategoryRelationSingle:
			out[f.Name] = relatedKey(v, f, fv)
		case CategoryRelationMulti:
			keys := make([]any, 0, fv.Len())
			for i := 0; i < fv.Len(); i++ {
				item := fv.Index(i)
				if item.Kind() != reflect.Ptr && item.CanAddr() {
					item = item.Addr()
				}
				keys = append(keys, PrimaryKeyValue(item.Interface()))
			}
			out[f.Name] = keys
		case CategoryDate:
			out[f.Name] = formatTime(plainValue(fv), time.DateOnly)
		case CategoryTime:
			out[f.Name] = formatTime(plainValue(fv), time.TimeOnly)
		case CategoryMonetary:
			value := plainValue(fv)
			if a, ok := value.(Amount); ok {
				value = float64(a)
			}
			out[f.Name] = value
		default:
			out[f.Name] = plainValue(fv)
		}
	}

	out[DisplayNameField] = DisplayName(entity)

	for _, c := range s.Computed {
		out[c.Name] = c.Value(entity)
	}

	return out
}

// SerializeMany renders items in order.
func (s *Serializer) SerializeMany(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m := s.Serialize(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (s *Serializer) omitted(name string) bool {
	for _, o := range s.Omit {
		if o == name {
			return true
		}
	}
	return false
}

func formatTime(value any, layout string) any {
	t, ok := value.(time.Time)
	if !ok {
		return value
	}
	return t.Format(layout)
}
