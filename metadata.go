package autocrud

import (
	"reflect"

	"github.com/ettle/strcase"
)

// RelatedRef labels a related entity or an enumerated value found in a page.
type RelatedRef struct {
	Field string `json:"field"`
	ID    any    `json:"id"`
	Name  string `json:"name"`
}

// FieldMetadata tells clients how to render the fields of a page.
// Field names are lowerCamel.
type FieldMetadata struct {
	Related        []RelatedRef `json:"related"`
	RelatedFields  []string     `json:"related_fields"`
	OptionFields   []string     `json:"option_fields"`
	DateFields     []string     `json:"date_fields"`
	DateTimeFields []string     `json:"datetime_fields"`
	TimeFields     []string     `json:"time_fields"`
	PriceFields    []string     `json:"price_fields"`
}

// BuildMetadata inspects only items. Relations are read from what is
// loaded on each item; nothing is fetched.
func BuildMetadata(schema *Schema, items []any) FieldMetadata {
	meta := FieldMetadata{
		Related:        []RelatedRef{},
		RelatedFields:  []string{},
		OptionFields:   []string{},
		DateFields:     []string{},
		DateTimeFields: []string{},
		TimeFields:     []string{},
		PriceFields:    []string{},
	}

	for _, field := range schema.Fields {
		name := CamelName(field.Name)

		switch field.Category {
		case CategoryRelationSingle, CategoryRelationMulti:
			// reverse relations are not columns of this model
			if field.Relation == RelationHasMany {
				continue
			}
			meta.RelatedFields = append(meta.RelatedFields, name)
			meta.Related = append(meta.Related, relatedRefs(name, field, items)...)
		case CategoryEnumerated:
			meta.OptionFields = append(meta.OptionFields, name)
			meta.Related = append(meta.Related, optionRefs(name, field, items)...)
		case CategoryDateTime:
			meta.DateTimeFields = append(meta.DateTimeFields, name)
		case CategoryDate:
			meta.DateFields = append(meta.DateFields, name)
		case CategoryTime:
			meta.TimeFields = append(meta.TimeFields, name)
		case CategoryMonetary:
			meta.PriceFields = append(meta.PriceFields, name)
		}
	}

	return meta
}

// CamelName converts a storage name to lowerCamel.
func CamelName(name string) string {
	return strcase.ToCamel(name)
}

func relatedRefs(name string, field FieldDescriptor, items []any) []RelatedRef {
	var refs []RelatedRef
	seen := map[string]bool{}

	add := func(related reflect.Value) {
		if !related.IsValid() || (related.Kind() == reflect.Ptr && related.IsNil()) {
			return
		}
		if related.Kind() != reflect.Ptr && related.CanAddr() {
			related = related.Addr()
		}
		entity := related.Interface()
		id := PrimaryKeyValue(entity)
		if id == nil {
			return
		}
		key := stringify(id)
		if seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, RelatedRef{Field: name, ID: id, Name: DisplayName(entity)})
	}

	for _, item := range items {
		v, ok := structValue(item)
		if !ok {
			continue
		}
		fv := v.FieldByIndex(field.Index)
		if field.Category == CategoryRelationMulti {
			for i := 0; i < fv.Len(); i++ {
				add(fv.Index(i))
			}
			continue
		}
		add(fv)
	}
	return refs
}

func optionRefs(name string, field FieldDescriptor, items []any) []RelatedRef {
	var refs []RelatedRef
	seen := map[string]bool{}

	for _, item := range items {
		v, ok := structValue(item)
		if !ok {
			continue
		}
		value := plainValue(v.FieldByIndex(field.Index))
		if value == nil {
			continue
		}
		key := stringify(value)
		if seen[key] {
			continue
		}
		seen[key] = true

		label, found := field.ChoiceLabel(value)
		if !found {
			label = key
		}
		refs = append(refs, RelatedRef{Field: name, ID: value, Name: label})
	}
	return refs
}

func structValue(item any) (reflect.Value, bool) {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	return v, v.Kind() == reflect.Struct
}
