package autocrud

import (
	"reflect"
)

// DefaultDeleteProtectedAbove protects rows with large primary keys,
// used for seeded reference data.
const DefaultDeleteProtectedAbove int64 = 1000000

// Inline edits a child type inside its parent's admin form.
type Inline struct {
	Model reflect.Type `json:"-"`
	Name  string       `json:"name"`
	Extra int          `json:"extra"`
}

// AdminConfig describes the admin presentation of a resource.
type AdminConfig struct {
	ListDisplay          []string `json:"list_display"`
	Inlines              []Inline `json:"inlines,omitempty"`
	DeleteProtectedAbove int64    `json:"delete_protected_above"`
}

// DefaultAdmin lists every concrete field of schema.
func DefaultAdmin(schema *Schema, items ...reflect.Type) AdminConfig {
	cfg := AdminConfig{
		DeleteProtectedAbove: DefaultDeleteProtectedAbove,
	}

	for _, f := range schema.Fields {
		if f.Category == CategoryRelationMulti {
			continue
		}
		cfg.ListDisplay = append(cfg.ListDisplay, f.Name)
	}

	for _, item := range items {
		item = indirectType(item)
		cfg.Inlines = append(cfg.Inlines, Inline{
			Model: item,
			Name:  item.Name() + "Inline",
			Extra: 1,
		})
	}

	return cfg
}

// CanDelete reports whether entity may be deleted from the admin.
func (a AdminConfig) CanDelete(entity any) bool {
	if entity == nil || a.DeleteProtectedAbove <= 0 {
		return true
	}
	pk := PrimaryKeyValue(entity)
	if pk == nil {
		return true
	}
	rv := reflect.ValueOf(pk)
	if !isNumber(rv.Kind()) {
		return true
	}
	return toFloat(rv) <= float64(a.DeleteProtectedAbove)
}
