package autocrud

import (
	"reflect"
	"time"
)

const (
	TAG_CRUD = "crud"
	TAG_BUN  = "bun"
	TAG_JSON = "json"

	TAG_KEY_RESOURCE = "resource"
	TAG_KEY_CHOICES  = "choices"
)

// FieldCategory classifies a declared field for filtering and client rendering.
type FieldCategory string

const (
	CategoryPlain          FieldCategory = "plain"
	CategoryRelationSingle FieldCategory = "relation-single"
	CategoryRelationMulti  FieldCategory = "relation-multi"
	CategoryEnumerated     FieldCategory = "enumerated"
	CategoryDate           FieldCategory = "date"
	CategoryDateTime       FieldCategory = "datetime"
	CategoryTime           FieldCategory = "time"
	CategoryMonetary       FieldCategory = "monetary"
)

// IsRelation reports whether the category points at another entity type.
func (c FieldCategory) IsRelation() bool {
	return c == CategoryRelationSingle || c == CategoryRelationMulti
}

// RelationKind mirrors the bun relation tag values.
type RelationKind string

const (
	RelationNone       RelationKind = ""
	RelationBelongsTo  RelationKind = "belongs-to"
	RelationHasOne     RelationKind = "has-one"
	RelationHasMany    RelationKind = "has-many"
	RelationManyToMany RelationKind = "many-to-many"
)

// Choice is one entry of an enumerated field's value table.
type Choice struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Chooser is implemented by enum types. The zero value of the
// type must be able to return the full table.
type Chooser interface {
	Choices() []Choice
}

// M2MTable is the join table behind a many-to-many relation.
type M2MTable struct {
	Table         string `json:"table"`
	OwnerColumn   string `json:"owner_column"`
	RelatedColumn string `json:"related_column"`
}

// FieldDescriptor describes a single declared field of an entity type.
type FieldDescriptor struct {
	Name       string        `json:"name"`
	GoName     string        `json:"go_name"`
	Category   FieldCategory `json:"category"`
	Relation   RelationKind  `json:"relation,omitempty"`
	JoinColumn string        `json:"join_column,omitempty"`
	RefColumn  string        `json:"ref_column,omitempty"`
	M2M        *M2MTable     `json:"m2m,omitempty"`
	Choices    []Choice      `json:"choices,omitempty"`
	Display    bool          `json:"display,omitempty"`
	PrimaryKey bool          `json:"primary_key,omitempty"`

	Index   []int        `json:"-"`
	Type    reflect.Type `json:"-"`
	Related reflect.Type `json:"-"`
}

// ChoiceLabel returns the label for a stored value. ok is false
// when the value is not part of the table.
func (f FieldDescriptor) ChoiceLabel(value any) (string, bool) {
	key := stringify(value)
	for _, c := range f.Choices {
		if stringify(c.Value) == key {
			return c.Label, true
		}
	}
	return "", false
}

// IsText reports whether the field stores text that free-text search can match.
func (f FieldDescriptor) IsText() bool {
	if f.Category != CategoryPlain && f.Category != CategoryEnumerated {
		return false
	}
	return baseType(f.Type).Kind() == reflect.String
}

// IsBool reports whether the field stores a boolean.
func (f FieldDescriptor) IsBool() bool {
	return f.Category == CategoryPlain && baseType(f.Type).Kind() == reflect.Bool
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	amountType  = reflect.TypeOf(Amount(0))
	chooserType = reflect.TypeOf((*Chooser)(nil)).Elem()
)

func baseType(t reflect.Type) reflect.Type {
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		t = t.Elem()
	}
	return t
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
