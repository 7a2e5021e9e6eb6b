package autocrud

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ettle/strcase"
)

// Schema is the classified, immutable view of an entity type.
type Schema struct {
	Type   reflect.Type
	Name   string
	Table  string
	Fields []FieldDescriptor

	index map[string]int
	pk    int
}

var schemaCache sync.Map

// SchemaFor classifies the declared fields of t. Results are cached
// per type since struct tags cannot change at runtime.
func SchemaFor(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, errors.New("schema requires a non-nil type")
	}

	base := indirectType(t)
	if base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema requires a struct type, got %s", base)
	}

	if cached, ok := schemaCache.Load(base); ok {
		return cached.(*Schema), nil
	}

	schema := newSchema(base, classifyFields(base, base, nil))
	actual, _ := schemaCache.LoadOrStore(base, schema)
	return actual.(*Schema), nil
}

// SchemaOf is SchemaFor for the dynamic type of entity.
func SchemaOf(entity any) (*Schema, error) {
	return SchemaFor(reflect.TypeOf(entity))
}

// MustSchemaFor panics when t is not a struct type.
func MustSchemaFor(t reflect.Type) *Schema {
	s, err := SchemaFor(t)
	if err != nil {
		panic(err)
	}
	return s
}

// ClassifyFields returns the ordered field descriptors of t.
func ClassifyFields(t reflect.Type) ([]FieldDescriptor, error) {
	s, err := SchemaFor(t)
	if err != nil {
		return nil, err
	}
	return append([]FieldDescriptor(nil), s.Fields...), nil
}

func newSchema(t reflect.Type, fields []FieldDescriptor) *Schema {
	s := &Schema{
		Type:   t,
		Name:   t.Name(),
		Table:  getTableName(t),
		Fields: fields,
		index:  make(map[string]int, len(fields)),
		pk:     -1,
	}

	for i, f := range fields {
		s.index[f.Name] = i
		if f.PrimaryKey && s.pk == -1 {
			s.pk = i
		}
	}

	if s.pk == -1 {
		if i, ok := s.index["id"]; ok {
			s.pk = i
			s.Fields[i].PrimaryKey = true
		}
	}

	return s
}

// Field looks up a field by storage name. "pk" aliases the primary key.
func (s *Schema) Field(name string) (FieldDescriptor, bool) {
	if name == "pk" {
		return s.PrimaryKey()
	}
	i, ok := s.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return s.Fields[i], true
}

// Has reports whether name is a declared field.
func (s *Schema) Has(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// PrimaryKey returns the primary key descriptor.
func (s *Schema) PrimaryKey() (FieldDescriptor, bool) {
	if s.pk < 0 {
		return FieldDescriptor{}, false
	}
	return s.Fields[s.pk], true
}

// PKName returns the storage name of the primary key, "id" when none is declared.
func (s *Schema) PKName() string {
	if pk, ok := s.PrimaryKey(); ok {
		return pk.Name
	}
	return "id"
}

// FieldsBy returns the fields in the given category, in declaration order.
func (s *Schema) FieldsBy(category FieldCategory) []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range s.Fields {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

func classifyFields(owner, t reflect.Type, prefix []int) []FieldDescriptor {
	var fields []FieldDescriptor

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int{}, prefix...), i)

		if field.Anonymous {
			// e.g. bun.BaseModel
			if field.Type.Name() == "BaseModel" || field.Type.Kind() != reflect.Struct {
				continue
			}
			fields = append(fields, classifyFields(owner, field.Type, index)...)
			continue
		}

		if !field.IsExported() {
			continue
		}

		if field.Tag.Get(TAG_BUN) == "-" || field.Tag.Get(TAG_CRUD) == "-" {
			continue
		}

		fields = append(fields, classifyField(owner, field, index))
	}

	return fields
}

func classifyField(owner reflect.Type, field reflect.StructField, index []int) FieldDescriptor {
	bunOpts := parseBunTag(field.Tag.Get(TAG_BUN))
	crudOpts := parseCrudTag(field.Tag.Get(TAG_CRUD))

	name := bunOpts.name
	if name == "" {
		name = strcase.ToSnake(field.Name)
	}

	desc := FieldDescriptor{
		Name:       name,
		GoName:     field.Name,
		Index:      index,
		Type:       field.Type,
		Display:    crudOpts.has("display"),
		PrimaryKey: bunOpts.pk,
		Category:   CategoryPlain,
	}

	related := baseType(field.Type)
	if bunOpts.rel != RelationNone && related.Kind() == reflect.Struct {
		desc.Relation = bunOpts.rel
		desc.Related = related

		switch {
		case bunOpts.rel == RelationHasMany || bunOpts.rel == RelationManyToMany:
			desc.Category = CategoryRelationMulti
		case field.Type.Kind() == reflect.Slice:
			desc.Category = CategoryRelationMulti
		default:
			desc.Category = CategoryRelationSingle
		}

		ownerFK := strcase.ToSnake(owner.Name()) + "_id"
		switch desc.Relation {
		case RelationBelongsTo:
			desc.JoinColumn = orDefault(bunOpts.joinSource, name+"_id")
			desc.RefColumn = orDefault(bunOpts.joinTarget, "id")
		case RelationHasOne, RelationHasMany:
			desc.JoinColumn = orDefault(bunOpts.joinSource, "id")
			desc.RefColumn = orDefault(bunOpts.joinTarget, ownerFK)
		case RelationManyToMany:
			ownerJoin, relatedJoin := parseJoinClause(bunOpts.m2mJoin)
			desc.M2M = &M2MTable{
				Table:         bunOpts.m2mTable,
				OwnerColumn:   orDefault(strcase.ToSnake(ownerJoin), strcase.ToSnake(owner.Name())) + "_id",
				RelatedColumn: orDefault(strcase.ToSnake(relatedJoin), strcase.ToSnake(related.Name())) + "_id",
			}
		}
		return desc
	}

	if choices := choicesFor(field.Type, crudOpts); len(choices) > 0 {
		desc.Category = CategoryEnumerated
		desc.Choices = choices
		return desc
	}

	switch indirectType(field.Type) {
	case timeType:
		switch {
		case crudOpts.has("date"):
			desc.Category = CategoryDate
		case crudOpts.has("time"):
			desc.Category = CategoryTime
		default:
			desc.Category = CategoryDateTime
		}
		return desc
	case amountType:
		desc.Category = CategoryMonetary
		return desc
	}

	if crudOpts.has("money") {
		desc.Category = CategoryMonetary
	}

	return desc
}

func choicesFor(t reflect.Type, crudOpts crudOptions) []Choice {
	if raw, ok := crudOpts.values[TAG_KEY_CHOICES]; ok {
		return parseChoices(raw)
	}

	base := indirectType(t)
	switch {
	case base.Implements(chooserType):
		return reflect.Zero(base).Interface().(Chooser).Choices()
	case reflect.PointerTo(base).Implements(chooserType):
		return reflect.New(base).Interface().(Chooser).Choices()
	}
	return nil
}

// parseChoices reads "draft:Draft|live:Live" tables.
func parseChoices(raw string) []Choice {
	var choices []Choice
	for _, entry := range strings.Split(raw, "|") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		value, label, found := strings.Cut(entry, ":")
		if !found {
			label = value
		}
		choices = append(choices, Choice{Value: strings.TrimSpace(value), Label: strings.TrimSpace(label)})
	}
	return choices
}

type bunOptions struct {
	name       string
	pk         bool
	rel        RelationKind
	joinSource string
	joinTarget string
	m2mTable   string
	m2mJoin    string
}

func parseBunTag(tag string) bunOptions {
	var opts bunOptions
	if tag == "" {
		return opts
	}

	parts := strings.Split(tag, ",")
	if first := strings.TrimSpace(parts[0]); !strings.Contains(first, ":") {
		opts.name = first
		parts = parts[1:]
	}

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case part == "pk":
			opts.pk = true
		case strings.HasPrefix(part, "rel:"):
			opts.rel = RelationKind(strings.TrimPrefix(part, "rel:"))
		case strings.HasPrefix(part, "m2m:"):
			opts.rel = RelationManyToMany
			opts.m2mTable = strings.TrimPrefix(part, "m2m:")
		case strings.HasPrefix(part, "join:") && opts.m2mJoin == "":
			clause := strings.TrimPrefix(part, "join:")
			opts.m2mJoin = clause
			opts.joinSource, opts.joinTarget = parseJoinClause(clause)
		}
	}

	return opts
}

type crudOptions struct {
	flags  map[string]bool
	values map[string]string
}

func (o crudOptions) has(flag string) bool {
	return o.flags[flag]
}

func parseCrudTag(tag string) crudOptions {
	opts := crudOptions{
		flags:  map[string]bool{},
		values: map[string]string{},
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if key, value, found := strings.Cut(part, "="); found {
			opts.values[strings.TrimSpace(key)] = value
			continue
		}
		if key, value, found := strings.Cut(part, ":"); found {
			opts.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
			continue
		}
		opts.flags[part] = true
	}

	return opts
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// parseJoinClause parses join clauses like "user_id=id" or "id=order_id"
func parseJoinClause(joinClause string) (sourceCol, targetCol string) {
	parts := strings.Split(joinClause, "=")
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return "", ""
}

// getTableName derives table name from struct type following Bun conventions
func getTableName(t reflect.Type) string {
	t = baseType(t)

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.Anonymous || field.Type.Name() != "BaseModel" {
				continue
			}
			for _, part := range strings.Split(field.Tag.Get(TAG_BUN), ",") {
				if strings.HasPrefix(part, "table:") {
					return strings.TrimPrefix(part, "table:")
				}
			}
		}
	}

	return pluralizer.Plural(strcase.ToSnake(t.Name()))
}
