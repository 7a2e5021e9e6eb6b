package autocrud

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Env evaluates predicates and expressions against loaded entities.
// Relations must be loaded on the entity for paths that cross them.
type Env struct {
	Schema      *Schema
	Annotations map[string]Expression
}

// Values returns every value reachable through path. Paths that cross
// to-many relations fan out; a nil relation yields a single nil.
func (e Env) Values(path string, entity any) ([]any, error) {
	if expr, ok := e.Annotations[path]; ok {
		return []any{e.Evaluate(expr, entity)}, nil
	}

	resolved, err := e.Schema.Resolve(path)
	if err != nil {
		return nil, err
	}

	return collectValues(reflect.ValueOf(entity), resolved.Steps), nil
}

// Evaluate computes x for entity.
func (e Env) Evaluate(x Expression, entity any) any {
	switch expr := x.(type) {
	case nil:
		return nil
	case F:
		values, err := e.Values(string(expr), entity)
		if err != nil || len(values) == 0 {
			return nil
		}
		return values[0]
	case Literal:
		return expr.Value
	case Concat:
		var b strings.Builder
		for _, part := range expr {
			b.WriteString(stringify(e.Evaluate(part, entity)))
		}
		return b.String()
	case Case:
		for _, when := range expr.Whens {
			if e.Match(when.Condition, entity) {
				return e.Evaluate(when.Then, entity)
			}
		}
		return e.Evaluate(expr.Default, entity)
	case Period:
		values, err := e.Values(expr.Field, entity)
		if err != nil || len(values) == 0 {
			return nil
		}
		t, ok := asTime(values[0])
		if !ok {
			return nil
		}
		return PeriodLabel(t, expr.Separator, expr.Parts...)
	}
	return nil
}

// Match reports whether entity satisfies p.
func (e Env) Match(p Predicate, entity any) bool {
	switch p.Operator {
	case OperatorCondition:
		values, err := e.Values(p.Field, entity)
		if err != nil {
			return false
		}
		return matchCondition(p.Lookup, values, p.Value)
	case OperatorAnd:
		for _, c := range p.Children {
			if !e.Match(c, entity) {
				return false
			}
		}
		return true
	case OperatorOr:
		if len(p.Children) == 0 {
			return true
		}
		for _, c := range p.Children {
			if e.Match(c, entity) {
				return true
			}
		}
		return false
	case OperatorNot:
		if len(p.Children) == 0 {
			return true
		}
		return !e.Match(p.Children[0], entity)
	}
	return true
}

func collectValues(v reflect.Value, steps []FieldDescriptor) []any {
	for v.IsValid() && v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return []any{nil}
		}
		v = v.Elem()
	}

	if !v.IsValid() || v.Kind() != reflect.Struct {
		return []any{nil}
	}

	step := steps[0]
	fv := v.FieldByIndex(step.Index)

	if len(steps) == 1 {
		switch step.Category {
		case CategoryRelationSingle:
			return []any{relatedKey(v, step, fv)}
		case CategoryRelationMulti:
			out := []any{}
			for i := 0; i < fv.Len(); i++ {
				out = append(out, PrimaryKeyValue(fv.Index(i).Interface()))
			}
			return out
		}
		return []any{plainValue(fv)}
	}

	if step.Category == CategoryRelationMulti {
		out := []any{}
		for i := 0; i < fv.Len(); i++ {
			out = append(out, collectValues(fv.Index(i), steps[1:])...)
		}
		return out
	}

	return collectValues(fv, steps[1:])
}

// relatedKey returns the primary key of a loaded to-one relation, falling
// back to the foreign key column when the relation is not loaded.
func relatedKey(owner reflect.Value, field FieldDescriptor, fv reflect.Value) any {
	if fv.Kind() == reflect.Ptr && !fv.IsNil() {
		return PrimaryKeyValue(fv.Interface())
	}
	if fv.Kind() == reflect.Struct {
		return PrimaryKeyValue(fv.Interface())
	}

	if field.JoinColumn == "" {
		return nil
	}
	schema, err := SchemaFor(owner.Type())
	if err != nil {
		return nil
	}
	if fk, ok := schema.Field(field.JoinColumn); ok {
		return plainValue(owner.FieldByIndex(fk.Index))
	}
	return nil
}

func plainValue(v reflect.Value) any {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

// PrimaryKeyValue returns the primary key of entity, or nil.
func PrimaryKeyValue(entity any) any {
	if entity == nil {
		return nil
	}
	schema, err := SchemaOf(entity)
	if err != nil {
		return nil
	}
	pk, ok := schema.PrimaryKey()
	if !ok {
		return nil
	}
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return plainValue(v.FieldByIndex(pk.Index))
}

func matchCondition(lookup Lookup, values []any, raw any) bool {
	if lookup == LookupIsNull {
		want, err := strconv.ParseBool(rawString(raw))
		if err != nil {
			return false
		}
		isNull := len(values) == 0
		for _, v := range values {
			if v == nil {
				isNull = true
			}
		}
		return isNull == want
	}

	for _, v := range values {
		if v != nil && matchValue(lookup, v, raw) {
			return true
		}
	}
	return false
}

func matchValue(lookup Lookup, stored any, raw any) bool {
	switch lookup {
	case LookupIn:
		for _, candidate := range rawList(raw) {
			if c, ok := compareRaw(stored, candidate); ok && c == 0 {
				return true
			}
		}
		return false
	case LookupExact:
		c, ok := compareRaw(stored, rawString(raw))
		return ok && c == 0
	case LookupIExact:
		return strings.EqualFold(stringify(stored), rawString(raw))
	case LookupContains:
		return strings.Contains(stringify(stored), rawString(raw))
	case LookupIContains:
		return strings.Contains(strings.ToLower(stringify(stored)), strings.ToLower(rawString(raw)))
	case LookupStartsWith:
		return strings.HasPrefix(stringify(stored), rawString(raw))
	case LookupIStartsWith:
		return strings.HasPrefix(strings.ToLower(stringify(stored)), strings.ToLower(rawString(raw)))
	case LookupEndsWith:
		return strings.HasSuffix(stringify(stored), rawString(raw))
	case LookupIEndsWith:
		return strings.HasSuffix(strings.ToLower(stringify(stored)), strings.ToLower(rawString(raw)))
	case LookupGT, LookupGTE, LookupLT, LookupLTE:
		c, ok := compareRaw(stored, rawString(raw))
		if !ok {
			return false
		}
		switch lookup {
		case LookupGT:
			return c > 0
		case LookupGTE:
			return c >= 0
		case LookupLT:
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// ParseTime reads the date and time layouts accepted in query values.
func ParseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return ParseTime(t)
	}
	return time.Time{}, false
}

// compareRaw compares a stored value against a query string, coercing
// the string to the stored value's kind.
func compareRaw(stored any, raw string) (int, bool) {
	if t, ok := stored.(time.Time); ok {
		other, ok := ParseTime(raw)
		if !ok {
			return 0, false
		}
		return t.Compare(other), true
	}

	rv := reflect.ValueOf(stored)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		other, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, false
		}
		return compareFloat(toFloat(rv), other), true
	case reflect.Bool:
		other, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, false
		}
		return compareBool(rv.Bool(), other), true
	}

	return strings.Compare(stringify(stored), raw), true
}

// CompareValues orders two stored values. Nil sorts first.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isNumber(ra.Kind()) && isNumber(rb.Kind()) {
		return compareFloat(toFloat(ra), toFloat(rb))
	}
	if ra.Kind() == reflect.Bool && rb.Kind() == reflect.Bool {
		return compareBool(ra.Bool(), rb.Bool())
	}

	return strings.Compare(stringify(a), stringify(b))
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// stringify renders a stored value the way it is compared as text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		if _, isAmount := v.(Amount); isAmount {
			return strconv.FormatFloat(float64(t.(Amount)), 'f', -1, 64)
		}
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func rawString(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	}
	return stringify(raw)
}

func rawList(raw any) []string {
	switch t := raw.(type) {
	case []string:
		return t
	case string:
		return strings.Split(t, ",")
	}
	return []string{stringify(raw)}
}
