package autocrud

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

const (
	OrderByParam          = "order_by"
	CheckLastUpdatedParam = "check_last_updated"
	LastUpdatedParam      = "last_updated"

	searchSuffix = PathSeparator + "search"
	notMarker    = PathSeparator + "not_"
)

// ListQuery is the filter specification built from one request.
type ListQuery struct {
	Filter  Predicate
	Exclude Predicate
	Search  Predicate
	OrderBy []string

	// Params is the effective mapping: the decoded blob when q was
	// valid, the raw parameters otherwise.
	Params map[string]string
}

// Where folds the three parts into a single predicate.
func (q ListQuery) Where() Predicate {
	return And(q.Filter, q.Search, Not(q.Exclude))
}

// Apply narrows c. An ordering the collection rejects is logged and
// replaced by fallback.
func (q ListQuery) Apply(c Collection, fallback []string, logger Logger) (Collection, error) {
	c = c.Filter(q.Filter).Filter(q.Search).Exclude(q.Exclude)

	ordered, err := c.OrderBy(q.OrderBy...)
	if err == nil {
		return ordered, nil
	}

	loggerOr(logger).Warn("order_by %v rejected, using %v: %v", q.OrderBy, fallback, err)
	return c.OrderBy(fallback...)
}

// QueryTranslator turns raw query parameters into a ListQuery.
type QueryTranslator struct {
	Logger Logger
	// SearchDepth bounds relation search below the related type.
	SearchDepth int
	// Reserved keys are consumed elsewhere and never become filters.
	Reserved []string
}

// NewQueryTranslator returns a translator with the default reserved keys.
func NewQueryTranslator(logger Logger) *QueryTranslator {
	return &QueryTranslator{
		Logger:      loggerOr(logger),
		SearchDepth: DefaultSearchDepth,
		Reserved: []string{
			QueryBlobParam,
			OrderByParam,
			DefaultPageParam,
			DefaultSizeParam,
			CheckLastUpdatedParam,
			LastUpdatedParam,
		},
	}
}

// Translate never fails: malformed input is logged and dropped.
func (t *QueryTranslator) Translate(schema *Schema, raw map[string]string) ListQuery {
	logger := loggerOr(t.Logger)

	params := raw
	if encoded := raw[QueryBlobParam]; encoded != "" {
		decoded, err := DecodeQueryBlob(encoded)
		if err != nil {
			logger.Warn("query blob ignored: %v", err)
		} else {
			params = decoded
		}
	}

	query := ListQuery{Params: params}

	var filters, excludes, searches []Predicate
	for _, key := range sortedKeys(params) {
		value := params[key]

		if key == DisplayNameField+searchSuffix {
			for _, term := range SearchTerms(value) {
				searches = append(searches, Cond(DisplayNameField, LookupIContains, term))
			}
			continue
		}

		if t.reserved(key) || !schema.Has(BaseSegment(key)) {
			continue
		}

		switch {
		case strings.HasSuffix(key, searchSuffix):
			resolved, err := schema.Resolve(strings.TrimSuffix(key, searchSuffix))
			if err != nil {
				logger.Debug("search %q ignored: %v", key, err)
				continue
			}
			searches = append(searches, searchPredicate(resolved, SearchTerms(value), t.searchDepth()))

		case strings.Contains(key, notMarker):
			if p, ok := t.condition(schema, strings.Replace(key, notMarker, PathSeparator, 1), value); ok {
				excludes = append(excludes, p)
			}

		default:
			if p, ok := t.condition(schema, key, value); ok {
				filters = append(filters, p)
			}
		}
	}

	query.Filter = And(filters...)
	query.Exclude = And(excludes...)
	query.Search = And(searches...)
	query.OrderBy = t.ordering(schema, raw, params)

	return query
}

func (t *QueryTranslator) condition(schema *Schema, key, value string) (Predicate, bool) {
	logger := loggerOr(t.Logger)

	resolved, err := schema.Resolve(key)
	if err != nil {
		logger.Debug("filter %q ignored: %v", key, err)
		return Predicate{}, false
	}

	field := resolved.Field()
	if resolved.Lookup == LookupIn {
		values := splitList(value)
		for _, v := range values {
			if !validValue(field, resolved.Lookup, v) {
				logger.Debug("filter %q ignored: bad value %q", key, v)
				return Predicate{}, false
			}
		}
		return Cond(resolved.Path(), LookupIn, values), true
	}

	if !validValue(field, resolved.Lookup, value) {
		logger.Debug("filter %q ignored: bad value %q", key, value)
		return Predicate{}, false
	}

	return Cond(resolved.Path(), resolved.Lookup, value), true
}

// ordering reads order_by from the raw parameters first, then from the
// decoded blob. Any unresolvable entry drops the whole list in favour
// of the default descending primary key.
func (t *QueryTranslator) ordering(schema *Schema, raw, params map[string]string) []string {
	var fields []string
	fields = append(fields, splitList(raw[OrderByParam])...)
	if params[OrderByParam] != raw[OrderByParam] {
		fields = append(fields, splitList(params[OrderByParam])...)
	}

	fallback := DefaultOrdering(schema)
	if len(fields) == 0 {
		return fallback
	}

	for _, f := range fields {
		if err := ValidOrdering(schema, f); err != nil {
			loggerOr(t.Logger).Warn("order_by %q ignored: %v", f, err)
			return fallback
		}
	}
	return fields
}

func (t *QueryTranslator) reserved(key string) bool {
	for _, r := range t.Reserved {
		if r == key {
			return true
		}
	}
	return false
}

func (t *QueryTranslator) searchDepth() int {
	if t.SearchDepth <= 0 {
		return DefaultSearchDepth
	}
	return t.SearchDepth
}

// DefaultOrdering is descending primary key.
func DefaultOrdering(schema *Schema) []string {
	return []string{"-" + schema.PKName()}
}

// ValidOrdering checks a single "[-]path" ordering entry.
func ValidOrdering(schema *Schema, entry string) error {
	path := strings.TrimPrefix(entry, "-")
	if path == DisplayNameField {
		return nil
	}
	resolved, err := schema.Resolve(path)
	if err != nil {
		return err
	}
	if resolved.Path() != path && path != "pk" {
		return &FieldError{Schema: schema.Name, Key: entry, Reason: "lookups cannot be ordered"}
	}
	if resolved.ToMany() {
		return &FieldError{Schema: schema.Name, Key: entry, Reason: "to-many paths cannot be ordered"}
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validValue rejects values the storage layer could not compare with
// the field, so that a typo never turns into a storage error.
func validValue(field FieldDescriptor, lookup Lookup, value string) bool {
	switch lookup {
	case LookupIsNull:
		_, err := strconv.ParseBool(value)
		return err == nil
	case LookupContains, LookupIContains, LookupStartsWith, LookupIStartsWith,
		LookupEndsWith, LookupIEndsWith, LookupIExact:
		return true
	}

	switch field.Category {
	case CategoryRelationSingle, CategoryRelationMulti:
		related, err := SchemaFor(field.Related)
		if err != nil {
			return false
		}
		pk, ok := related.PrimaryKey()
		return !ok || validValue(pk, lookup, value)
	case CategoryDate, CategoryDateTime, CategoryTime:
		_, ok := ParseTime(value)
		return ok
	}

	switch baseType(field.Type).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		_, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		return err == nil
	case reflect.Float32, reflect.Float64:
		_, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return err == nil
	case reflect.Bool:
		_, err := strconv.ParseBool(value)
		return err == nil
	}
	return true
}

// CheckLastUpdated reports whether the request only asks for a count of
// rows updated since last_updated. since is zero when last_updated is
// missing or unreadable.
func CheckLastUpdated(params map[string]string) (since time.Time, check bool) {
	if params[CheckLastUpdatedParam] == "" {
		return time.Time{}, false
	}
	since, _ = ParseTime(params[LastUpdatedParam])
	return since, true
}
