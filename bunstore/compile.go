package bunstore

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-autocrud"
)

// fragment is a SQL snippet with bun placeholders and its arguments.
type fragment struct {
	sql  string
	args []any
}

var (
	matchAll   = fragment{sql: "1 = 1"}
	matchNone  = fragment{sql: "1 = 0"}
	likeEscape = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
)

// compiler translates predicates and expressions for one query. It
// records the to-one relations that must be joined.
type compiler struct {
	schema      *autocrud.Schema
	dialect     dialect.Name
	annotations map[string]autocrud.Expression
	logger      autocrud.Logger

	joins map[string]bool
	subs  int
}

func newCompiler(schema *autocrud.Schema, name dialect.Name, annotations map[string]autocrud.Expression, logger autocrud.Logger) *compiler {
	return &compiler{
		schema:      schema,
		dialect:     name,
		annotations: annotations,
		logger:      logger,
		joins:       map[string]bool{},
	}
}

// relations returns the join paths in a stable order, e.g. "Author.Company".
func (c *compiler) relations() []string {
	out := make([]string, 0, len(c.joins))
	for r := range c.joins {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func (c *compiler) predicate(p autocrud.Predicate) fragment {
	switch p.Operator {
	case autocrud.OperatorCondition:
		return c.condition(p)
	case autocrud.OperatorNot:
		if len(p.Children) == 0 {
			return matchAll
		}
		inner := c.predicate(p.Children[0])
		return fragment{sql: "NOT (" + inner.sql + ")", args: inner.args}
	case autocrud.OperatorAnd, autocrud.OperatorOr:
		if len(p.Children) == 0 {
			return matchAll
		}
		sep := " AND "
		if p.Operator == autocrud.OperatorOr {
			sep = " OR "
		}
		parts := make([]string, 0, len(p.Children))
		var args []any
		for _, child := range p.Children {
			f := c.predicate(child)
			parts = append(parts, "("+f.sql+")")
			args = append(args, f.args...)
		}
		return fragment{sql: strings.Join(parts, sep), args: args}
	}
	return matchAll
}

func (c *compiler) condition(p autocrud.Predicate) fragment {
	if x, ok := c.annotations[p.Field]; ok {
		col := c.expression(x)
		return c.compare(col, autocrud.FieldDescriptor{Type: reflect.TypeOf("")}, p.Lookup, p.Value)
	}

	ref, err := c.column(p.Field)
	if err != nil {
		c.logger.Warn("condition %s dropped: %v", p, err)
		return matchAll
	}

	cond := c.compare(ref.col, ref.field, p.Lookup, p.Value)
	if ref.scope == nil {
		return cond
	}

	if p.Lookup == autocrud.LookupIsNull {
		want, _ := strconv.ParseBool(fmt.Sprint(p.Value))
		found := ref.scope.wrap(matchAll)
		if want {
			return fragment{sql: "NOT " + found.sql, args: found.args}
		}
		return found
	}
	return ref.scope.wrap(cond)
}

func (c *compiler) compare(col fragment, field autocrud.FieldDescriptor, lookup autocrud.Lookup, value any) fragment {
	raw := fmt.Sprint(value)
	text := c.asText(col)

	switch lookup {
	case autocrud.LookupExact:
		return c.binary(col, "=", coerce(field, raw))
	case autocrud.LookupGT:
		return c.binary(col, ">", coerce(field, raw))
	case autocrud.LookupGTE:
		return c.binary(col, ">=", coerce(field, raw))
	case autocrud.LookupLT:
		return c.binary(col, "<", coerce(field, raw))
	case autocrud.LookupLTE:
		return c.binary(col, "<=", coerce(field, raw))
	case autocrud.LookupIsNull:
		if want, _ := strconv.ParseBool(raw); want {
			return fragment{sql: col.sql + " IS NULL", args: col.args}
		}
		return fragment{sql: col.sql + " IS NOT NULL", args: col.args}
	case autocrud.LookupIn:
		values := inValues(value)
		if len(values) == 0 {
			return matchNone
		}
		coerced := make([]any, len(values))
		for i, v := range values {
			coerced[i] = coerce(field, v)
		}
		return fragment{sql: col.sql + " IN (?)", args: append(append([]any{}, col.args...), bun.In(coerced))}
	case autocrud.LookupIExact:
		return fragment{sql: "LOWER(" + text.sql + ") = LOWER(?)", args: append(append([]any{}, text.args...), raw)}
	case autocrud.LookupContains:
		return c.like(text, "%"+likeEscape.Replace(raw)+"%", false)
	case autocrud.LookupIContains:
		return c.like(text, "%"+likeEscape.Replace(raw)+"%", true)
	case autocrud.LookupStartsWith:
		return c.like(text, likeEscape.Replace(raw)+"%", false)
	case autocrud.LookupIStartsWith:
		return c.like(text, likeEscape.Replace(raw)+"%", true)
	case autocrud.LookupEndsWith:
		return c.like(text, "%"+likeEscape.Replace(raw), false)
	case autocrud.LookupIEndsWith:
		return c.like(text, "%"+likeEscape.Replace(raw), true)
	}
	return matchAll
}

func (c *compiler) binary(col fragment, op string, value any) fragment {
	return fragment{sql: col.sql + " " + op + " ?", args: append(append([]any{}, col.args...), value)}
}

func (c *compiler) like(text fragment, pattern string, insensitive bool) fragment {
	args := append(append([]any{}, text.args...), pattern)
	switch {
	case insensitive && c.dialect == dialect.PG:
		return fragment{sql: text.sql + ` ILIKE ? ESCAPE '\'`, args: args}
	case insensitive:
		return fragment{sql: "LOWER(" + text.sql + `) LIKE LOWER(?) ESCAPE '\'`, args: args}
	}
	return fragment{sql: text.sql + ` LIKE ? ESCAPE '\'`, args: args}
}

func (c *compiler) asText(col fragment) fragment {
	return fragment{sql: "CAST(" + col.sql + " AS TEXT)", args: col.args}
}

func (c *compiler) expression(x autocrud.Expression) fragment {
	switch expr := x.(type) {
	case autocrud.F:
		if inner, ok := c.annotations[string(expr)]; ok {
			return c.expression(inner)
		}
		ref, err := c.column(string(expr))
		if err != nil || ref.scope != nil {
			c.logger.Debug("expression %s renders null: %v", expr, err)
			return fragment{sql: "NULL"}
		}
		return ref.col
	case autocrud.Literal:
		if expr.Value == nil {
			return fragment{sql: "NULL"}
		}
		return fragment{sql: "?", args: []any{expr.Value}}
	case autocrud.Concat:
		if len(expr) == 0 {
			return fragment{sql: "''"}
		}
		parts := make([]string, 0, len(expr))
		var args []any
		for _, part := range expr {
			f := c.asText(c.expression(part))
			parts = append(parts, "COALESCE("+f.sql+", '')")
			args = append(args, f.args...)
		}
		return fragment{sql: "(" + strings.Join(parts, " || ") + ")", args: args}
	case autocrud.Case:
		var b strings.Builder
		var args []any
		b.WriteString("CASE")
		for _, when := range expr.Whens {
			cond := c.predicate(when.Condition)
			then := c.expression(when.Then)
			b.WriteString(" WHEN " + cond.sql + " THEN " + then.sql)
			args = append(args, cond.args...)
			args = append(args, then.args...)
		}
		if expr.Default != nil {
			def := c.expression(expr.Default)
			b.WriteString(" ELSE " + def.sql)
			args = append(args, def.args...)
		}
		b.WriteString(" END")
		if len(expr.Whens) == 0 {
			if expr.Default == nil {
				return fragment{sql: "NULL"}
			}
			return c.expression(expr.Default)
		}
		return fragment{sql: b.String(), args: args}
	case autocrud.Period:
		return c.period(expr)
	}
	return fragment{sql: "NULL"}
}

func (c *compiler) period(p autocrud.Period) fragment {
	ref, err := c.column(p.Field)
	if err != nil || ref.scope != nil {
		return fragment{sql: "NULL"}
	}
	col := ref.col
	dayOfYear := autocrud.DayOfYear(p.Parts)

	parts := make([]string, 0, len(p.Parts))
	var args []any
	for i, part := range p.Parts {
		if i > 0 {
			parts = append(parts, "?")
			args = append(args, p.Separator)
		}
		sql := c.datePart(part, dayOfYear)
		parts = append(parts, strings.ReplaceAll(sql, "$col", col.sql))
		for range strings.Count(sql, "$col") {
			args = append(args, col.args...)
		}
	}
	return fragment{sql: "(" + strings.Join(parts, " || ") + ")", args: args}
}

func (c *compiler) datePart(part autocrud.PeriodPart, dayOfYear bool) string {
	if c.dialect == dialect.PG {
		switch part {
		case autocrud.PartYear:
			return "to_char($col, 'YYYY')"
		case autocrud.PartQuarter:
			return "'Q' || to_char($col, 'Q')"
		case autocrud.PartMonth:
			return "to_char($col, 'MM')"
		case autocrud.PartWeek:
			return "'W' || to_char($col, 'IW')"
		case autocrud.PartWeekday:
			return "'D' || to_char($col, 'ID')"
		case autocrud.PartDay:
			if dayOfYear {
				return "to_char($col, 'DDD')"
			}
			return "to_char($col, 'DD')"
		}
		return "''"
	}

	switch part {
	case autocrud.PartYear:
		return "strftime('%Y', $col)"
	case autocrud.PartQuarter:
		return "'Q' || ((CAST(strftime('%m', $col) AS INTEGER) + 2) / 3)"
	case autocrud.PartMonth:
		return "strftime('%m', $col)"
	case autocrud.PartWeek:
		return "'W' || strftime('%V', $col)"
	case autocrud.PartWeekday:
		return "'D' || strftime('%u', $col)"
	case autocrud.PartDay:
		if dayOfYear {
			return "strftime('%j', $col)"
		}
		return "strftime('%d', $col)"
	}
	return "''"
}

// existsScope limits a condition to the rows of a to-many relation.
type existsScope struct {
	from fragment
	link fragment
}

func (e *existsScope) wrap(cond fragment) fragment {
	var args []any
	args = append(args, e.from.args...)
	args = append(args, e.link.args...)
	args = append(args, cond.args...)
	return fragment{
		sql:  "EXISTS (SELECT 1 FROM " + e.from.sql + " WHERE " + e.link.sql + " AND " + cond.sql + ")",
		args: args,
	}
}

type columnRef struct {
	col   fragment
	field autocrud.FieldDescriptor
	scope *existsScope
}

// column resolves path to a column reference. To-one relations become
// joins, a single to-many relation becomes an EXISTS scope.
func (c *compiler) column(path string) (columnRef, error) {
	resolved, err := c.schema.Resolve(path)
	if err != nil {
		return columnRef{}, err
	}

	var (
		alias   string
		goPath  []string
		aliases []string
		scope   *existsScope
	)

	steps := resolved.Steps
	for i, step := range steps {
		last := i == len(steps)-1

		switch step.Category {
		case autocrud.CategoryRelationSingle:
			if last && step.Relation == autocrud.RelationBelongsTo {
				return columnRef{col: ident(alias, step.JoinColumn), field: step, scope: scope}, nil
			}
			if scope != nil {
				return columnRef{}, fmt.Errorf("%s: relations below a to-many relation are not supported", path)
			}
			goPath = append(goPath, step.GoName)
			aliases = append(aliases, step.Name)
			c.joins[strings.Join(goPath, ".")] = true
			alias = strings.Join(aliases, "__")

			if last {
				related, err := autocrud.SchemaFor(step.Related)
				if err != nil {
					return columnRef{}, err
				}
				pk, _ := related.PrimaryKey()
				return columnRef{col: ident(alias, related.PKName()), field: pk}, nil
			}

		case autocrud.CategoryRelationMulti:
			if scope != nil {
				return columnRef{}, fmt.Errorf("%s: nested to-many relations are not supported", path)
			}
			related, err := autocrud.SchemaFor(step.Related)
			if err != nil {
				return columnRef{}, err
			}
			scope, alias, err = c.toMany(alias, step, related)
			if err != nil {
				return columnRef{}, err
			}
			if last {
				pk, _ := related.PrimaryKey()
				return columnRef{col: ident(alias, related.PKName()), field: pk, scope: scope}, nil
			}

		default:
			return columnRef{col: ident(alias, step.Name), field: step, scope: scope}, nil
		}
	}

	return columnRef{}, fmt.Errorf("%s: empty path", path)
}

func (c *compiler) toMany(outer string, step autocrud.FieldDescriptor, related *autocrud.Schema) (*existsScope, string, error) {
	c.subs++
	sub := fmt.Sprintf("sub%d", c.subs)

	switch step.Relation {
	case autocrud.RelationHasMany:
		return &existsScope{
			from: fragment{sql: "? AS ?", args: []any{bun.Ident(related.Table), bun.Ident(sub)}},
			link: joinOn(ident(sub, step.RefColumn), ident(outer, step.JoinColumn)),
		}, sub, nil

	case autocrud.RelationManyToMany:
		if step.M2M == nil || step.M2M.Table == "" {
			return nil, "", fmt.Errorf("%s: missing m2m table", step.Name)
		}
		m := sub + "_m2m"
		on := joinOn(ident(sub, related.PKName()), ident(m, step.M2M.RelatedColumn))
		from := fragment{
			sql:  "? AS ? JOIN ? AS ? ON " + on.sql,
			args: append([]any{bun.Ident(step.M2M.Table), bun.Ident(m), bun.Ident(related.Table), bun.Ident(sub)}, on.args...),
		}
		return &existsScope{
			from: from,
			link: joinOn(ident(m, step.M2M.OwnerColumn), ident(outer, c.schema.PKName())),
		}, sub, nil
	}

	return nil, "", fmt.Errorf("%s: unsupported relation %q", step.Name, step.Relation)
}

func joinOn(a, b fragment) fragment {
	return fragment{sql: a.sql + " = " + b.sql, args: append(append([]any{}, a.args...), b.args...)}
}

// ident references column on alias. The empty alias is the base table.
func ident(alias, column string) fragment {
	if alias == "" {
		return fragment{sql: "?TableAlias.?", args: []any{bun.Ident(column)}}
	}
	return fragment{sql: "?", args: []any{bun.Ident(alias + "." + column)}}
}

// coerce converts a query string to the Go type of field so drivers
// bind it with the column's type.
func coerce(field autocrud.FieldDescriptor, raw string) any {
	switch field.Category {
	case autocrud.CategoryDate, autocrud.CategoryDateTime, autocrud.CategoryTime:
		if t, ok := autocrud.ParseTime(raw); ok {
			return t
		}
		return raw
	}

	if field.Type == nil {
		return raw
	}
	t := field.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return n
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return f
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

func inValues(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return strings.Split(v, ",")
	}
	return []string{fmt.Sprint(value)}
}
