// Package bunstore implements autocrud.Collection on top of a bun
// database. Predicates and annotations compile to SQL; display names
// are computed from the loaded relations.
package bunstore

import (
	"context"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-autocrud"
)

type clause struct {
	predicate autocrud.Predicate
	negate    bool
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	logger  autocrud.Logger
	preload []string
}

// WithLogger sets the logger used for dropped conditions.
func WithLogger(logger autocrud.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRelations loads extra relations on fetched rows, e.g. "Author.Company".
func WithRelations(relations ...string) Option {
	return func(o *options) {
		o.preload = append(o.preload, relations...)
	}
}

// Collection is an immutable query over the table of T.
type Collection[T any] struct {
	db          bun.IDB
	schema      *autocrud.Schema
	dialect     dialect.Name
	clauses     []clause
	order       []string
	annotations map[string]autocrud.Expression
	opts        options
}

// New opens a collection over every row of T.
func New[T any](db bun.IDB, opts ...Option) (*Collection[T], error) {
	schema, err := autocrud.SchemaOf(new(T))
	if err != nil {
		return nil, err
	}

	o := options{logger: autocrud.DefaultLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Collection[T]{
		db:          db,
		schema:      schema,
		dialect:     db.Dialect().Name(),
		annotations: map[string]autocrud.Expression{},
		opts:        o,
	}, nil
}

// Source adapts New for registration.
func Source[T any](db bun.IDB, opts ...Option) autocrud.CollectionSource {
	return func(context.Context) (autocrud.Collection, error) {
		return New[T](db, opts...)
	}
}

func (c *Collection[T]) Schema() *autocrud.Schema {
	return c.schema
}

func (c *Collection[T]) Filter(p autocrud.Predicate) autocrud.Collection {
	if p.IsEmpty() {
		return c
	}
	out := c.clone()
	out.clauses = append(out.clauses, clause{predicate: p})
	return out
}

func (c *Collection[T]) Exclude(p autocrud.Predicate) autocrud.Collection {
	if p.IsEmpty() {
		return c
	}
	out := c.clone()
	out.clauses = append(out.clauses, clause{predicate: p, negate: true})
	return out
}

func (c *Collection[T]) OrderBy(fields ...string) (autocrud.Collection, error) {
	for _, f := range fields {
		if _, ok := c.annotations[strings.TrimPrefix(f, "-")]; ok {
			continue
		}
		if err := autocrud.ValidOrdering(c.schema, f); err != nil {
			return nil, err
		}
	}
	out := c.clone()
	out.order = append([]string(nil), fields...)
	return out, nil
}

func (c *Collection[T]) Annotate(name string, x autocrud.Expression) autocrud.Collection {
	out := c.clone()
	out.annotations[name] = x
	return out
}

func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	var rows []*T
	q := c.db.NewSelect().Model(&rows)

	comp := c.compiler()
	c.where(q, comp)
	for _, rel := range comp.relations() {
		q = q.Relation(rel)
	}
	return q.Count(ctx)
}

func (c *Collection[T]) Fetch(ctx context.Context, offset, limit int) ([]any, error) {
	var rows []*T
	q := c.db.NewSelect().Model(&rows)

	comp := c.compiler()
	c.where(q, comp)
	c.orderBy(q, comp)

	relations := map[string]bool{}
	for _, rel := range comp.relations() {
		relations[rel] = true
	}
	for _, rel := range c.preloads() {
		relations[rel] = true
	}
	names := make([]string, 0, len(relations))
	for rel := range relations {
		names = append(names, rel)
	}
	sort.Strings(names)
	for _, rel := range names {
		q = q.Relation(rel)
	}

	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit >= 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out, nil
}

func (c *Collection[T]) compiler() *compiler {
	return newCompiler(c.schema, c.dialect, c.annotations, c.opts.logger)
}

func (c *Collection[T]) where(q *bun.SelectQuery, comp *compiler) {
	for _, cl := range c.clauses {
		f := comp.predicate(cl.predicate)
		if cl.negate {
			q.Where("NOT ("+f.sql+")", f.args...)
			continue
		}
		q.Where(f.sql, f.args...)
	}
}

func (c *Collection[T]) orderBy(q *bun.SelectQuery, comp *compiler) {
	for _, entry := range c.order {
		name := strings.TrimPrefix(entry, "-")
		dir := " ASC"
		if strings.HasPrefix(entry, "-") {
			dir = " DESC"
		}

		var f fragment
		if x, ok := c.annotations[name]; ok {
			f = comp.expression(x)
		} else {
			ref, err := comp.column(name)
			if err != nil || ref.scope != nil {
				c.opts.logger.Warn("ordering %s dropped: %v", entry, err)
				continue
			}
			f = ref.col
		}
		q.OrderExpr(f.sql+dir, f.args...)
	}
}

// preloads returns the relations needed to serialize rows: every
// to-one relation reachable within the display depth and the direct
// to-many relations.
func (c *Collection[T]) preloads() []string {
	out := append([]string(nil), c.opts.preload...)

	var walk func(s *autocrud.Schema, prefix string, depth int, visited map[*autocrud.Schema]bool)
	walk = func(s *autocrud.Schema, prefix string, depth int, visited map[*autocrud.Schema]bool) {
		if depth <= 0 || visited[s] {
			return
		}
		visited[s] = true
		defer delete(visited, s)

		for _, f := range s.Fields {
			if !f.Category.IsRelation() {
				continue
			}
			name := f.GoName
			if prefix != "" {
				name = prefix + "." + f.GoName
			}
			if f.Category == autocrud.CategoryRelationMulti {
				if prefix == "" {
					out = append(out, name)
				}
				continue
			}
			out = append(out, name)
			related, err := autocrud.SchemaFor(f.Related)
			if err != nil {
				continue
			}
			walk(related, name, depth-1, visited)
		}
	}
	walk(c.schema, "", autocrud.DefaultDisplayDepth, map[*autocrud.Schema]bool{})

	return out
}

func (c *Collection[T]) clone() *Collection[T] {
	annotations := make(map[string]autocrud.Expression, len(c.annotations))
	for k, v := range c.annotations {
		annotations[k] = v
	}
	return &Collection[T]{
		db:          c.db,
		schema:      c.schema,
		dialect:     c.dialect,
		clauses:     append([]clause(nil), c.clauses...),
		order:       append([]string(nil), c.order...),
		annotations: annotations,
		opts:        c.opts,
	}
}
