// Package memstore is an in-memory autocrud.Collection over Go values.
// Relations are whatever is set on the values.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-autocrud"
)

// Stats counts storage work.
type Stats struct {
	Counts       atomic.Int64
	Fetches      atomic.Int64
	Materialized atomic.Int64
}

// Store holds rows of T.
type Store[T any] struct {
	mu     sync.RWMutex
	rows   []*T
	schema *autocrud.Schema
	Stats  *Stats
}

// New returns a store seeded with rows.
func New[T any](rows ...*T) (*Store[T], error) {
	schema, err := autocrud.SchemaOf(new(T))
	if err != nil {
		return nil, err
	}
	return &Store[T]{rows: rows, schema: schema, Stats: &Stats{}}, nil
}

// Add appends rows.
func (s *Store[T]) Add(rows ...*T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Len returns the number of stored rows.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Collection opens a collection over a snapshot of the rows.
func (s *Store[T]) Collection() *Collection {
	s.mu.RLock()
	snapshot := make([]any, len(s.rows))
	for i, r := range s.rows {
		snapshot[i] = r
	}
	s.mu.RUnlock()

	return &Collection{
		schema:      s.schema,
		rows:        snapshot,
		annotations: map[string]autocrud.Expression{},
		stats:       s.Stats,
	}
}

// Source adapts the store for registration.
func (s *Store[T]) Source() autocrud.CollectionSource {
	return func(context.Context) (autocrud.Collection, error) {
		return s.Collection(), nil
	}
}

type clause struct {
	predicate autocrud.Predicate
	negate    bool
}

// Collection is immutable; builder methods return copies.
type Collection struct {
	schema      *autocrud.Schema
	rows        []any
	clauses     []clause
	order       []string
	annotations map[string]autocrud.Expression
	stats       *Stats
}

func (c *Collection) Schema() *autocrud.Schema {
	return c.schema
}

func (c *Collection) Filter(p autocrud.Predicate) autocrud.Collection {
	if p.IsEmpty() {
		return c
	}
	out := c.clone()
	out.clauses = append(out.clauses, clause{predicate: p})
	return out
}

func (c *Collection) Exclude(p autocrud.Predicate) autocrud.Collection {
	if p.IsEmpty() {
		return c
	}
	out := c.clone()
	out.clauses = append(out.clauses, clause{predicate: p, negate: true})
	return out
}

func (c *Collection) OrderBy(fields ...string) (autocrud.Collection, error) {
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

func (c *Collection) Annotate(name string, x autocrud.Expression) autocrud.Collection {
	out := c.clone()
	out.annotations[name] = x
	return out
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.stats.Counts.Add(1)
	return len(c.matching()), nil
}

func (c *Collection) Fetch(ctx context.Context, offset, limit int) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.stats.Fetches.Add(1)

	rows := c.matching()
	c.sort(rows)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []any{}, nil
	}
	end := len(rows)
	if limit >= 0 && limit < end-offset {
		end = offset + limit
	}

	page := append([]any(nil), rows[offset:end]...)
	c.stats.Materialized.Add(int64(len(page)))
	return page, nil
}

func (c *Collection) env() autocrud.Env {
	return autocrud.Env{Schema: c.schema, Annotations: c.annotations}
}

func (c *Collection) matching() []any {
	env := c.env()
	out := make([]any, 0, len(c.rows))
	for _, row := range c.rows {
		if c.match(env, row) {
			out = append(out, row)
		}
	}
	return out
}

func (c *Collection) match(env autocrud.Env, row any) bool {
	for _, cl := range c.clauses {
		if env.Match(cl.predicate, row) == cl.negate {
			return false
		}
	}
	return true
}

func (c *Collection) sort(rows []any) {
	if len(c.order) == 0 {
		return
	}
	env := c.env()

	type keyed struct {
		row  any
		keys []any
	}
	items := make([]keyed, len(rows))
	for i, row := range rows {
		keys := make([]any, len(c.order))
		for j, f := range c.order {
			keys[j] = c.sortKey(env, strings.TrimPrefix(f, "-"), row)
		}
		items[i] = keyed{row: row, keys: keys}
	}

	sort.SliceStable(items, func(a, b int) bool {
		for j, f := range c.order {
			cmp := autocrud.CompareValues(items[a].keys[j], items[b].keys[j])
			if cmp == 0 {
				continue
			}
			if strings.HasPrefix(f, "-") {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	for i := range items {
		rows[i] = items[i].row
	}
}

func (c *Collection) sortKey(env autocrud.Env, path string, row any) any {
	if x, ok := c.annotations[path]; ok {
		return env.Evaluate(x, row)
	}
	values, err := env.Values(path, row)
	if err != nil || len(values) == 0 {
		return nil
	}
	return values[0]
}

func (c *Collection) clone() *Collection {
	annotations := make(map[string]autocrud.Expression, len(c.annotations))
	for k, v := range c.annotations {
		annotations[k] = v
	}
	return &Collection{
		schema:      c.schema,
		rows:        c.rows,
		clauses:     append([]clause(nil), c.clauses...),
		order:       append([]string(nil), c.order...),
		annotations: annotations,
		stats:       c.stats,
	}
}
