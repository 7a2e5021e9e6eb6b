package autocrud

import "context"

// Collection is the storage contract of a listing. Builder methods
// return a narrowed collection and never touch storage; Count and
// Fetch run the query. Storage errors are returned unmodified.
type Collection interface {
	Schema() *Schema

	// Filter keeps the rows matching p. An empty predicate is a no-op.
	Filter(p Predicate) Collection
	// Exclude drops the rows matching p. An empty predicate is a no-op.
	Exclude(p Predicate) Collection
	// OrderBy replaces the ordering. Entries are field paths, a leading
	// "-" sorts descending. Unknown paths are an error.
	OrderBy(fields ...string) (Collection, error)
	// Annotate adds a computed column that predicates and orderings can
	// reference by name.
	Annotate(name string, x Expression) Collection

	Count(ctx context.Context) (int, error)
	// Fetch loads rows in order. A negative limit loads every row from offset.
	Fetch(ctx context.Context, offset, limit int) ([]any, error)
}

// CollectionSource opens a fresh collection for one request.
type CollectionSource func(ctx context.Context) (Collection, error)

// First returns the first row of c, or nil when c is empty.
func First(ctx context.Context, c Collection) (any, error) {
	rows, err := c.Fetch(ctx, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
