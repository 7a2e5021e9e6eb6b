package memstore

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-autocrud"
)

type team struct {
	ID   int64  `bun:"id,pk"`
	Name string `bun:"name" crud:"display"`
}

type player struct {
	ID     int64  `bun:"id,pk"`
	Name   string `bun:"name" crud:"display"`
	Goals  int    `bun:"goals"`
	TeamID int64  `bun:"team_id"`
	Team   *team  `bun:"rel:belongs-to,join:team_id=id"`
}

func seeded(t *testing.T) *Store[player] {
	t.Helper()
	reds := &team{ID: 1, Name: "Reds"}
	blues := &team{ID: 2, Name: "Blues"}

	store, err := New(
		&player{ID: 1, Name: "Ana", Goals: 4, TeamID: 1, Team: reds},
		&player{ID: 2, Name: "Ben", Goals: 9, TeamID: 2, Team: blues},
		&player{ID: 3, Name: "Cid", Goals: 4, TeamID: 2, Team: blues},
	)
	require.NoError(t, err)
	return store
}

func names(t *testing.T, c autocrud.Collection) []string {
	t.Helper()
	rows, err := c.Fetch(context.Background(), 0, -1)
	require.NoError(t, err)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.(*player).Name
	}
	return out
}

func TestCollectionIsImmutable(t *testing.T) {
	store := seeded(t)
	base := store.Collection()

	filtered := base.Filter(autocrud.Cond("team__name", autocrud.LookupExact, "Blues"))
	assert.Equal(t, []string{"Ana", "Ben", "Cid"}, names(t, base))
	assert.Equal(t, []string{"Ben", "Cid"}, names(t, filtered))

	excluded := filtered.Exclude(autocrud.Cond("goals", autocrud.LookupGT, "5"))
	assert.Equal(t, []string{"Cid"}, names(t, excluded))
	assert.Equal(t, []string{"Ben", "Cid"}, names(t, filtered))

	assert.Same(t, base, base.Filter(autocrud.Predicate{}))
}

func TestCollectionOrderBy(t *testing.T) {
	store := seeded(t)

	c, err := store.Collection().OrderBy("-goals", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ben", "Ana", "Cid"}, names(t, c))

	c, err = store.Collection().OrderBy("team__name", "-id")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cid", "Ben", "Ana"}, names(t, c))

	_, err = store.Collection().OrderBy("nope")
	assert.Error(t, err)
}

func TestCollectionAnnotate(t *testing.T) {
	store := seeded(t)

	c := store.Collection().Annotate("label", autocrud.Concat{autocrud.F("name"), autocrud.V("@"), autocrud.F("team__name")})
	c = c.Filter(autocrud.Cond("label", autocrud.LookupIContains, "@blues"))

	c, err := c.OrderBy("-label")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cid", "Ben"}, names(t, c))
}

func TestCollectionFetchWindow(t *testing.T) {
	store := seeded(t)
	c, err := store.Collection().OrderBy("id")
	require.NoError(t, err)

	rows, err := c.Fetch(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ben", rows[0].(*player).Name)

	rows, err = c.Fetch(context.Background(), 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = c.Fetch(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.EqualValues(t, 1, store.Stats.Materialized.Load())
	assert.EqualValues(t, 3, store.Stats.Fetches.Load())
	assert.EqualValues(t, 1, store.Stats.Counts.Load())
}

func TestCollectionSnapshot(t *testing.T) {
	store := seeded(t)
	c := store.Collection()

	store.Add(&player{ID: 4, Name: "Dee"})
	assert.Equal(t, 4, store.Len())

	n, err := c.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	coll, err := store.Source()(context.Background())
	require.NoError(t, err)
	n, err = coll.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCollectionCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seeded(t).Collection().Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = seeded(t).Collection().Fetch(ctx, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
