package bunstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-autocrud"
)

type writer struct {
	bun.BaseModel `bun:"table:writers,alias:writer"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name" crud:"display"`
}

type post struct {
	bun.BaseModel `bun:"table:posts,alias:post"`

	ID       int64   `bun:"id,pk,autoincrement"`
	Title    string  `bun:"title" crud:"display"`
	Draft    bool    `bun:"draft"`
	WriterID int64   `bun:"writer_id"`
	Writer   *writer `bun:"rel:belongs-to,join:writer_id=id" crud:"display"`
}

func seededDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	for _, model := range []any{(*writer)(nil), (*post)(nil)} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	writers := []*writer{{Name: "Ann"}, {Name: "Joanna"}, {Name: "Bob"}}
	_, err = db.NewInsert().Model(&writers).Exec(ctx)
	require.NoError(t, err)

	posts := []*post{
		{Title: "Alpha", WriterID: writers[0].ID},
		{Title: "Beta", WriterID: writers[1].ID, Draft: true},
		{Title: "Gamma", WriterID: writers[2].ID},
		{Title: "Delta", WriterID: writers[0].ID},
	}
	_, err = db.NewInsert().Model(&posts).Exec(ctx)
	require.NoError(t, err)

	return db
}

func TestCollectionFilterAndCount(t *testing.T) {
	ctx := context.Background()
	coll, err := New[post](seededDB(t), WithLogger(silentLogger{}))
	require.NoError(t, err)

	filtered := coll.Filter(autocrud.Cond("writer__name", autocrud.LookupIContains, "ann"))

	count, err := filtered.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = filtered.Exclude(autocrud.Cond("draft", autocrud.LookupExact, "true")).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCollectionFetchOrdersAndLoadsRelations(t *testing.T) {
	ctx := context.Background()
	coll, err := New[post](seededDB(t), WithLogger(silentLogger{}))
	require.NoError(t, err)

	ordered, err := coll.OrderBy("-title")
	require.NoError(t, err)

	rows, err := ordered.Fetch(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0].(*post)
	assert.Equal(t, "Delta", first.Title)
	require.NotNil(t, first.Writer)
	assert.Equal(t, "Ann", first.Writer.Name)
	assert.Equal(t, "Beta", rows[1].(*post).Title)

	all, err := ordered.Fetch(ctx, 0, -1)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCollectionDisplayNameAnnotation(t *testing.T) {
	ctx := context.Background()
	coll, err := New[post](seededDB(t), WithLogger(silentLogger{}))
	require.NoError(t, err)

	annotated := coll.Annotate(autocrud.DisplayNameField, autocrud.DisplayNameExpression(coll.Schema()))

	ordered, err := annotated.
		Filter(autocrud.Cond(autocrud.DisplayNameField, autocrud.LookupIContains, "bob")).
		OrderBy(autocrud.DisplayNameField)
	require.NoError(t, err)

	rows, err := ordered.Fetch(ctx, 0, -1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gamma", rows[0].(*post).Title)
}

func TestCollectionRejectsInvalidOrdering(t *testing.T) {
	coll, err := New[post](seededDB(t))
	require.NoError(t, err)

	_, err = coll.OrderBy("nope")
	assert.Error(t, err)
}

func TestPreloadsFollowDisplayDepth(t *testing.T) {
	coll, err := New[book](sqliteDB(t), WithRelations("Reviews"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Reviews", "Author", "Author.Company", "Tags", "Reviews"}, coll.preloads())
}
