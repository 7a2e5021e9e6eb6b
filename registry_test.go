package autocrud_test

import (
	"errors"
	"reflect"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-autocrud"
	"github.com/goliatone/go-autocrud/memstore"
)

type OrderItem struct {
	ID int64 `bun:"id,pk"`
}

type AuditLog struct {
	ID int64 `bun:"id,pk"`
}

type renamed struct {
	ID int64 `bun:"id,pk" crud:"resource:person"`
}

func orderSource(t *testing.T) autocrud.CollectionSource {
	t.Helper()
	store, err := memstore.New(seedOrders()...)
	require.NoError(t, err)
	return store.Source()
}

func TestResourceName(t *testing.T) {
	name, plural := autocrud.ResourceName(reflect.TypeOf(OrderItem{}))
	assert.Equal(t, "order-item", name)
	assert.Equal(t, "order-items", plural)

	name, plural = autocrud.ResourceName(reflect.TypeOf(&renamed{}))
	assert.Equal(t, "person", name)
	assert.Equal(t, "people", plural)
}

func TestRegister(t *testing.T) {
	registry := autocrud.NewRegistry(autocrud.WithLogger(silentLogger{}))

	res, err := autocrud.Register[order](registry, orderSource(t))
	require.NoError(t, err)

	assert.Equal(t, "order", res.Name)
	assert.Equal(t, "/orders", res.Route)
	require.NotNil(t, res.ViewSet)
	assert.Same(t, res.Serializer, res.ViewSet.Serializer)

	found, ok := registry.Lookup("/orders")
	assert.True(t, ok)
	assert.Same(t, res, found)

	found, ok = registry.ResourceFor(reflect.TypeOf(&order{}))
	assert.True(t, ok)
	assert.Same(t, res, found)

	_, ok = registry.Lookup("widgets")
	assert.False(t, ok)
}

func TestRegisterConflicts(t *testing.T) {
	registry := autocrud.NewRegistry(autocrud.WithLogger(silentLogger{}))

	_, err := autocrud.Register[order](registry, orderSource(t))
	require.NoError(t, err)

	_, err = autocrud.Register[order](registry, orderSource(t))
	require.Error(t, err)

	var typed *goerrors.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, 409, typed.Code)
	assert.Equal(t, "/orders", typed.Metadata["route"])

	_, err = autocrud.Register[Widget](registry, orderSource(t), autocrud.WithResourceName("orders"))
	require.Error(t, err)
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, "order", typed.Metadata["existing_type"])
}

func TestRegisterExcluded(t *testing.T) {
	registry := autocrud.NewRegistry(
		autocrud.WithLogger(silentLogger{}),
		autocrud.WithExcludedModels("Audit*", "*Item"),
	)

	_, err := autocrud.Register[AuditLog](registry, orderSource(t))
	assert.ErrorIs(t, err, autocrud.ErrExcluded)

	_, err = autocrud.Register[OrderItem](registry, orderSource(t))
	assert.ErrorIs(t, err, autocrud.ErrExcluded)

	_, err = autocrud.Register[Widget](registry, orderSource(t))
	assert.NoError(t, err)

	assert.Len(t, registry.Resources(), 1)
}

func TestResourcesSorted(t *testing.T) {
	registry := autocrud.NewRegistry(autocrud.WithLogger(silentLogger{}))

	for _, register := range []func() error{
		func() error { _, err := autocrud.Register[Widget](registry, orderSource(t)); return err },
		func() error { _, err := autocrud.Register[order](registry, orderSource(t)); return err },
		func() error { _, err := autocrud.Register[company](registry, orderSource(t)); return err },
	} {
		require.NoError(t, register())
	}

	var routes []string
	for _, res := range registry.Resources() {
		routes = append(routes, res.Route)
	}
	assert.Equal(t, []string{"/companies", "/orders", "/widgets"}, routes)
}

func TestResourceOptions(t *testing.T) {
	registry := autocrud.NewRegistry(autocrud.WithLogger(silentLogger{}))

	res, err := autocrud.Register[order](registry, orderSource(t),
		autocrud.WithInlines(label{}),
		autocrud.WithComputed(autocrud.Computed("label_count", func(o *order) any { return len(o.Labels) })),
		autocrud.WithAdmin(func(a *autocrud.AdminConfig) {
			a.ListDisplay = []string{"code", "status"}
		}),
	)
	require.NoError(t, err)

	require.Len(t, res.Admin.Inlines, 1)
	assert.Equal(t, "labelInline", res.Admin.Inlines[0].Name)
	assert.Equal(t, []string{"code", "status"}, res.Admin.ListDisplay)

	out := res.Serializer.Serialize(seedOrders()[2])
	assert.Equal(t, 2, out["label_count"])
}
