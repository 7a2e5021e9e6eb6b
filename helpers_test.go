package autocrud_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-autocrud"
)

type shipment struct {
	ID       int64 `bun:"id,pk"`
	SenderID int64 `bun:"sender_id"`
	TargetID int64 `bun:"target_id"`
}

func TestCannotEqual(t *testing.T) {
	c, err := autocrud.CannotEqual("sender_id", "target_id", "Shipment", "")
	require.NoError(t, err)

	assert.Equal(t, "shipment_cannot_equal_sender_id_target_id", c.Name)
	assert.Equal(t, `CONSTRAINT "shipment_cannot_equal_sender_id_target_id" CHECK (NOT ("sender_id" = "target_id"))`, c.SQL())

	assert.True(t, c.Violated(&shipment{SenderID: 4, TargetID: 4}))
	assert.False(t, c.Violated(&shipment{SenderID: 4, TargetID: 5}))

	named, err := autocrud.CannotEqual("a", "b", "", "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", named.Name)

	_, err = autocrud.CannotEqual("a", "b", "", "")
	assert.Error(t, err)
}

func TestChoiceHelpers(t *testing.T) {
	choices := status("").Choices()

	value, ok := autocrud.ChoiceValue(choices, "Published")
	assert.True(t, ok)
	assert.Equal(t, "live", value)

	_, ok = autocrud.ChoiceValue(choices, "Gone")
	assert.False(t, ok)

	assert.Equal(t, map[string]any{"Draft": "draft", "Published": "live"}, autocrud.InvertChoices(choices))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "₱1234.50", autocrud.Amount(1234.5).String())
}

func TestAdminDefaults(t *testing.T) {
	schema := autocrud.MustSchemaFor(reflect.TypeOf(order{}))
	admin := autocrud.DefaultAdmin(schema, reflect.TypeOf(&label{}))

	assert.NotContains(t, admin.ListDisplay, "labels")
	assert.Contains(t, admin.ListDisplay, "customer")
	require.Len(t, admin.Inlines, 1)
	assert.Equal(t, autocrud.Inline{Model: reflect.TypeOf(label{}), Name: "labelInline", Extra: 1}, admin.Inlines[0])

	assert.True(t, admin.CanDelete(&order{ID: 10}))
	assert.False(t, admin.CanDelete(&order{ID: autocrud.DefaultDeleteProtectedAbove + 1}))
	assert.True(t, admin.CanDelete(nil))
}

func TestSerializer(t *testing.T) {
	schema := autocrud.MustSchemaFor(reflect.TypeOf(order{}))
	s := autocrud.NewSerializer(schema, autocrud.Computed("labelled", func(o order) any { return len(o.Labels) > 0 }))
	s.Omit = []string{"updated_at"}

	o := seedOrders()[0]
	o.Slot = day("2024-01-01").Add(9*time.Hour + 30*time.Minute)
	out := s.Serialize(o)

	assert.Equal(t, int64(1), out["id"])
	assert.Equal(t, "2024-01-15", out["placed"])
	assert.Equal(t, "09:30:00", out["slot"])
	assert.Nil(t, out["delivered"])
	assert.Equal(t, float64(10), out["total"])
	assert.Equal(t, int64(1), out["customer"])
	assert.Equal(t, []any{int64(1)}, out["labels"])
	assert.Equal(t, true, out["labelled"])
	assert.Equal(t, "A-1 Draft Active Bob", out["display_name"])
	assert.NotContains(t, out, "updated_at")
	assert.NotContains(t, out, "customer_id")

	// an unloaded relation falls back to the foreign key
	o.Customer = nil
	assert.Equal(t, int64(1), s.Serialize(o)["customer"])

	assert.Nil(t, s.Serialize(nil))
	assert.Len(t, s.SerializeMany([]any{o, nil, seedOrders()[1]}), 2)
}
