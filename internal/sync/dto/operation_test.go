package dto

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/fekuna/pantry-service/internal/model"
	"github.com/fekuna/pantry-service/internal/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(id, typ, data string, version int64) ClientOperation {
	return ClientOperation{ID: id, Type: typ, Data: json.RawMessage(data), Version: version}
}

func TestDecodeInventoryAdjustment(t *testing.T) {
	ops := DecodeOperations([]ClientOperation{
		op("1", "INVENTORY_ADJUSTMENT", `{"itemId":"a","action":"ADD","quantity":2.5,"unit":"kg","price":"3.99"}`, 0),
		op("2", "inventory_adjustment", `{"itemId":"a","quantity":0,"unit":"g","price":12.345}`, 0),
	})
	require.Len(t, ops, 2)

	require.NoError(t, ops[0].Err)
	adj, ok := ops[0].Payload.(*InventoryAdjustment)
	require.True(t, ok)
	assert.Equal(t, ActionAdd, adj.Action)
	assert.Equal(t, 2.5, *adj.Quantity)
	require.NotNil(t, adj.CostMinor)
	assert.Equal(t, int64(399), *adj.CostMinor)
	assert.Equal(t, "a", ops[0].ItemID())

	require.NoError(t, ops[1].Err)
	set := ops[1].Payload.(*InventoryAdjustment)
	assert.Equal(t, ActionSet, set.Action)
	assert.Equal(t, int64(1235), *set.CostMinor)
}

func TestDecodeErrorsStayPerOperation(t *testing.T) {
	ops := DecodeOperations([]ClientOperation{
		op("1", "INVENTORY_ADJUSTMENT", `{"itemId":"a","unit":"g"}`, 0),
		op("2", "INVENTORY_ADJUSTMENT", `{"itemId":"a","quantity":1,"action":"borrow"}`, 0),
		op("3", "INVENTORY_ADJUSTMENT", `{"itemId":"a","quantity":1,"price":"-1"}`, 0),
		op("4", "ITEM_UPDATE", `{"name":"x"}`, 1),
		op("5", "ITEM_DELETE", ``, 1),
		op("6", "ITEM_CREATE", `{"name":"Milk"}`, 0),
		op("7", "ITEM_CREATE", `[1,2]`, 0),
		op("8", "RECIPE_COOK", `{}`, 0),
		op("9", "ITEM_DELETE", `{"itemId":"b"}`, 3),
	})
	require.Len(t, ops, 9)

	for _, o := range ops[:7] {
		assert.ErrorIs(t, o.Err, model.ErrInvalidPayload, "operation %s", o.Client.ID)
	}
	assert.ErrorIs(t, ops[7].Err, model.ErrUnsupportedOperationType)
	assert.IsType(t, &UnsupportedOperation{}, ops[7].Payload)

	require.NoError(t, ops[8].Err)
	assert.Equal(t, "b", ops[8].ItemID())
	assert.Equal(t, int64(3), ops[8].Client.Version)
}

func TestDecodeNonFiniteQuantity(t *testing.T) {
	p := &InventoryAdjustment{ItemID: "a", Quantity: new(float64)}
	require.NoError(t, p.validate())

	bad := math.Inf(1)
	p = &InventoryAdjustment{ItemID: "a", Quantity: &bad}
	assert.ErrorIs(t, p.validate(), unit.ErrInvalidQuantity)
}

func TestDecodeItemCreate(t *testing.T) {
	ops := DecodeOperations([]ClientOperation{
		op("1", "ITEM_CREATE", `{"id":"c0ffee","name":"Milk","preferredUnit":"l","minimumQuantity":1,"category":"dairy"}`, 0),
	})
	require.NoError(t, ops[0].Err)
	c := ops[0].Payload.(*ItemCreate)
	assert.Equal(t, "Milk", c.Name)
	assert.Equal(t, "l", c.PreferredUnit)
	assert.Equal(t, 1.0, *c.MinimumQuantity)
	assert.Equal(t, "dairy", *c.Category)
	assert.Equal(t, "c0ffee", ops[0].ItemID())
}
