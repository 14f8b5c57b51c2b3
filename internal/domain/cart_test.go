package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestIdentity(t *testing.T) {
	assert.True(t, Guest.IsGuest())
	assert.Equal(t, "guest", Guest.String())
	assert.Equal(t, "cart:guest", Guest.CartKey())

	u := UserIdentity("42")
	assert.False(t, u.IsGuest())
	assert.Equal(t, "user:42", u.String())
	assert.Equal(t, "cart:user:42", u.CartKey())
	assert.Equal(t, u, User{ID: "42"}.Identity())
}

func TestUser_IdentityWithoutID(t *testing.T) {
	byEmail := User{Email: " Amal@Example.com "}.Identity()
	assert.False(t, byEmail.IsGuest())
	assert.Equal(t, "cart:user:email:amal@example.com", byEmail.CartKey())

	assert.Equal(t, UserIdentity("7"), User{ID: "7", Email: "amal@example.com"}.Identity())
	assert.Equal(t, Guest, User{}.Identity())
}

func TestCart_TotalAndItemCount(t *testing.T) {
	c := &Cart{Lines: []CartLine{
		{ProductID: 1, UnitPrice: price("12.50"), Quantity: 2},
		{ProductID: 2, UnitPrice: price("7.25"), Quantity: 3},
		{ProductID: 3, UnitPrice: price("0"), Quantity: 5},
	}}

	assert.True(t, price("46.75").Equal(c.Total()), "got %s", c.Total())
	assert.Equal(t, 10, c.ItemCount())
}

func TestCart_Empty(t *testing.T) {
	c := &Cart{}
	assert.True(t, c.Total().IsZero())
	assert.Equal(t, 0, c.ItemCount())
	assert.Equal(t, -1, c.FindLine(1))
	assert.Empty(t, c.Clone())
}

func TestCart_TotalAvoidsFloatDrift(t *testing.T) {
	c := &Cart{Lines: []CartLine{
		{ProductID: 1, UnitPrice: price("0.1"), Quantity: 1},
		{ProductID: 2, UnitPrice: price("0.2"), Quantity: 1},
	}}
	assert.Equal(t, "0.3", c.Total().String())
}

func TestCart_FindLineAndClone(t *testing.T) {
	c := &Cart{Lines: []CartLine{{ProductID: 7, Quantity: 1}, {ProductID: 9, Quantity: 4}}}
	assert.Equal(t, 1, c.FindLine(9))

	clone := c.Clone()
	clone[0].Quantity = 99
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestCart_Validate(t *testing.T) {
	assert.NoError(t, (&Cart{Lines: []CartLine{{ProductID: 1, Quantity: 1}}}).Validate())
	assert.Error(t, (&Cart{Lines: []CartLine{{ProductID: 1, Quantity: 0}}}).Validate())
	assert.Error(t, (&Cart{Lines: []CartLine{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}}}).Validate())
}

func TestLineFromProduct(t *testing.T) {
	line := LineFromProduct(Product{ID: 5, Name: "Tajine", Price: price("45"), Image: "tajine.png"})
	assert.Equal(t, CartLine{ProductID: 5, Name: "Tajine", UnitPrice: price("45"), Quantity: 1, ImageRef: "tajine.png"}, line)
}

func TestCartLine_JSONSnapshot(t *testing.T) {
	lines := []CartLine{{ProductID: 3, Name: "Harira", UnitPrice: price("15.5"), Quantity: 2, ImageRef: "h.png"}}
	data, err := json.Marshal(lines)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"product_id":3,"name":"Harira","unit_price":"15.5","quantity":2,"image":"h.png"}]`, string(data))
}
