package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_DecodesNumericAndStringPrices(t *testing.T) {
	var products []Product
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":1,"nom":"Msemen","prix":4.5,"description":"","image":"m.png"},
		{"id":2,"nom":"Baghrir","prix":"6.00","description":"","image":"b.png"}
	]`), &products))

	assert.True(t, decimal.RequireFromString("4.5").Equal(products[0].Price))
	assert.True(t, decimal.RequireFromString("6").Equal(products[1].Price))
}

func TestDiscountPercentage(t *testing.T) {
	tests := []struct {
		original, offer string
		want            int64
	}{
		{"100", "75", 25},
		{"30", "20", 33},
		{"8", "7.8", 3},  // 2.5 rounds up
		{"40", "41", -2}, // -2.5 rounds toward +inf
		{"0", "10", 0},
		{"50", "50", 0},
	}
	for _, tt := range tests {
		got := DiscountPercentage(decimal.RequireFromString(tt.original), decimal.RequireFromString(tt.offer))
		assert.Equal(t, tt.want, got, "%s -> %s", tt.original, tt.offer)
	}
}

func TestOffer_Discounted(t *testing.T) {
	var offers []Offer
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":1,"produit_id":10,"new_price":"75","start_date":"2024-01-01","end_date":"2024-02-01",
		 "produit":{"id":10,"nom":"Couscous","prix":"100","description":"royal","image":"c.png","categorie_id":3,"visible":1}},
		{"id":2,"produit_id":11,"new_price":5,"produit":{"id":11,"nom":"Hidden","prix":"10","visible":0}},
		{"id":3,"produit_id":12,"new_price":5,"produit":null}
	]`), &offers))

	d, ok := offers[0].Discounted()
	require.True(t, ok)
	assert.Equal(t, int64(10), d.ID)
	assert.Equal(t, "Couscous", d.Name)
	assert.True(t, decimal.NewFromInt(75).Equal(d.Price))
	assert.True(t, decimal.NewFromInt(100).Equal(d.OriginalPrice))
	assert.Equal(t, int64(25), d.DiscountPercentage)
	assert.Equal(t, "2024-02-01", d.EndDate)

	_, ok = offers[1].Discounted()
	assert.False(t, ok)
	_, ok = offers[2].Discounted()
	assert.False(t, ok)
}
