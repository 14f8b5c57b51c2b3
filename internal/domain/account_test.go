package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_Label(t *testing.T) {
	assert.Equal(t, "ملغي", OrderCancelled.Label())
	assert.Equal(t, "مؤكد", OrderStatus("Confirmed").Label())
	assert.Equal(t, "قيد المراجعة", OrderStatus(" non-confirmed ").Label())
	assert.Equal(t, "تم التوصيل", OrderDelivered.Label())
	assert.Equal(t, "shipped", OrderStatus("shipped").Label())
}

func TestOrderStatus_Settled(t *testing.T) {
	assert.True(t, OrderStatus("DELIVERED").Settled())
	assert.True(t, OrderCancelled.Settled())
	assert.False(t, OrderConfirmed.Settled())
	assert.False(t, OrderStatus("").Settled())
}

func TestProfileUpdate_Empty(t *testing.T) {
	assert.True(t, ProfileUpdate{}.Empty())
	phone := "0612345678"
	assert.False(t, ProfileUpdate{Phone: &phone}.Empty())
}
