package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is the profile of an authenticated shopper.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Identity returns the cart identity of u. A profile without an id is keyed
// by its email; only an empty profile maps to the guest.
func (u User) Identity() Identity {
	if u.ID != "" {
		return UserIdentity(u.ID)
	}
	if email := strings.ToLower(strings.TrimSpace(u.Email)); email != "" {
		return UserIdentity("email:" + email)
	}
	return Guest
}

// OrderStatus is the backend's order state.
type OrderStatus string

const (
	OrderCancelled    OrderStatus = "cancelled"
	OrderConfirmed    OrderStatus = "confirmed"
	OrderNonConfirmed OrderStatus = "non-confirmed"
	OrderDelivered    OrderStatus = "delivered"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderCancelled:    "ملغي",
	OrderConfirmed:    "مؤكد",
	OrderNonConfirmed: "قيد المراجعة",
	OrderDelivered:    "تم التوصيل",
}

// Normalize lowercases the status.
func (s OrderStatus) Normalize() OrderStatus {
	return OrderStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Label returns the Arabic label of a known status, or the raw status.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s.Normalize()]; ok {
		return label
	}
	return string(s)
}

// Settled reports whether the order reached a final state.
func (s OrderStatus) Settled() bool {
	switch s.Normalize() {
	case OrderCancelled, OrderDelivered:
		return true
	default:
		return false
	}
}

// OrderDetail is one line of a placed order.
type OrderDetail struct {
	ID          int64           `json:"id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"product_name"`
}

// Order is a placed order as listed in the account history.
type Order struct {
	ID        int64           `json:"id"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Details   []OrderDetail   `json:"order_details"`
}

// Destination is a delivery destination with its fee.
type Destination struct {
	ID    int64           `json:"id"`
	Name  string          `json:"destination"`
	Price decimal.Decimal `json:"prix"`
}
