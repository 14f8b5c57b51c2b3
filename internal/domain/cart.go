package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Identity scopes cart persistence. The zero value is the guest.
type Identity struct {
	UserID string
}

// Guest is the identity of a shopper without a session.
var Guest = Identity{}

// UserIdentity returns the identity of an authenticated user.
func UserIdentity(userID string) Identity {
	return Identity{UserID: userID}
}

// IsGuest reports whether i is the guest identity.
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

// String returns "guest" or "user:<id>".
func (i Identity) String() string {
	if i.IsGuest() {
		return "guest"
	}
	return "user:" + i.UserID
}

// CartKey is the key of the persisted cart snapshot for i.
func (i Identity) CartKey() string {
	return "cart:" + i.String()
}

// CartLine is one product in the cart. Name, price and image are captured when
// the product is first added and are not refreshed afterwards.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image,omitempty"`
}

// Subtotal returns quantity times unit price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineFromProduct builds a quantity-1 line from p.
func LineFromProduct(p Product) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  1,
		ImageRef:  p.Image,
	}
}

// Cart is an ordered collection of lines with unique product ids.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Total returns the sum of quantity times unit price over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// ItemCount returns the sum of quantities.
func (c *Cart) ItemCount() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// FindLine returns the index of the line for productID, or -1.
func (c *Cart) FindLine(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the lines.
func (c *Cart) Clone() []CartLine {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return lines
}

// Validate checks the invariants of a snapshot loaded from storage.
func (c *Cart) Validate() error {
	seen := make(map[int64]struct{}, len(c.Lines))
	for _, line := range c.Lines {
		if line.Quantity < 1 {
			return fmt.Errorf("product %d has quantity %d", line.ProductID, line.Quantity)
		}
		if _, dup := seen[line.ProductID]; dup {
			return fmt.Errorf("product %d appears twice", line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
	}
	return nil
}
