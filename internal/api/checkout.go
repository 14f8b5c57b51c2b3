package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gaarage/storefront/internal/domain"
	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// Destinations lists the delivery destinations and their fees.
func (c *Client) Destinations(ctx context.Context) ([]domain.Destination, error) {
	var destinations []domain.Destination
	if err := c.do(ctx, call{method: http.MethodGet, endpoint: "/destinations", path: "/destinations"}, &destinations); err != nil {
		return nil, err
	}
	return nonNil(destinations), nil
}

// OrderLine is one cart line of a checkout request.
type OrderLine struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// OrderRequest is the body of a checkout.
type OrderRequest struct {
	FullName    string      `json:"fullname"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	Destination int64       `json:"destination"`
	Cart        []OrderLine `json:"cart"`
}

// OrderConfirmation is what the server returns for an accepted order. Both
// fields are optional.
type OrderConfirmation struct {
	OrderID int64  `json:"order_id"`
	Message string `json:"Message"`
}

const checkoutFallbackMessage = "Failed to submit order"

// Checkout places an order. A rejected order carries the server's Message.
func (c *Client) Checkout(ctx context.Context, order OrderRequest) (OrderConfirmation, error) {
	in := call{method: http.MethodPost, endpoint: "/checkout", path: "/checkout", body: order}

	_, body, err := c.raw(ctx, in)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Status > 0 &&
			appErr.Message == fmt.Sprintf("HTTP error! status: %d", appErr.Status) {
			appErr.Message = checkoutFallbackMessage
		}
		return OrderConfirmation{}, err
	}

	var confirmation OrderConfirmation
	if err := json.Unmarshal(body, &confirmation); err != nil {
		c.logger.DebugContext(ctx, "checkout accepted without a readable body", "error", err)
	}
	return confirmation, nil
}
