package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gaarage/storefront/internal/domain"
	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// AuthResult is a successful login.
type AuthResult struct {
	Token string
	User  domain.User
}

// flexID accepts ids sent as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// userPayload is the user shape of the auth endpoints. The details endpoint
// names the address "address", the login and update endpoints "adresse".
type userPayload struct {
	ID       flexID `json:"id"`
	FullName string `json:"full name"`
	Email    string `json:"email"`
	Phone    string `json:"telephone"`
	Address  string `json:"address"`
	Adresse  string `json:"adresse"`
}

func (p userPayload) user() domain.User {
	address := p.Address
	if address == "" {
		address = p.Adresse
	}
	return domain.User{
		ID:       string(p.ID),
		FullName: p.FullName,
		Email:    p.Email,
		Phone:    p.Phone,
		Address:  address,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

type loginResponse struct {
	userPayload
	Token string `json:"Token"`
}

// Login exchanges credentials for a bearer token. It does not install the
// token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	in := call{
		method:   http.MethodPost,
		endpoint: "/auth/login",
		path:     "/auth/login",
		body:     loginRequest{Email: email, Password: password, DeviceID: c.deviceID},
	}

	var resp loginResponse
	if err := c.do(ctx, in, &resp); err != nil {
		return AuthResult{}, err
	}
	if resp.Token == "" {
		return AuthResult{}, apperrors.Unauthorized("Authentication token not found in response")
	}

	user := resp.user()
	user.Email = email
	return AuthResult{Token: resp.Token, User: user}, nil
}

type registerRequest struct {
	FullName             string `json:"nom_complet"`
	Email                string `json:"email"`
	Phone                string `json:"telephone"`
	Address              string `json:"adresse"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register creates an account. Callers log in afterwards.
func (c *Client) Register(ctx context.Context, form domain.RegisterForm) error {
	in := call{
		method:   http.MethodPost,
		endpoint: "/auth/register",
		path:     "/auth/register",
		body: registerRequest{
			FullName:             form.FullName,
			Email:                form.Email,
			Phone:                form.Phone,
			Address:              form.Address,
			Password:             form.Password,
			PasswordConfirmation: form.ConfirmPassword,
		},
	}
	return c.do(ctx, in, nil)
}

// Logout revokes the current token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, endpoint: "/auth/logout", path: "/auth/logout"}, nil)
}

// UserDetails fetches the profile of the token holder.
func (c *Client) UserDetails(ctx context.Context) (domain.User, error) {
	var resp userPayload
	if err := c.do(ctx, call{method: http.MethodGet, endpoint: "/auth/details", path: "/auth/details"}, &resp); err != nil {
		return domain.User{}, err
	}
	return resp.user(), nil
}

type updateRequest struct {
	FullName *string `json:"nom_complet,omitempty"`
	Phone    *string `json:"telephone,omitempty"`
	Address  *string `json:"adresse,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// UpdateProfile sends the set fields of update and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	in := call{
		method:   http.MethodPost,
		endpoint: "/auth/update",
		path:     "/auth/update",
		body: updateRequest{
			FullName: update.FullName,
			Phone:    update.Phone,
			Address:  update.Address,
			Email:    update.Email,
		},
	}

	var resp userPayload
	if err := c.do(ctx, in, &resp); err != nil {
		return domain.User{}, err
	}
	return resp.user(), nil
}

type changePasswordRequest struct {
	Current      string `json:"current_password"`
	New          string `json:"new_password"`
	Confirmation string `json:"new_password_confirmation"`
}

// ChangePassword replaces the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	in := call{
		method:   http.MethodPost,
		endpoint: "/auth/changePassword",
		path:     "/auth/changePassword",
		body:     changePasswordRequest{Current: current, New: next, Confirmation: next},
	}
	return c.do(ctx, in, nil)
}

type ordersResponse struct {
	Orders []struct {
		Order struct {
			ID        int64  `json:"id"`
			Status    string `json:"status"`
			CreatedAt string `json:"created_at"`
			Details   []struct {
				ID          int64           `json:"id"`
				Quantity    int             `json:"quantity"`
				Price       decimal.Decimal `json:"price"`
				ProductName string          `json:"product_name"`
			} `json:"orderDetails"`
		} `json:"order"`
		TotalPrice decimal.Decimal `json:"total_price"`
	} `json:"orders"`
}

var orderTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseOrderTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range orderTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// Orders lists the order history of the token holder. A 404 or a body that
// cannot be read as an order list yields an empty history; other failures
// are returned so callers can react to an expired session.
func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	in := call{method: http.MethodGet, endpoint: "/auth/getOrdersByPhone", path: "/auth/getOrdersByPhone"}

	_, body, err := c.raw(ctx, in)
	if err != nil {
		if apperrors.StatusCode(err) == http.StatusNotFound {
			return []domain.Order{}, nil
		}
		return nil, err
	}

	var resp ordersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.WarnContext(ctx, "discarding malformed order history", "error", err)
		return []domain.Order{}, nil
	}

	orders := make([]domain.Order, 0, len(resp.Orders))
	for _, entry := range resp.Orders {
		order := domain.Order{
			ID:        entry.Order.ID,
			Total:     entry.TotalPrice,
			Status:    domain.OrderStatus(entry.Order.Status),
			CreatedAt: parseOrderTime(entry.Order.CreatedAt),
			Details:   make([]domain.OrderDetail, 0, len(entry.Order.Details)),
		}
		for _, d := range entry.Order.Details {
			order.Details = append(order.Details, domain.OrderDetail{
				ID:          d.ID,
				Quantity:    d.Quantity,
				Price:       d.Price,
				ProductName: d.ProductName,
			})
		}
		orders = append(orders, order)
	}
	return orders, nil
}
