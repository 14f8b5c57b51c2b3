package storefronttest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gaarage/storefront/internal/domain"
)

func (b *Backend) getZones(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	zones := append([]domain.Zone{}, b.zones...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, zones)
}

func (b *Backend) getCategories(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	categories := append([]domain.Category{}, b.categories[pathID(r, "zone")]...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, categories)
}

func (b *Backend) getProducts(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	all := b.products[productKey(pathID(r, "category"), pathID(r, "zone"))]
	bare := b.bareProducts
	b.mu.Unlock()

	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 10)

	start := (page - 1) * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	items := append([]domain.Product{}, all[start:end]...)

	if bare {
		writeJSON(w, http.StatusOK, items)
		return
	}

	lastPage := (len(all) + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":         items,
		"current_page": page,
		"last_page":    lastPage,
		"total":        len(all),
		"per_page":     perPage,
	})
}

func (b *Backend) getOffers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	body := b.offers
	b.mu.Unlock()

	if raw, ok := body.(string); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) getHero(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	hero, ok := b.heroes[pathID(r, "id")]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Hero not found"})
		return
	}
	writeJSON(w, http.StatusOK, hero)
}

func (b *Backend) searchProducts(w http.ResponseWriter, r *http.Request) {
	term, err := url.PathUnescape(chi.URLParam(r, "term"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid search term"})
		return
	}
	term = strings.ToLower(term)

	b.mu.Lock()
	var found []domain.Product
	for _, products := range b.products {
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), term) {
				found = append(found, p)
			}
		}
	}
	b.mu.Unlock()

	if found == nil {
		found = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (b *Backend) getDestinations(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	destinations := append([]domain.Destination{}, b.destinations...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, destinations)
}

func (b *Backend) checkout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName    string `json:"fullname"`
		Destination int64  `json:"destination"`
		Cart        []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"cart"`
	}
	raw, _ := readBody(r)
	if err := json.Unmarshal(raw, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"Message": "Invalid request body"})
		return
	}
	if len(body.Cart) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"Message": "Cart is empty"})
		return
	}

	b.mu.Lock()
	b.placed = append(b.placed, raw)
	orderID := len(b.placed)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"Message": "Order placed", "order_id": orderID})
}

type accountKey struct{}

// authenticated rejects requests without a valid, unrevoked bearer token.
func (b *Backend) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(Secret), nil
		})

		b.mu.Lock()
		revoked := b.revoked[tokenString]
		account := b.accountByID(claims.Subject)
		b.mu.Unlock()

		if err != nil || !token.Valid || revoked || account == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}

		ctx := context.WithValue(r.Context(), accountKey{}, account)
		next(w, r.WithContext(ctx))
	}
}

// accountByID must be called with b.mu held.
func (b *Backend) accountByID(subject string) *Account {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil
	}
	for _, a := range b.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		DeviceID string `json:"device_id"`
	}
	raw, _ := readBody(r)
	_ = json.Unmarshal(raw, &body)

	b.mu.Lock()
	account, ok := b.accounts[strings.ToLower(body.Email)]
	var snapshot Account
	if ok {
		snapshot = *account
	}
	ttl := b.TokenTTL
	b.mu.Unlock()

	if !ok || snapshot.Password != body.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"Token":     IssueToken(snapshot.ID, ttl),
		"id":        snapshot.ID,
		"full name": snapshot.FullName,
		"telephone": snapshot.Phone,
		"adresse":   snapshot.Address,
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName     string `json:"nom_complet"`
		Email        string `json:"email"`
		Phone        string `json:"telephone"`
		Address      string `json:"adresse"`
		Password     string `json:"password"`
		Confirmation string `json:"password_confirmation"`
	}
	raw, _ := readBody(r)
	_ = json.Unmarshal(raw, &body)

	if body.Password != body.Confirmation {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The password confirmation does not match."})
		return
	}

	b.mu.Lock()
	_, taken := b.accounts[strings.ToLower(body.Email)]
	b.mu.Unlock()
	if taken {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The email has already been taken."})
		return
	}

	account := b.AddAccount(Account{
		FullName: body.FullName,
		Email:    body.Email,
		Password: body.Password,
		Phone:    body.Phone,
		Address:  body.Address,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": account.ID, "message": "Registered"})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	b.revoked[tokenString] = true
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func currentAccount(r *http.Request) *Account {
	account, _ := r.Context().Value(accountKey{}).(*Account)
	return account
}

func (b *Backend) details(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	a := *currentAccount(r)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        strconv.FormatInt(a.ID, 10),
		"full name": a.FullName,
		"email":     a.Email,
		"telephone": a.Phone,
		"address":   a.Address,
	})
}

func (b *Backend) update(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	raw, _ := readBody(r)
	_ = json.Unmarshal(raw, &body)

	b.mu.Lock()
	account := currentAccount(r)
	if v, ok := body["nom_complet"]; ok {
		account.FullName = v
	}
	if v, ok := body["telephone"]; ok {
		account.Phone = v
	}
	if v, ok := body["adresse"]; ok {
		account.Address = v
	}
	if v, ok := body["email"]; ok && !strings.EqualFold(v, account.Email) {
		delete(b.accounts, strings.ToLower(account.Email))
		account.Email = v
		b.accounts[strings.ToLower(v)] = account
	}
	a := *account
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        a.ID,
		"full name": a.FullName,
		"email":     a.Email,
		"telephone": a.Phone,
		"adresse":   a.Address,
	})
}

func (b *Backend) changePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Current      string `json:"current_password"`
		New          string `json:"new_password"`
		Confirmation string `json:"new_password_confirmation"`
	}
	raw, _ := readBody(r)
	_ = json.Unmarshal(raw, &body)

	b.mu.Lock()
	defer b.mu.Unlock()

	account := currentAccount(r)
	if account.Password != body.Current {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The current password is incorrect."})
		return
	}
	if body.New != body.Confirmation {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The new password confirmation does not match."})
		return
	}
	account.Password = body.New
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

func (b *Backend) getOrders(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	body := b.orders
	b.mu.Unlock()

	if raw, ok := body.(string); ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(r.Body)
}
