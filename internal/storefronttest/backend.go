// Package storefronttest runs an in-process fake of the storefront REST API
// for package tests.
package storefronttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gaarage/storefront/internal/domain"
)

// Secret signs the tokens issued by the fake.
const Secret = "storefront-test-secret"

// Request is a request observed by the fake.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Account is a registered shopper.
type Account struct {
	ID       int64
	FullName string
	Email    string
	Password string
	Phone    string
	Address  string
}

type failure struct {
	status int
	body   string
}

// Backend is the fake API. Routes are addressed by their chi pattern, for
// example "/category/{category}/{zone}".
type Backend struct {
	Server   *httptest.Server
	TokenTTL time.Duration

	mu           sync.Mutex
	zones        []domain.Zone
	categories   map[int64][]domain.Category
	products     map[string][]domain.Product
	bareProducts bool
	offers       any
	heroes       map[int64]domain.Hero
	destinations []domain.Destination
	orders       any
	accounts     map[string]*Account
	nextID       int64
	revoked      map[string]bool
	placed       []json.RawMessage
	failures     map[string]failure
	delays       map[string]time.Duration
	requests     map[string][]Request
}

// New starts a fake backend that is closed when t finishes.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		TokenTTL:   time.Hour,
		categories: make(map[int64][]domain.Category),
		products:   make(map[string][]domain.Product),
		offers:     []any{},
		heroes:     make(map[int64]domain.Hero),
		orders:     map[string]any{"orders": []any{}},
		accounts:   make(map[string]*Account),
		nextID:     1,
		revoked:    make(map[string]bool),
		failures:   make(map[string]failure),
		delays:     make(map[string]time.Duration),
		requests:   make(map[string][]Request),
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()

	b.handle(r, http.MethodGet, "/zones", b.getZones)
	b.handle(r, http.MethodGet, "/categories/zone/{zone}", b.getCategories)
	b.handle(r, http.MethodGet, "/category/{category}/{zone}", b.getProducts)
	b.handle(r, http.MethodGet, "/offres/{zone}", b.getOffers)
	b.handle(r, http.MethodGet, "/hero/{id}", b.getHero)
	b.handle(r, http.MethodGet, "/search/product/{term}", b.searchProducts)
	b.handle(r, http.MethodGet, "/destinations", b.getDestinations)
	b.handle(r, http.MethodPost, "/checkout", b.checkout)

	b.handle(r, http.MethodPost, "/auth/login", b.login)
	b.handle(r, http.MethodPost, "/auth/register", b.register)
	b.handle(r, http.MethodPost, "/auth/logout", b.authenticated(b.logout))
	b.handle(r, http.MethodGet, "/auth/details", b.authenticated(b.details))
	b.handle(r, http.MethodPost, "/auth/update", b.authenticated(b.update))
	b.handle(r, http.MethodPost, "/auth/changePassword", b.authenticated(b.changePassword))
	b.handle(r, http.MethodGet, "/auth/getOrdersByPhone", b.authenticated(b.getOrders))

	return r
}

// handle registers fn under pattern, recording requests and applying any
// configured failure or delay.
func (b *Backend) handle(r chi.Router, method, pattern string, fn http.HandlerFunc) {
	r.MethodFunc(method, pattern, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.requests[pattern] = append(b.requests[pattern], Request{
			Method:   req.Method,
			Path:     req.URL.Path,
			RawQuery: req.URL.RawQuery,
			Header:   req.Header.Clone(),
			Body:     body,
		})
		fail, failing := b.failures[pattern]
		delay := b.delays[pattern]
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return
			}
		}
		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = io.WriteString(w, fail.body)
			return
		}
		fn(w, req)
	})
}

// Fail makes pattern answer status with body until Recover is called.
func (b *Backend) Fail(pattern string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[pattern] = failure{status: status, body: body}
}

// Recover removes the failure configured for pattern.
func (b *Backend) Recover(pattern string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, pattern)
}

// Delay holds every response of pattern for d.
func (b *Backend) Delay(pattern string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[pattern] = d
}

// Requests returns the requests observed on pattern.
func (b *Backend) Requests(pattern string) []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests[pattern]...)
}

// Count returns the number of requests observed on pattern.
func (b *Backend) Count(pattern string) int {
	return len(b.Requests(pattern))
}

// SetZones replaces the zone list.
func (b *Backend) SetZones(zones ...domain.Zone) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.zones = zones
}

// SetCategories replaces the categories of zone.
func (b *Backend) SetCategories(zone int64, categories ...domain.Category) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categories[zone] = categories
}

// SetProducts replaces the products of category in zone.
func (b *Backend) SetProducts(category, zone int64, products ...domain.Product) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.products[productKey(category, zone)] = products
}

// ServeBareProducts makes product listings answer a bare array instead of a
// pagination envelope.
func (b *Backend) ServeBareProducts(bare bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bareProducts = bare
}

// SetOffers replaces the offers body; any JSON-encodable value is accepted.
func (b *Backend) SetOffers(body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offers = body
}

// SetHero stores a hero banner.
func (b *Backend) SetHero(hero domain.Hero) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.heroes[hero.ID] = hero
}

// SetDestinations replaces the destination list.
func (b *Backend) SetDestinations(destinations ...domain.Destination) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destinations = destinations
}

// SetOrders replaces the order history body.
func (b *Backend) SetOrders(body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = body
}

// AddAccount registers an account and returns it with its id set.
func (b *Backend) AddAccount(a Account) Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	a.ID = b.nextID
	b.nextID++
	stored := a
	b.accounts[strings.ToLower(a.Email)] = &stored
	return a
}

// Placed returns the checkout bodies accepted so far.
func (b *Backend) Placed() []json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]json.RawMessage(nil), b.placed...)
}

// IssueToken signs a token for account id that expires after ttl.
func IssueToken(id int64, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(id, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	if err != nil {
		panic(fmt.Sprintf("sign token: %v", err))
	}
	return token
}

func productKey(category, zone int64) string {
	return strconv.FormatInt(category, 10) + "/" + strconv.FormatInt(zone, 10)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return v
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
