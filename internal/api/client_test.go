package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/internal/storefronttest"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/httpclient"
	"github.com/gaarage/storefront/pkg/logger"
)

func newTestClient(t *testing.T, opts Options) (*Client, *storefronttest.Backend) {
	t.Helper()
	backend := storefronttest.New(t)
	opts.BaseURL = backend.URL()

	cfg := httpclient.DefaultConfig()
	cfg.RateLimit = 0
	return New(httpclient.New(cfg), opts, logger.Discard()), backend
}

type offlineProber struct{}

func (offlineProber) Check(context.Context) error {
	return apperrors.Connectivity(errors.New("dial tcp: network is unreachable"))
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClient_Zones_NormalizesNames(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetZones(domain.Zone{ID: 1, Name: "Fés"}, domain.Zone{ID: 2, Name: "Rabat"})

	zones, err := client.Zones(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "Fes", zones[0].Name)
	assert.Equal(t, "Rabat", zones[1].Name)
}

func TestClient_Zones_EmptyListIsNotNil(t *testing.T) {
	client, _ := newTestClient(t, Options{})

	zones, err := client.Zones(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, zones)
	assert.Empty(t, zones)
}

func TestClient_SendsHeaders(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	client.SetToken("abc")

	ctx := logger.WithCorrelationID(context.Background(), "req-1")
	_, err := client.Zones(ctx)
	require.NoError(t, err)

	reqs := backend.Requests("/zones")
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.Equal(t, "Bearer abc", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "req-1", reqs[0].Header.Get(RequestIDHeader))
}

func TestClient_GeneratesRequestID(t *testing.T) {
	client, backend := newTestClient(t, Options{})

	_, err := client.Zones(context.Background())
	require.NoError(t, err)

	reqs := backend.Requests("/zones")
	require.Len(t, reqs, 1)
	assert.NotEmpty(t, reqs[0].Header.Get(RequestIDHeader))
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
}

func TestClient_SetToken_Clear(t *testing.T) {
	client, _ := newTestClient(t, Options{})
	client.SetToken("abc")
	assert.Equal(t, "abc", client.Token())
	client.SetToken("")
	assert.Empty(t, client.Token())
}

func TestClient_Categories(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetCategories(3, domain.Category{ID: 7, Name: "Légumes", Image: "veg.png"})

	categories, err := client.Categories(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Legumes", categories[0].Name)
	assert.Equal(t, "veg.png", categories[0].Image)
	assert.Equal(t, 1, backend.Count("/categories/zone/{zone}"))
}

func seedProducts(backend *storefronttest.Backend, n int) {
	products := make([]domain.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, domain.Product{
			ID:          int64(i),
			Name:        "Crème " + string(rune('A'+i-1)),
			Price:       decimal.NewFromInt(int64(i * 10)),
			Description: "café",
		})
	}
	backend.SetProducts(4, 2, products...)
}

func TestClient_ProductPage_Envelope(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	seedProducts(backend, 25)

	page, err := client.ProductPage(context.Background(), 4, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, 25, page.Total)
	require.Len(t, page.Items, 10)
	assert.Equal(t, int64(11), page.Items[0].ID)
	assert.Equal(t, "cafe", page.Items[0].Description)
	assert.True(t, page.HasNext())

	reqs := backend.Requests("/category/{category}/{zone}")
	require.Len(t, reqs, 1)
	assert.Equal(t, "/category/4/2", reqs[0].Path)
	assert.Equal(t, "page=2&per_page=10", reqs[0].RawQuery)
}

func TestClient_ProductPage_BareArrayFallbacks(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	seedProducts(backend, 25)
	backend.ServeBareProducts(true)

	page, err := client.ProductPage(context.Background(), 4, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 1, page.LastPage)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 5)
}

func TestClient_ProductPage_HTTPError(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.Fail("/category/{category}/{zone}", http.StatusInternalServerError, `{}`)

	_, err := client.ProductPage(context.Background(), 4, 2, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRequestFailed))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
	assert.Contains(t, err.Error(), "HTTP error! status: 500")
}

func TestClient_ProductPage_MalformedBody(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.Fail("/category/{category}/{zone}", http.StatusOK, `{"data": "nope"`)

	_, err := client.ProductPage(context.Background(), 4, 2, 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRequestFailed, apperrors.Code(err))
	assert.Contains(t, err.Error(), "malformed response body")
}

func TestClient_Timeout(t *testing.T) {
	client, backend := newTestClient(t, Options{Timeout: 50 * time.Millisecond})
	backend.Delay("/category/{category}/{zone}", 500*time.Millisecond)

	_, err := client.ProductPage(context.Background(), 4, 2, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))
	assert.True(t, errors.Is(err, apperrors.ErrRequestFailed))
}

func TestClient_Offline_SkipsRequest(t *testing.T) {
	client, backend := newTestClient(t, Options{Reachability: offlineProber{}})

	_, err := client.Zones(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConnectivity))
	assert.Equal(t, 0, backend.Count("/zones"))
}

func TestClient_Offers(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetOffers([]map[string]any{
		{
			"id": 1, "produit_id": 9, "new_price": 75, "start_date": "2024-01-01", "end_date": "2024-02-01",
			"produit": map[string]any{"id": 9, "nom": "Thé", "prix": "100.00", "description": "vert", "visible": 1},
		},
		{
			"id": 2, "produit_id": 10, "new_price": 5,
			"produit": map[string]any{"id": 10, "nom": "Hidden", "prix": "10", "visible": 0},
		},
		{"id": 3, "produit_id": 11, "new_price": 5},
	})

	offers, err := client.Offers(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	offer := offers[0]
	assert.Equal(t, int64(9), offer.ID)
	assert.Equal(t, "The", offer.Name)
	assert.True(t, offer.Price.Equal(price("75")))
	assert.True(t, offer.OriginalPrice.Equal(price("100")))
	assert.Equal(t, int64(25), offer.DiscountPercentage)
	assert.Equal(t, "2024-01-01", offer.StartDate)
}

func TestClient_Offers_NonArrayBody(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetOffers(map[string]string{"message": "no offers"})

	offers, err := client.Offers(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestClient_Offers_InvalidJSON(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetOffers("<html>oops</html>")

	_, err := client.Offers(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid JSON response from server")
}

func TestClient_Hero(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetHero(domain.Hero{ID: 1, Title: "Soldes", ImageURL: "https://cdn/hero.png"})

	hero, err := client.Hero(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Soldes", hero.Title)
	assert.Equal(t, "https://cdn/hero.png", hero.ImageURL)

	_, err = client.Hero(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusCode(err))
	assert.Contains(t, err.Error(), "Hero not found")
}

func TestClient_SearchProducts_EscapesTerm(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetProducts(1, 1,
		domain.Product{ID: 1, Name: "Jus d'orange", Price: decimal.NewFromInt(12)},
		domain.Product{ID: 2, Name: "Pain", Price: decimal.NewFromInt(2)},
	)

	products, err := client.SearchProducts(context.Background(), "jus d")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(1), products[0].ID)

	reqs := backend.Requests("/search/product/{term}")
	require.Len(t, reqs, 1)
	assert.Equal(t, "/search/product/jus d", reqs[0].Path)
}

func TestClient_ImageURLs(t *testing.T) {
	client := New(httpclient.New(httpclient.DefaultConfig()), Options{BaseURL: "https://gaarage.ma/api/v2/"}, nil)

	assert.Equal(t, "https://gaarage.ma/api/v2/image/category/veg.png", client.CategoryImageURL("veg.png"))
	assert.Equal(t, "https://gaarage.ma/api/v2/image/product/a%20b.jpg", client.ProductImageURL("a b.jpg"))
}

func TestClient_Defaults(t *testing.T) {
	client := New(httpclient.New(httpclient.DefaultConfig()), Options{}, nil)
	assert.Equal(t, 10, client.PageSize())
	assert.Equal(t, 10*time.Second, client.timeout)
	assert.Equal(t, "web", client.deviceID)
}

func TestClient_Destinations(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.SetDestinations(domain.Destination{ID: 1, Name: "Centre", Price: price("15.50")})

	destinations, err := client.Destinations(context.Background())
	require.NoError(t, err)
	require.Len(t, destinations, 1)
	assert.Equal(t, "Centre", destinations[0].Name)
	assert.True(t, destinations[0].Price.Equal(price("15.5")))
}

func TestClient_Checkout(t *testing.T) {
	client, backend := newTestClient(t, Options{})

	confirmation, err := client.Checkout(context.Background(), OrderRequest{
		FullName:    "Amal Idrissi",
		Phone:       "0612345678",
		Address:     "12 rue des fleurs",
		Destination: 3,
		Cart:        []OrderLine{{ProductID: 9, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), confirmation.OrderID)

	placed := backend.Placed()
	require.Len(t, placed, 1)

	var body map[string]any
	require.NoError(t, json.Unmarshal(placed[0], &body))
	assert.Equal(t, "Amal Idrissi", body["fullname"])
	assert.Equal(t, float64(3), body["destination"])
	assert.Equal(t, []any{map[string]any{"id": float64(9), "quantity": float64(2)}}, body["cart"])
}

func TestClient_Checkout_ServerMessage(t *testing.T) {
	client, _ := newTestClient(t, Options{})

	_, err := client.Checkout(context.Background(), OrderRequest{FullName: "x", Destination: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, apperrors.StatusCode(err))
	assert.Contains(t, err.Error(), "Cart is empty")
}

func TestClient_Checkout_FallbackMessage(t *testing.T) {
	client, backend := newTestClient(t, Options{})
	backend.Fail("/checkout", http.StatusBadGateway, `not json`)

	_, err := client.Checkout(context.Background(), OrderRequest{Cart: []OrderLine{{ProductID: 1, Quantity: 1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to submit order")
}
