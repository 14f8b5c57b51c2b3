package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gaarage/storefront/internal/domain"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/pagination"
	"github.com/gaarage/storefront/pkg/textnorm"
)

// Zones lists the delivery cities.
func (c *Client) Zones(ctx context.Context) ([]domain.Zone, error) {
	var zones []domain.Zone
	if err := c.do(ctx, call{method: http.MethodGet, endpoint: "/zones", path: "/zones"}, &zones); err != nil {
		return nil, err
	}
	for i := range zones {
		zones[i].Name = textnorm.Strip(zones[i].Name)
	}
	return nonNil(zones), nil
}

// Categories lists the categories available in zoneID.
func (c *Client) Categories(ctx context.Context, zoneID int64) ([]domain.Category, error) {
	var categories []domain.Category
	in := call{
		method:   http.MethodGet,
		endpoint: "/categories/zone/{zone}",
		path:     "/categories/zone/" + id(zoneID),
	}
	if err := c.do(ctx, in, &categories); err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].Name = textnorm.Strip(categories[i].Name)
	}
	return nonNil(categories), nil
}

// ProductPage fetches one page of the products of categoryID in zoneID. The
// server may answer with a pagination envelope or a bare array.
func (c *Client) ProductPage(ctx context.Context, categoryID, zoneID int64, page int) (domain.ProductPage, error) {
	params := pagination.NewParams(page, c.pageSize)
	in := call{
		method:   http.MethodGet,
		endpoint: "/category/{category}/{zone}",
		path:     "/category/" + id(categoryID) + "/" + id(zoneID),
		query:    params.Query(),
	}

	status, body, err := c.raw(ctx, in)
	if err != nil {
		return domain.ProductPage{}, err
	}

	env, err := decodeProductEnvelope(body)
	if err != nil {
		return domain.ProductPage{}, apperrors.RequestFailed(status, in.op()+": malformed response body: "+err.Error())
	}

	result := pagination.FromEnvelope(env, params)
	for i := range result.Items {
		normalizeProduct(&result.Items[i])
	}
	return result, nil
}

func decodeProductEnvelope(body []byte) (pagination.Envelope[domain.Product], error) {
	var env pagination.Envelope[domain.Product]

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		err := json.Unmarshal(body, &env.Data)
		return env, err
	}
	err := json.Unmarshal(body, &env)
	return env, err
}

// Offers lists the visible discounted products of zoneID. A body that is not
// a JSON array yields no offers.
func (c *Client) Offers(ctx context.Context, zoneID int64) ([]domain.DiscountedProduct, error) {
	in := call{
		method:   http.MethodGet,
		endpoint: "/offres/{zone}",
		path:     "/offres/" + id(zoneID),
	}

	status, body, err := c.raw(ctx, in)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.RequestFailed(status, "Invalid JSON response from server")
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return []domain.DiscountedProduct{}, nil
	}

	var offers []domain.Offer
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, apperrors.RequestFailed(status, "Invalid JSON response from server")
	}

	products := make([]domain.DiscountedProduct, 0, len(offers))
	for _, offer := range offers {
		discounted, ok := offer.Discounted()
		if !ok {
			continue
		}
		normalizeProduct(&discounted.Product)
		products = append(products, discounted)
	}
	return products, nil
}

// Hero fetches the promotional banner heroID.
func (c *Client) Hero(ctx context.Context, heroID int64) (domain.Hero, error) {
	var hero domain.Hero
	in := call{
		method:   http.MethodGet,
		endpoint: "/hero/{id}",
		path:     "/hero/" + id(heroID),
	}
	if err := c.do(ctx, in, &hero); err != nil {
		return domain.Hero{}, err
	}
	return hero, nil
}

// SearchProducts searches the catalog by name.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	var products []domain.Product
	in := call{
		method:   http.MethodGet,
		endpoint: "/search/product/{term}",
		path:     "/search/product/" + url.PathEscape(term),
	}
	if err := c.do(ctx, in, &products); err != nil {
		return nil, err
	}
	for i := range products {
		normalizeProduct(&products[i])
	}
	return nonNil(products), nil
}

func normalizeProduct(p *domain.Product) {
	p.Name = textnorm.Strip(p.Name)
	p.Description = textnorm.Strip(p.Description)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
