package pagination

import (
	"net/url"
	"strconv"
)

// DefaultPerPage is the page size the storefront client requests.
const DefaultPerPage = 10

// Params holds the pagination parameters sent to the API.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: DefaultPerPage,
	}
}

// NewParams normalizes page and perPage: pages start at 1, a non-positive or
// oversized perPage falls back to DefaultPerPage.
func NewParams(page, perPage int) Params {
	p := DefaultParams()
	if page > 0 {
		p.Page = page
	}
	if perPage > 0 && perPage <= 100 {
		p.PerPage = perPage
	}
	return p
}

// Query encodes the parameters as ?page=&per_page=.
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	return q
}

// Envelope is the paginated list shape returned by the storefront API.
// Pointer fields distinguish an omitted value from zero.
type Envelope[T any] struct {
	Data        []T  `json:"data"`
	CurrentPage *int `json:"current_page"`
	LastPage    *int `json:"last_page"`
	Total       *int `json:"total"`
	PerPage     *int `json:"per_page"`
}

// Page is one page of results plus its cursor state.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
	Total    int `json:"total"`
	PerPage  int `json:"per_page"`
}

// FromEnvelope builds a Page from a server response. The server is authoritative
// when it reports current_page, last_page and total; otherwise the requested
// page, a last page of 1 and the item count are used.
func FromEnvelope[T any](env Envelope[T], requested Params) Page[T] {
	items := env.Data
	if items == nil {
		items = []T{}
	}

	p := Page[T]{
		Items:    items,
		Page:     requested.Page,
		LastPage: 1,
		Total:    len(items),
		PerPage:  requested.PerPage,
	}
	if env.CurrentPage != nil && *env.CurrentPage > 0 {
		p.Page = *env.CurrentPage
	}
	if env.LastPage != nil && *env.LastPage > 0 {
		p.LastPage = *env.LastPage
	}
	if env.Total != nil && *env.Total > 0 {
		p.Total = *env.Total
	}
	if env.PerPage != nil && *env.PerPage > 0 {
		p.PerPage = *env.PerPage
	}
	return p
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return p.Page < p.LastPage
}

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}
