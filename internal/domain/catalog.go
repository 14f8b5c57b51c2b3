package domain

import (
	"github.com/shopspring/decimal"

	"github.com/gaarage/storefront/pkg/pagination"
)

// Zone is a delivery city.
type Zone struct {
	ID   int64  `json:"id"`
	Name string `json:"nom"`
}

// Category groups products within a zone.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"nom"`
	Image string `json:"images"`
}

// Product is a sellable item. Prices arrive either as JSON numbers or as
// numeric strings depending on the endpoint.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nom"`
	Price       decimal.Decimal `json:"prix"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
}

// ProductPage is one page of a category listing.
type ProductPage = pagination.Page[Product]

// Offer is a time-bounded price override as served by the offers endpoint.
type Offer struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"produit_id"`
	NewPrice  decimal.Decimal `json:"new_price"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Product   *OfferProduct   `json:"produit"`
}

// OfferProduct is the product embedded in an Offer.
type OfferProduct struct {
	Product
	CategoryID int64 `json:"categorie_id"`
	Visible    int   `json:"visible"`
}

// DiscountedProduct is an offer resolved for display: Price is the offer
// price and OriginalPrice the catalog price.
type DiscountedProduct struct {
	Product
	OriginalPrice      decimal.Decimal `json:"original_price"`
	DiscountPercentage int64           `json:"discount_percentage"`
	StartDate          string          `json:"start_date"`
	EndDate            string          `json:"end_date"`
}

var hundred = decimal.NewFromInt(100)

// DiscountPercentage returns round((original-offer)/original*100), rounding
// halves up. A zero original price yields 0.
func DiscountPercentage(original, offer decimal.Decimal) int64 {
	if original.IsZero() {
		return 0
	}
	pct := original.Sub(offer).Div(original).Mul(hundred)
	return pct.Add(decimal.NewFromFloat(0.5)).Floor().IntPart()
}

// Discounted resolves o, reporting false when the offer has no product or the
// product is hidden.
func (o Offer) Discounted() (DiscountedProduct, bool) {
	if o.Product == nil || o.Product.Visible != 1 {
		return DiscountedProduct{}, false
	}

	p := o.Product.Product
	original := p.Price
	p.Price = o.NewPrice

	return DiscountedProduct{
		Product:            p,
		OriginalPrice:      original,
		DiscountPercentage: DiscountPercentage(original, o.NewPrice),
		StartDate:          o.StartDate,
		EndDate:            o.EndDate,
	}, true
}

// Hero is a promotional banner.
type Hero struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}
