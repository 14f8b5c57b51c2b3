package catalog

import (
	"context"
	"strconv"

	"github.com/gaarage/storefront/internal/domain"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/textnorm"
)

// Source serves the catalog reference data. *api.Client implements it.
type Source interface {
	Zones(ctx context.Context) ([]domain.Zone, error)
	Categories(ctx context.Context, zoneID int64) ([]domain.Category, error)
	Offers(ctx context.Context, zoneID int64) ([]domain.DiscountedProduct, error)
	Hero(ctx context.Context, heroID int64) (domain.Hero, error)
}

// Catalog answers zone, category, offer and hero queries.
type Catalog struct {
	source Source
}

// New creates a Catalog over source.
func New(source Source) *Catalog {
	return &Catalog{source: source}
}

func (c *Catalog) Zones(ctx context.Context) ([]domain.Zone, error) {
	return c.source.Zones(ctx)
}

func (c *Catalog) Categories(ctx context.Context, zoneID int64) ([]domain.Category, error) {
	return c.source.Categories(ctx, zoneID)
}

func (c *Catalog) Offers(ctx context.Context, zoneID int64) ([]domain.DiscountedProduct, error) {
	return c.source.Offers(ctx, zoneID)
}

func (c *Catalog) Hero(ctx context.Context, heroID int64) (domain.Hero, error) {
	return c.source.Hero(ctx, heroID)
}

// FindZone resolves ref, a zone id or a zone name compared case- and
// accent-insensitively.
func (c *Catalog) FindZone(ctx context.Context, ref string) (domain.Zone, error) {
	zones, err := c.source.Zones(ctx)
	if err != nil {
		return domain.Zone{}, err
	}
	for _, z := range zones {
		if matches(ref, z.ID, z.Name) {
			return z, nil
		}
	}
	return domain.Zone{}, apperrors.NotFound("zone", ref)
}

// FindCategory resolves ref within zoneID the same way FindZone does.
func (c *Catalog) FindCategory(ctx context.Context, zoneID int64, ref string) (domain.Category, error) {
	categories, err := c.source.Categories(ctx, zoneID)
	if err != nil {
		return domain.Category{}, err
	}
	for _, cat := range categories {
		if matches(ref, cat.ID, cat.Name) {
			return cat, nil
		}
	}
	return domain.Category{}, apperrors.NotFound("category", ref)
}

func matches(ref string, id int64, name string) bool {
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return n == id
	}
	return textnorm.Fold(ref) == textnorm.Fold(name)
}
