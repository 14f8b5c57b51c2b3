package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gaarage/storefront/internal/domain"
	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis-backed cart repository. A zero ttl keeps
// snapshots until they are deleted.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load retrieves the snapshot of identity from Redis.
func (r *CartRepository) Load(ctx context.Context, identity domain.Identity) ([]domain.CartLine, error) {
	key := identity.CartKey()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", identity.String())
		}
		return nil, apperrors.PersistenceFailed("redis get "+key, err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, apperrors.PersistenceFailed("decode "+key, err)
	}
	if err := (&domain.Cart{Lines: lines}).Validate(); err != nil {
		return nil, apperrors.PersistenceFailed("decode "+key, err)
	}

	return lines, nil
}

// Save persists the snapshot of identity with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, identity domain.Identity, lines []domain.CartLine) error {
	key := identity.CartKey()

	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return apperrors.PersistenceFailed("encode "+key, err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return apperrors.PersistenceFailed("redis set "+key, err)
	}

	return nil
}

// Delete removes the snapshot of identity from Redis.
func (r *CartRepository) Delete(ctx context.Context, identity domain.Identity) error {
	key := identity.CartKey()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return apperrors.PersistenceFailed("redis del "+key, err)
	}

	return nil
}
