package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/gaarage/storefront/internal/repository"
	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// TokenRepository implements repository.TokenRepository using Redis.
type TokenRepository struct {
	client *redis.Client
}

// NewTokenRepository creates a Redis-backed token repository.
func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{client: client}
}

func (r *TokenRepository) Token(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, repository.TokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("token", repository.TokenKey)
		}
		return "", apperrors.PersistenceFailed("redis get "+repository.TokenKey, err)
	}
	return token, nil
}

func (r *TokenRepository) SaveToken(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, repository.TokenKey, token, 0).Err(); err != nil {
		return apperrors.PersistenceFailed("redis set "+repository.TokenKey, err)
	}
	return nil
}

func (r *TokenRepository) DeleteToken(ctx context.Context) error {
	if err := r.client.Del(ctx, repository.TokenKey).Err(); err != nil {
		return apperrors.PersistenceFailed("redis del "+repository.TokenKey, err)
	}
	return nil
}
