package repository

import (
	"context"

	"github.com/gaarage/storefront/internal/domain"
)

// TokenKey is the fixed key of the persisted session token.
const TokenKey = "session:token"

// CartRepository persists one cart snapshot per identity. A snapshot is the
// full ordered list of lines and is overwritten wholesale on every save.
type CartRepository interface {
	// Load returns the snapshot of identity, or an apperrors.ErrNotFound error
	// when none is stored.
	Load(ctx context.Context, identity domain.Identity) ([]domain.CartLine, error)

	// Save overwrites the snapshot of identity.
	Save(ctx context.Context, identity domain.Identity, lines []domain.CartLine) error

	// Delete removes the snapshot of identity. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, identity domain.Identity) error
}

// TokenRepository persists the session token under TokenKey.
type TokenRepository interface {
	// Token returns the stored token, or an apperrors.ErrNotFound error.
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}
