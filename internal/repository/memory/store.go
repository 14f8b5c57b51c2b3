// Package memory keeps cart snapshots and the session token in process memory.
// It backs tests and the STATE_BACKEND=memory mode.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/internal/repository"
	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// Store implements repository.CartRepository and repository.TokenRepository.
// Snapshots are stored encoded so callers never share slices with the store.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var (
	_ repository.CartRepository  = (*Store)(nil)
	_ repository.TokenRepository = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

func (s *Store) Load(_ context.Context, identity domain.Identity) ([]domain.CartLine, error) {
	s.mu.RLock()
	data, ok := s.values[identity.CartKey()]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("cart", identity.String())
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, apperrors.PersistenceFailed("decode "+identity.CartKey(), err)
	}
	return lines, nil
}

func (s *Store) Save(_ context.Context, identity domain.Identity, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return apperrors.PersistenceFailed("encode "+identity.CartKey(), err)
	}

	s.mu.Lock()
	s.values[identity.CartKey()] = data
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, identity domain.Identity) error {
	s.mu.Lock()
	delete(s.values, identity.CartKey())
	s.mu.Unlock()
	return nil
}

func (s *Store) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.values[repository.TokenKey]
	if !ok {
		return "", apperrors.NotFound("token", repository.TokenKey)
	}
	return string(data), nil
}

func (s *Store) SaveToken(_ context.Context, token string) error {
	s.mu.Lock()
	s.values[repository.TokenKey] = []byte(token)
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteToken(_ context.Context) error {
	s.mu.Lock()
	delete(s.values, repository.TokenKey)
	s.mu.Unlock()
	return nil
}

// Has reports whether a value is stored under key.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}
