// Package session owns the shopper's authentication state: the bearer token,
// the cached profile and the active cart identity derived from them.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gaarage/storefront/internal/api"
	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/internal/repository"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/logger"
	"github.com/gaarage/storefront/pkg/tracing"
	"github.com/gaarage/storefront/pkg/validator"
)

// AuthAPI is the subset of the storefront API used by a Manager.
// *api.Client implements it.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Register(ctx context.Context, form domain.RegisterForm) error
	Logout(ctx context.Context) error
	UserDetails(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error)
	ChangePassword(ctx context.Context, current, next string) error
	Orders(ctx context.Context) ([]domain.Order, error)
	SetToken(token string)
}

// IdentityListener is told about every change of the active identity.
type IdentityListener func(ctx context.Context, identity domain.Identity)

// Manager tracks the current session. Identity changes are delivered to the
// registered listeners in registration order.
type Manager struct {
	api    AuthAPI
	tokens repository.TokenRepository
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	user      *domain.User
	listeners []IdentityListener
}

// New creates a Manager with a guest session.
func New(authAPI AuthAPI, tokens repository.TokenRepository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		api:    authAPI,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// OnIdentityChange registers fn.
func (m *Manager) OnIdentityChange(fn IdentityListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// User returns the profile of the logged-in shopper.
func (m *Manager) User() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return domain.User{}, false
	}
	return *m.user, true
}

// Identity returns the active cart identity.
func (m *Manager) Identity() domain.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return domain.Guest
	}
	return m.user.Identity()
}

// Restore resumes the session stored by a previous run. A missing, expired
// or rejected token leaves a guest session and is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		m.logger.WarnContext(ctx, "failed to read stored session token", slog.String("error", err.Error()))
		return nil
	}

	if tokenExpired(token, m.now()) {
		m.logger.InfoContext(ctx, "stored session token expired")
		m.dropToken(ctx)
		return nil
	}

	m.api.SetToken(token)
	user, err := m.api.UserDetails(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			m.logger.InfoContext(ctx, "stored session token rejected")
			m.dropToken(ctx)
			return nil
		}
		return err
	}

	m.setUser(ctx, &user)
	return nil
}

// Login validates form, authenticates and makes the user identity active.
func (m *Manager) Login(ctx context.Context, form domain.LoginForm) (user domain.User, err error) {
	if err := validator.Validate(form); err != nil {
		return domain.User{}, err
	}

	ctx, span := tracing.Start(ctx, "session", "login")
	defer func() { tracing.End(span, err) }()

	result, err := m.api.Login(ctx, form.Email, form.Password)
	if err != nil {
		return domain.User{}, err
	}

	m.api.SetToken(result.Token)
	user = result.User
	if user.ID == "" {
		if user, err = m.completeUser(ctx, user); err != nil {
			m.api.SetToken("")
			return domain.User{}, err
		}
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if err := m.tokens.SaveToken(ctx, result.Token); err != nil {
		m.logger.WarnContext(ctx, "failed to persist session token", slog.String("error", err.Error()))
	}
	m.setUser(ctx, &user)

	return user, nil
}

// completeUser fetches the profile of a login response that carried no user
// id. When the details call fails for another reason than a rejected token,
// the user is kept and its identity falls back to the email.
func (m *Manager) completeUser(ctx context.Context, user domain.User) (domain.User, error) {
	details, err := m.api.UserDetails(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			return domain.User{}, err
		}
		m.logger.WarnContext(ctx, "user details unavailable after login",
			slog.String("identity", user.Identity().String()),
			slog.String("error", err.Error()),
		)
		return user, nil
	}

	if details.Email == "" {
		details.Email = user.Email
	}
	if details.FullName == "" {
		details.FullName = user.FullName
	}
	if details.ID == "" {
		m.logger.WarnContext(ctx, "user details carry no id",
			slog.String("identity", details.Identity().String()),
		)
	}
	return details, nil
}

// Register validates form, creates the account and logs in.
func (m *Manager) Register(ctx context.Context, form domain.RegisterForm) (domain.User, error) {
	if err := validator.Validate(form); err != nil {
		return domain.User{}, err
	}
	if err := m.api.Register(ctx, form); err != nil {
		return domain.User{}, err
	}

	user, err := m.Login(ctx, domain.LoginForm{Email: form.Email, Password: form.Password})
	if err != nil {
		return domain.User{}, err
	}
	if user.FullName == "" {
		user.FullName = form.FullName
	}
	return user, nil
}

// Logout revokes the token on the server and clears the local session. The
// local session is cleared even when the server call fails.
func (m *Manager) Logout(ctx context.Context) {
	if _, ok := m.User(); ok {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.WarnContext(ctx, "server logout failed", slog.String("error", err.Error()))
		}
	}
	m.dropToken(ctx)
}

// Profile refreshes and returns the profile of the logged-in shopper.
func (m *Manager) Profile(ctx context.Context) (domain.User, error) {
	if _, ok := m.User(); !ok {
		return domain.User{}, apperrors.Unauthorized("not logged in")
	}

	user, err := m.api.UserDetails(ctx)
	if err != nil {
		return domain.User{}, m.checkUnauthorized(ctx, err)
	}
	return m.refreshUser(ctx, user), nil
}

// UpdateProfile sends the set fields of update.
func (m *Manager) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (domain.User, error) {
	current, ok := m.User()
	if !ok {
		return domain.User{}, apperrors.Unauthorized("not logged in")
	}
	if update.Empty() {
		return current, nil
	}
	if err := validator.Validate(update); err != nil {
		return domain.User{}, err
	}

	user, err := m.api.UpdateProfile(ctx, update)
	if err != nil {
		return domain.User{}, m.checkUnauthorized(ctx, err)
	}
	return m.refreshUser(ctx, user), nil
}

// ChangePassword validates change and replaces the account password.
func (m *Manager) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	if _, ok := m.User(); !ok {
		return apperrors.Unauthorized("not logged in")
	}
	if err := validator.Validate(change); err != nil {
		return err
	}
	if err := m.api.ChangePassword(ctx, change.Current, change.New); err != nil {
		return m.checkUnauthorized(ctx, err)
	}
	return nil
}

// Orders returns the order history of the logged-in shopper.
func (m *Manager) Orders(ctx context.Context) ([]domain.Order, error) {
	if _, ok := m.User(); !ok {
		return nil, apperrors.Unauthorized("not logged in")
	}
	orders, err := m.api.Orders(ctx)
	if err != nil {
		return nil, m.checkUnauthorized(ctx, err)
	}
	return orders, nil
}

// refreshUser replaces the profile of the logged-in user with user. An id or
// email the server left out keeps its current value, so the cart identity only
// moves when the server reports a different user.
func (m *Manager) refreshUser(ctx context.Context, user domain.User) domain.User {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return user
	}
	current := *m.user
	m.mu.Unlock()

	if user.ID == "" {
		user.ID = current.ID
	}
	if user.Email == "" {
		user.Email = current.Email
	}
	m.setUser(ctx, &user)
	return user
}

// checkUnauthorized ends the session when the server rejected the token.
func (m *Manager) checkUnauthorized(ctx context.Context, err error) error {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		m.logger.InfoContext(ctx, "session rejected by server")
		m.dropToken(ctx)
	}
	return err
}

func (m *Manager) dropToken(ctx context.Context) {
	if err := m.tokens.DeleteToken(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to delete session token", slog.String("error", err.Error()))
	}
	m.api.SetToken("")
	m.setUser(ctx, nil)
}

func (m *Manager) setUser(ctx context.Context, user *domain.User) {
	m.mu.Lock()
	previous := domain.Guest
	if m.user != nil {
		previous = m.user.Identity()
	}
	m.user = user
	next := domain.Guest
	if user != nil {
		next = user.Identity()
	}
	listeners := append([]IdentityListener(nil), m.listeners...)
	m.mu.Unlock()

	if previous == next {
		return
	}

	ctx = logger.WithIdentity(ctx, next.String())
	logger.WithContext(ctx, m.logger).InfoContext(ctx, "session identity changed",
		slog.String("from", previous.String()),
	)
	for _, fn := range listeners {
		fn(ctx, next)
	}
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens never expire client-side.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
