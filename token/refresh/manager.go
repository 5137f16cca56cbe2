package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-proxy/internal/config"
	apperrors "github.com/jrsteele09/go-auth-proxy/internal/errors"
	"github.com/jrsteele09/go-auth-proxy/store"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, lookup and rotation
type Manager struct {
	store  store.Store
	config config.OAuthConfig
}

// NewManager creates a new refresh token manager
func NewManager(s store.Store, cfg config.OAuthConfig) *Manager {
	return &Manager{
		store:  s,
		config: cfg,
	}
}

// Create generates a new refresh token for clientID and stores it with the refresh expiry
func (m *Manager) Create(ctx context.Context, clientID, scope string) (*StoredRefreshToken, error) {
	tokenBytes := make([]byte, m.config.GetRefreshTokenLength()) // 32 bytes = 256 bits
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rt := &StoredRefreshToken{
		Token:    hex.EncodeToString(tokenBytes),
		ClientID: clientID,
		Scope:    scope,
		Iat:      NowTimeFunc(),
	}
	if err := store.PutJSON(ctx, m.store, store.RefreshKey(rt.Token), rt, m.config.GetDefaultRefreshTokenExpiry()); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}

// Get retrieves a refresh token record. Missing or expired tokens return ErrInvalidRefreshToken.
func (m *Manager) Get(ctx context.Context, token string) (*StoredRefreshToken, error) {
	rt := &StoredRefreshToken{}
	if err := store.GetJSON(ctx, m.store, store.RefreshKey(token), rt); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to read refresh token: %w", err)
	}
	rt.Token = token
	return rt, nil
}

// Rotate consumes current and issues its replacement bound to the same client and scope.
// Only one of several concurrent rotations of the same token succeeds; the others get
// ErrInvalidRefreshToken.
func (m *Manager) Rotate(ctx context.Context, current *StoredRefreshToken) (*StoredRefreshToken, error) {
	if err := m.consume(ctx, current.Token); err != nil {
		return nil, err
	}
	return m.Create(ctx, current.ClientID, current.Scope)
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(ctx context.Context, token string) error {
	return m.store.Delete(ctx, store.RefreshKey(token))
}

func (m *Manager) consume(ctx context.Context, token string) error {
	if _, err := m.store.Take(ctx, store.RefreshKey(token)); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return apperrors.ErrInvalidRefreshToken
		}
		return fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return nil
}
