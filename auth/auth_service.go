package auth

import (
	"crypto/sha256"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-proxy/clients"
	"github.com/jrsteele09/go-auth-proxy/internal/config"
	"github.com/jrsteele09/go-auth-proxy/store"
	"github.com/jrsteele09/go-auth-proxy/token"
	"github.com/jrsteele09/go-auth-proxy/token/refresh"
)

// Repos holds all storage dependencies for the AuthorizationService
type Repos struct {
	Codes   store.Store       // Authorization codes, keyed "authcode:<code>"
	Clients *clients.Registry // Dynamically registered clients
	Refresh *refresh.Manager  // Refresh token records and rotation
}

// AuthorizationService runs the consent step and the token endpoint.
type AuthorizationService struct {
	repos           Repos
	tokens          *token.Codec
	config          config.OAuthConfig
	passwordDigest  [sha256.Size]byte // digest of the consent password
	strictRedirects bool
	nowTime         func() time.Time // nowTime function (injectable for testing)
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithStrictRedirectURIs requires the client to be registered and the redirect_uri to be one of
// its registered URIs. When disabled any redirect_uri is accepted at the authorization endpoint.
func WithStrictRedirectURIs(strict bool) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.strictRedirects = strict
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
// Strict redirect checking is on unless disabled with WithStrictRedirectURIs(false).
func NewAuthorizationService(
	repos Repos,
	tokens *token.Codec,
	cfg config.OAuthConfig,
	consentPassword string,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if repos.Codes == nil {
		return nil, errors.New("[NewAuthorizationService] Codes store is required")
	}
	if repos.Clients == nil {
		return nil, errors.New("[NewAuthorizationService] Clients registry is required")
	}
	if repos.Refresh == nil {
		return nil, errors.New("[NewAuthorizationService] Refresh manager is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewAuthorizationService] token codec is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewAuthorizationService] OAuth config is required")
	}
	if consentPassword == "" {
		return nil, errors.New("[NewAuthorizationService] consent password is required")
	}

	authService := &AuthorizationService{
		repos:           repos,
		tokens:          tokens,
		config:          cfg,
		passwordDigest:  sha256.Sum256([]byte(consentPassword)),
		strictRedirects: true,
		nowTime:         time.Now,
	}

	for _, opt := range options {
		opt(authService)
	}

	return authService, nil
}
