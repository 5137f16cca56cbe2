package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-auth-proxy/internal/config"
	apperrors "github.com/jrsteele09/go-auth-proxy/internal/errors"
	"github.com/jrsteele09/go-auth-proxy/internal/utils"
	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
	"github.com/jrsteele09/go-auth-proxy/store"
)

var blockedRedirectSchemes = map[string]struct{}{
	"javascript": {},
	"data":       {},
	"file":       {},
	"vbscript":   {},
}

// Registry stores client registrations under "client:<client_id>" with no expiry.
type Registry struct {
	store   store.Store
	config  config.OAuthConfig
	nowTime func() time.Time
}

type RegistryOption func(*Registry)

// WithNowTime sets the clock used for client_id_issued_at (primarily for testing)
func WithNowTime(nowFunc func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

func NewRegistry(s store.Store, cfg config.OAuthConfig, options ...RegistryOption) *Registry {
	r := &Registry{
		store:   s,
		config:  cfg,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Register validates the metadata, fills defaults and persists a new client.
// Metadata problems are returned as *oauthmodel.Error with code invalid_client_metadata.
func (r *Registry) Register(ctx context.Context, req *RegistrationRequest) (*RegistrationResponse, error) {
	if req == nil || len(req.RedirectURIs) == 0 {
		return nil, oauthmodel.InvalidClientMetadataError("redirect_uris required")
	}
	for _, uri := range req.RedirectURIs {
		if err := ValidateRedirectURI(uri); err != nil {
			return nil, oauthmodel.InvalidClientMetadataError("invalid redirect_uri")
		}
	}

	client := &Client{
		ClientName:              req.ClientName,
		ClientURI:               req.ClientURI,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              defaultList(req.GrantTypes, string(oauthmodel.AuthorizationCodeGrantType)),
		ResponseTypes:           defaultList(req.ResponseTypes, string(oauthmodel.CodeResponseType)),
		TokenEndpointAuthMethod: req.TokenEndpointAuthMethod,
		Scope:                   req.Scope,
		IssuedAt:                r.nowTime().Unix(),
	}
	if client.TokenEndpointAuthMethod == "" {
		client.TokenEndpointAuthMethod = string(oauthmodel.AuthMethodNone)
	}

	clientID, err := r.newClientID(ctx, req.ClientURI)
	if err != nil {
		return nil, errors.Wrap(err, "[Registry.Register] client id")
	}
	client.ClientID = clientID

	var secret string
	if client.TokenEndpointAuthMethod != string(oauthmodel.AuthMethodNone) {
		if secret, err = randomHex(r.config.GetClientSecretLength()); err != nil {
			return nil, errors.Wrap(err, "[Registry.Register] client secret")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "[Registry.Register] hash client secret")
		}
		client.SecretHash = string(hash)
	}

	if err := store.PutJSON(ctx, r.store, store.ClientKey(client.ClientID), client, 0); err != nil {
		return nil, errors.Wrap(err, "[Registry.Register] store client")
	}

	resp := &RegistrationResponse{
		ClientID:                client.ClientID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        client.IssuedAt,
		ClientName:              client.ClientName,
		ClientURI:               client.ClientURI,
		RedirectURIs:            client.RedirectURIs,
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		TokenEndpointAuthMethod: client.TokenEndpointAuthMethod,
		Scope:                   client.Scope,
	}
	if secret != "" {
		resp.ClientSecretExpiresAt = utils.Ptr(int64(0))
	}
	return resp, nil
}

// Get returns the registration or apperrors.ErrInvalidClient when none exists.
func (r *Registry) Get(ctx context.Context, clientID string) (*Client, error) {
	client := &Client{}
	if err := store.GetJSON(ctx, r.store, store.ClientKey(clientID), client); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, apperrors.ErrInvalidClient
		}
		return nil, errors.Wrap(err, "[Registry.Get] read client")
	}
	return client, nil
}

// newClientID prefers the caller's client_uri so a client keeps a stable identity,
// but never reuses an identifier that is already registered.
func (r *Registry) newClientID(ctx context.Context, clientURI string) (string, error) {
	clientURI = strings.TrimSpace(clientURI)
	if clientURI == "" {
		return uuid.NewString(), nil
	}
	_, err := r.store.Get(ctx, store.ClientKey(clientURI))
	switch {
	case apperrors.Is(err, store.ErrNotFound):
		return clientURI, nil
	case err != nil:
		return "", err
	default:
		return uuid.NewString(), nil
	}
}

// ValidateRedirectURI accepts absolute URIs without a fragment. Custom app schemes are allowed;
// script-capable and local-file schemes are not.
func ValidateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Fragment != "" {
		return apperrors.ErrInvalidRedirectURI
	}
	if _, blocked := blockedRedirectSchemes[strings.ToLower(u.Scheme)]; blocked {
		return apperrors.ErrInvalidRedirectURI
	}
	return nil
}

func defaultList(values []string, fallback string) []string {
	if len(values) == 0 {
		return []string{fallback}
	}
	return values
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
