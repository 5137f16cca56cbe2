package clients

import (
	"slices"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Registered with a secret
	ClientTypePublic       ClientType = "public"       // PKCE only (token_endpoint_auth_method "none")
)

// Client is a dynamically registered OAuth client. It is written once and never updated.
type Client struct {
	ClientID                string   `json:"client_id"`
	SecretHash              string   `json:"client_secret_hash,omitempty"` // bcrypt; the plain secret is never stored
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope,omitempty"`
	IssuedAt                int64    `json:"client_id_issued_at"`
}

func (c *Client) Type() ClientType {
	if c.SecretHash != "" {
		return ClientTypeConfidential
	}
	return ClientTypePublic
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type() == ClientTypePublic
}

// AllowsGrant reports whether the registration lists grantType.
func (c *Client) AllowsGrant(grantType oauthmodel.GrantType) bool {
	return slices.Contains(c.GrantTypes, string(grantType))
}

// HasRedirectURI reports an exact match against the registered redirect URIs.
func (c *Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// CheckSecret compares secret against the stored hash. Public clients have no secret to check.
func (c *Client) CheckSecret(secret string) bool {
	if c.SecretHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)) == nil
}

// RegistrationRequest is the RFC 7591 client metadata accepted at the registration endpoint.
type RegistrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// RegistrationResponse echoes the stored registration. ClientSecret is only set when one
// was generated, and this is the only time it is ever returned.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   *int64   `json:"client_secret_expires_at,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope,omitempty"`
}
