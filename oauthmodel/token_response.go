package oauthmodel

// TokenResponse is the token endpoint success body (RFC 6749 section 5.1).
type TokenResponse struct {
	// AccessToken is the HS256 JWT presented as "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// RefreshToken is only present for clients registered with the refresh_token grant.
	// It rotates on every use.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope echoes the client's registered scope when it has one.
	Scope *string `json:"scope,omitempty"`
}
