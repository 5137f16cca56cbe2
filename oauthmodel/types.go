package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested at the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType is the only response type issued: an authorization code redeemed at the token endpoint.
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 means code_challenge = BASE64URL(SHA256(code_verifier)), unpadded.
	// "plain" is deliberately absent.
	CodeMethodTypeS256 CodeMethodType = "S256"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrantType exchanges an authorization code plus PKCE verifier for tokens.
	AuthorizationCodeGrantType GrantType = "authorization_code"

	// RefreshTokenGrantType exchanges a refresh token for a new access token and a rotated refresh token.
	RefreshTokenGrantType GrantType = "refresh_token"
)

// TokenEndpointAuthMethod is how a client authenticates at the token endpoint.
type TokenEndpointAuthMethod string

const (
	// AuthMethodNone is used by public clients that prove possession through PKCE alone.
	AuthMethodNone TokenEndpointAuthMethod = "none"
)

// TokenTypeBearer is the token_type of every issued access token.
const TokenTypeBearer = "Bearer"
