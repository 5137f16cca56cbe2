package oauthmodel

import "net/url"

// ClientCredentials identifies the caller at the token endpoint.
// Secret is only present for clients registered with a non-"none" auth method.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// Grant is the closed set of token requests: AuthorizationCodeGrant or RefreshTokenGrant.
type Grant interface {
	GrantType() GrantType
	Client() ClientCredentials
	isGrant()
}

// AuthorizationCodeGrant redeems a code with its PKCE verifier.
type AuthorizationCodeGrant struct {
	ClientCredentials
	Code         string
	CodeVerifier string
	// RedirectURI is optional; when sent it must equal the one used at authorization.
	RedirectURI string
}

func (AuthorizationCodeGrant) GrantType() GrantType { return AuthorizationCodeGrantType }

func (g AuthorizationCodeGrant) Client() ClientCredentials { return g.ClientCredentials }

func (AuthorizationCodeGrant) isGrant() {}

// RefreshTokenGrant redeems and rotates a refresh token.
type RefreshTokenGrant struct {
	ClientCredentials
	RefreshToken string
}

func (RefreshTokenGrant) GrantType() GrantType { return RefreshTokenGrantType }

func (g RefreshTokenGrant) Client() ClientCredentials { return g.ClientCredentials }

func (RefreshTokenGrant) isGrant() {}

// ParseGrant turns a token endpoint form body into a Grant.
func ParseGrant(form url.Values) (Grant, *Error) {
	creds := ClientCredentials{
		ClientID:     form.Get("client_id"),
		ClientSecret: form.Get("client_secret"),
	}

	switch GrantType(form.Get("grant_type")) {
	case "":
		return nil, InvalidRequestError("grant_type is required")

	case AuthorizationCodeGrantType:
		g := AuthorizationCodeGrant{
			ClientCredentials: creds,
			Code:              form.Get("code"),
			CodeVerifier:      form.Get("code_verifier"),
			RedirectURI:       form.Get("redirect_uri"),
		}
		if g.Code == "" || g.CodeVerifier == "" || g.ClientID == "" {
			return nil, InvalidRequestError("Missing required parameters")
		}
		return g, nil

	case RefreshTokenGrantType:
		g := RefreshTokenGrant{
			ClientCredentials: creds,
			RefreshToken:      form.Get("refresh_token"),
		}
		if g.RefreshToken == "" || g.ClientID == "" {
			return nil, InvalidRequestError("Missing required parameters")
		}
		return g, nil

	default:
		return nil, NewError(ErrorCodeUnsupportedGrantType, "Unsupported grant_type")
	}
}
