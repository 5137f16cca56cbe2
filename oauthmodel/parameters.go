package oauthmodel

import (
	"net/url"
	"strings"
)

const maxCodeChallengeLength = 128

// AuthorizationParameters holds the authorization request. The consent form round-trips
// every field as a hidden input so nothing is persisted between GET and POST.
type AuthorizationParameters struct {
	// ClientID identifies the registered client. Required.
	ClientID string

	// RedirectURI receives the code. Required.
	RedirectURI string

	// State is opaque to the server and echoed back on the redirect.
	State string

	// CodeChallenge is BASE64URL(SHA256(code_verifier)). Required.
	CodeChallenge string

	// CodeChallengeMethod defaults to S256, the only accepted value.
	CodeChallengeMethod CodeMethodType

	// ResponseType defaults to "code", the only accepted value.
	ResponseType ResponseType

	// Scope is carried through for display only; granted scope comes from the registration.
	Scope string
}

// ParseAuthorizationParameters reads the parameters from a query string or a form body,
// applying the defaults for response_type and code_challenge_method.
func ParseAuthorizationParameters(values url.Values) *AuthorizationParameters {
	p := &AuthorizationParameters{
		ClientID:            strings.TrimSpace(values.Get("client_id")),
		RedirectURI:         strings.TrimSpace(values.Get("redirect_uri")),
		State:               values.Get("state"),
		CodeChallenge:       strings.TrimSpace(values.Get("code_challenge")),
		CodeChallengeMethod: CodeMethodType(values.Get("code_challenge_method")),
		ResponseType:        ResponseType(values.Get("response_type")),
		Scope:               values.Get("scope"),
	}
	if p.CodeChallengeMethod == "" {
		p.CodeChallengeMethod = CodeMethodTypeS256
	}
	if p.ResponseType == "" {
		p.ResponseType = CodeResponseType
	}
	return p
}

// Validate checks the request shape. Registration checks happen in the auth service.
func (p *AuthorizationParameters) Validate() *Error {
	if p.ClientID == "" || p.RedirectURI == "" || p.CodeChallenge == "" {
		return InvalidRequestError("Missing required parameters: client_id, redirect_uri, code_challenge")
	}
	if p.CodeChallengeMethod != CodeMethodTypeS256 {
		return InvalidRequestError("Only S256 code_challenge_method is supported")
	}
	if len(p.CodeChallenge) > maxCodeChallengeLength {
		return InvalidRequestError("code_challenge is too long")
	}
	if p.ResponseType != CodeResponseType {
		return NewError(ErrorCodeUnsupportedResponseType, "Only response_type=code is supported")
	}
	return nil
}
