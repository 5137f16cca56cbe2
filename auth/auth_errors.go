package auth

import "github.com/jrsteele09/go-auth-proxy/oauthmodel"

// Client-visible failures. Descriptions are fixed strings and never include request values.
var (
	MissingConsentFieldsErr = oauthmodel.InvalidRequestError("Missing required fields")
	UnknownClientErr        = oauthmodel.InvalidRequestError("Unknown client_id")
	UnregisteredRedirectErr = oauthmodel.InvalidRequestError("redirect_uri is not registered for this client")
	ConsentDeniedErr        = oauthmodel.NewError(oauthmodel.ErrorCodeAccessDenied, "Invalid password. Please try again.")
	CodeNotFoundErr         = oauthmodel.InvalidGrantError("Invalid or expired authorization code")
	ClientMismatchErr       = oauthmodel.InvalidGrantError("Client ID mismatch")
	RedirectMismatchErr     = oauthmodel.InvalidGrantError("Redirect URI mismatch")
	PKCEFailedErr           = oauthmodel.InvalidGrantError("PKCE verification failed")
	InvalidRefreshTokenErr  = oauthmodel.InvalidGrantError("Invalid refresh token")
	ClientAuthFailedErr     = oauthmodel.NewError(oauthmodel.ErrorCodeInvalidClient, "Client authentication failed")
	UnsupportedGrantTypeErr = oauthmodel.NewError(oauthmodel.ErrorCodeUnsupportedGrantType, "Unsupported grant_type")
)
