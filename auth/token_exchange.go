package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-auth-proxy/clients"
	apperrors "github.com/jrsteele09/go-auth-proxy/internal/errors"
	"github.com/jrsteele09/go-auth-proxy/internal/utils"
	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
	"github.com/jrsteele09/go-auth-proxy/store"
)

// Token redeems a grant. Client-correctable failures are *oauthmodel.Error; any other
// error is a storage or crypto failure and should surface as a 5xx.
func (as *AuthorizationService) Token(ctx context.Context, grant oauthmodel.Grant) (*oauthmodel.TokenResponse, error) {
	switch g := grant.(type) {
	case oauthmodel.AuthorizationCodeGrant:
		return as.exchangeAuthorizationCode(ctx, g)
	case oauthmodel.RefreshTokenGrant:
		return as.exchangeRefreshToken(ctx, g)
	default:
		return nil, UnsupportedGrantTypeErr
	}
}

func (as *AuthorizationService) exchangeAuthorizationCode(ctx context.Context, g oauthmodel.AuthorizationCodeGrant) (*oauthmodel.TokenResponse, error) {
	key := store.AuthCodeKey(g.Code)

	authCode := &AuthorizationCode{}
	if err := store.GetJSON(ctx, as.repos.Codes, key, authCode); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, CodeNotFoundErr
		}
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] read code")
	}

	if authCode.ClientID != g.ClientID {
		return nil, ClientMismatchErr
	}
	if g.RedirectURI != "" && g.RedirectURI != authCode.RedirectURI {
		return nil, RedirectMismatchErr
	}
	if !checkCodeChallenge(authCode.CodeChallenge, g.CodeVerifier) {
		return nil, PKCEFailedErr
	}

	client, err := as.authenticateClient(ctx, g.Client())
	if err != nil {
		return nil, err
	}

	// Only the caller that removes the code may use it.
	if _, err := as.repos.Codes.Take(ctx, key); err != nil {
		if apperrors.Is(err, store.ErrNotFound) {
			return nil, CodeNotFoundErr
		}
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] consume code")
	}

	accessToken, err := as.tokens.Mint(g.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeAuthorizationCode] mint access token")
	}
	resp := as.tokenResponse(accessToken)

	if client == nil {
		return resp, nil
	}
	resp.Scope = utils.PtrIfSet(client.Scope)
	if client.AllowsGrant(oauthmodel.RefreshTokenGrantType) {
		rt, err := as.repos.Refresh.Create(ctx, client.ClientID, client.Scope)
		if err != nil {
			return nil, errors.Wrap(err, "[exchangeAuthorizationCode] create refresh token")
		}
		resp.RefreshToken = utils.Ptr(rt.Token)
	}
	return resp, nil
}

func (as *AuthorizationService) exchangeRefreshToken(ctx context.Context, g oauthmodel.RefreshTokenGrant) (*oauthmodel.TokenResponse, error) {
	current, err := as.repos.Refresh.Get(ctx, g.RefreshToken)
	if apperrors.Is(err, apperrors.ErrInvalidRefreshToken) {
		return nil, InvalidRefreshTokenErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeRefreshToken] read refresh token")
	}
	if current.ClientID != g.ClientID {
		return nil, ClientMismatchErr
	}
	if _, err := as.authenticateClient(ctx, g.Client()); err != nil {
		return nil, err
	}

	accessToken, err := as.tokens.Mint(current.ClientID)
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeRefreshToken] mint access token")
	}

	next, err := as.repos.Refresh.Rotate(ctx, current)
	if apperrors.Is(err, apperrors.ErrInvalidRefreshToken) {
		return nil, InvalidRefreshTokenErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "[exchangeRefreshToken] rotate refresh token")
	}

	resp := as.tokenResponse(accessToken)
	resp.RefreshToken = utils.Ptr(next.Token)
	resp.Scope = utils.PtrIfSet(next.Scope)
	return resp, nil
}

// authenticateClient returns the registration for creds.ClientID, or nil when the client is
// unknown. Clients registered with a secret must present it.
func (as *AuthorizationService) authenticateClient(ctx context.Context, creds oauthmodel.ClientCredentials) (*clients.Client, error) {
	client, err := as.repos.Clients.Get(ctx, creds.ClientID)
	if apperrors.Is(err, apperrors.ErrInvalidClient) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[authenticateClient] client lookup")
	}
	if !client.IsPublic() && !client.CheckSecret(creds.ClientSecret) {
		return nil, ClientAuthFailedErr
	}
	return client, nil
}

func (as *AuthorizationService) tokenResponse(accessToken string) *oauthmodel.TokenResponse {
	return &oauthmodel.TokenResponse{
		AccessToken: accessToken,
		TokenType:   oauthmodel.TokenTypeBearer,
		ExpiresIn:   int64(as.tokens.TTL().Seconds()),
	}
}
