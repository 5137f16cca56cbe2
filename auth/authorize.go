package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"

	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-auth-proxy/internal/errors"
	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
	"github.com/jrsteele09/go-auth-proxy/store"
)

// AuthorizationCode is what a code stands for. It lives for the auth code timeout and is
// consumed by the first successful exchange.
type AuthorizationCode struct {
	ClientID            string                    `json:"client_id"`
	RedirectURI         string                    `json:"redirect_uri"`
	CodeChallenge       string                    `json:"code_challenge"`
	CodeChallengeMethod oauthmodel.CodeMethodType `json:"code_challenge_method"`
	IssuedAt            int64                     `json:"iat"`
}

// ValidateAuthorizeRequest checks an authorization request before the consent page is shown.
// Failures are *oauthmodel.Error and must not redirect, since the redirect_uri is untrusted.
func (as *AuthorizationService) ValidateAuthorizeRequest(ctx context.Context, params *oauthmodel.AuthorizationParameters) error {
	if oerr := params.Validate(); oerr != nil {
		return oerr
	}
	if !as.strictRedirects {
		return nil
	}

	client, err := as.repos.Clients.Get(ctx, params.ClientID)
	if apperrors.Is(err, apperrors.ErrInvalidClient) {
		return UnknownClientErr
	}
	if err != nil {
		return errors.Wrap(err, "[ValidateAuthorizeRequest] client lookup")
	}
	if !client.HasRedirectURI(params.RedirectURI) {
		return UnregisteredRedirectErr
	}
	return nil
}

// Approve checks the consent password and, on a match, issues an authorization code.
// It returns the redirect_uri with code and state appended.
func (as *AuthorizationService) Approve(ctx context.Context, params *oauthmodel.AuthorizationParameters, password string) (string, error) {
	if err := as.ValidateAuthorizeRequest(ctx, params); err != nil {
		return "", err
	}
	if password == "" {
		return "", MissingConsentFieldsErr
	}
	if !as.checkConsentPassword(password) {
		return "", ConsentDeniedErr
	}

	redirect, err := url.Parse(params.RedirectURI)
	if err != nil {
		return "", oauthmodel.InvalidRequestError("redirect_uri is not a valid URI")
	}

	code, err := as.generateCode()
	if err != nil {
		return "", errors.Wrap(err, "[Approve] generate code")
	}
	authCode := &AuthorizationCode{
		ClientID:            params.ClientID,
		RedirectURI:         params.RedirectURI,
		CodeChallenge:       params.CodeChallenge,
		CodeChallengeMethod: params.CodeChallengeMethod,
		IssuedAt:            as.nowTime().Unix(),
	}
	if err := store.PutJSON(ctx, as.repos.Codes, store.AuthCodeKey(code), authCode, as.config.GetAuthCodeTimeout()); err != nil {
		return "", errors.Wrap(err, "[Approve] store code")
	}

	q := redirect.Query()
	q.Set("code", code)
	if params.State != "" {
		q.Set("state", params.State)
	}
	redirect.RawQuery = q.Encode()
	return redirect.String(), nil
}

// checkConsentPassword compares fixed-length digests in constant time so neither the
// content nor the length of the configured password leaks through timing.
func (as *AuthorizationService) checkConsentPassword(given string) bool {
	digest := sha256.Sum256([]byte(given))
	return subtle.ConstantTimeCompare(digest[:], as.passwordDigest[:]) == 1
}

func (as *AuthorizationService) generateCode() (string, error) {
	bytes := make([]byte, as.config.GetCodeGenerationLength())
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
