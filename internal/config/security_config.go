package config

import "strconv"

const (
	authPasswordVar    = "AUTH_PASSWORD"
	jwtSecretVar       = "JWT_SECRET"
	strictRedirectsVar = "STRICT_REDIRECT_URIS"
)

type SecurityConfig interface {
	GetConsentPassword() string
	GetJWTSecret() string
	GetStrictRedirectURIs() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetConsentPassword is the shared secret entered on the consent page.
func (Security) GetConsentPassword() string {
	return GetEnv(authPasswordVar, "")
}

func (Security) GetJWTSecret() string {
	return GetEnv(jwtSecretVar, "")
}

// GetStrictRedirectURIs requires authorize requests to use a redirect_uri registered by the client.
func (Security) GetStrictRedirectURIs() bool {
	strict, err := strconv.ParseBool(GetEnv(strictRedirectsVar, "true"))
	if err != nil {
		return true
	}
	return strict
}
