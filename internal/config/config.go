package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	ProxyConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetPublicURL() string
	GetStoreURL() string
	GetStoreKeyPrefix() string
	GetMetricsAddr() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Proxy
}

func New() Config {
	return mainConfig{}
}

// Validate reports every missing or malformed required setting in one error.
func Validate(c Config) error {
	var problems []string

	required := []struct{ name, value string }{
		{upstreamTokenVar, c.GetUpstreamBearerToken()},
		{authPasswordVar, c.GetConsentPassword()},
		{jwtSecretVar, c.GetJWTSecret()},
		{originURLVar, c.GetOriginURL()},
	}
	for _, r := range required {
		if r.value == "" {
			problems = append(problems, r.name+" is required")
		}
	}

	for _, u := range []struct{ name, value string }{{originURLVar, c.GetOriginURL()}, {publicURLVar, c.GetPublicURL()}} {
		if u.value != "" && !isHTTPURL(u.value) {
			problems = append(problems, u.name+" must be an absolute http(s) URL")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
