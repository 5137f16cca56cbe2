package config

import "time"

const (
	upstreamTokenVar = "UPSTREAM_BEARER_TOKEN"
	originURLVar     = "ORIGIN_URL"
	proxyTimeoutVar  = "PROXY_TIMEOUT"
)

type ProxyConfig interface {
	GetUpstreamBearerToken() string
	GetOriginURL() string
	GetProxyDialTimeout() time.Duration
}

type Proxy struct{}

var _ ProxyConfig = Proxy{}

// GetUpstreamBearerToken is the credential presented to the upstream in place of the caller's token.
func (Proxy) GetUpstreamBearerToken() string {
	return GetEnv(upstreamTokenVar, "")
}

func (Proxy) GetOriginURL() string {
	return GetEnv(originURLVar, "")
}

func (Proxy) GetProxyDialTimeout() time.Duration {
	d, err := time.ParseDuration(GetEnv(proxyTimeoutVar, "30s"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
