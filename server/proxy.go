package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-proxy/internal/metrics"
)

// NewUpstreamProxy forwards gated requests to origin. Method, path, query, headers and body
// pass through; the scheme and host come from origin (without any port) and the
// Authorization header carries upstreamToken instead of the caller's credential.
// Responses are streamed back as they arrive.
func NewUpstreamProxy(origin *url.URL, upstreamToken string, transport http.RoundTripper, m *metrics.Metrics) *httputil.ReverseProxy {
	target := &url.URL{Scheme: origin.Scheme, Host: hostWithoutPort(origin)}
	upstreamAuthorization := "Bearer " + upstreamToken

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Header.Set("Authorization", upstreamAuthorization)
		},
		Transport:     transport,
		FlushInterval: -1,
		ModifyResponse: func(resp *http.Response) error {
			m.Proxied(resp.StatusCode)
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				log.Debug().Str("path", r.URL.Path).Msg("client went away before upstream answered")
			} else {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
			}
			m.Proxied(http.StatusBadGateway)
			writeJSONError(w, "bad_gateway", "", http.StatusBadGateway)
		},
	}
}

func hostWithoutPort(u *url.URL) string {
	host := u.Hostname()
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// newUpstreamTransport is http.DefaultTransport with the configured dial timeout.
func newUpstreamTransport(dialTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return t
}
