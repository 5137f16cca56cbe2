package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-proxy/auth"
	"github.com/jrsteele09/go-auth-proxy/clients"
	"github.com/jrsteele09/go-auth-proxy/internal/config"
	"github.com/jrsteele09/go-auth-proxy/internal/metrics"
	"github.com/jrsteele09/go-auth-proxy/store"
	"github.com/jrsteele09/go-auth-proxy/token"
	"github.com/jrsteele09/go-auth-proxy/token/refresh"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	publicURL string
	auth      *auth.AuthorizationService
	clients   *clients.Registry
	tokens    *token.Codec
	metrics   *metrics.Metrics
	proxy     http.Handler
	consent   *template.Template
	nowTime   func() time.Time
}

type serverOptions struct {
	transport http.RoundTripper
	metrics   *metrics.Metrics
	nowTime   func() time.Time
}

// ServerOption customises the collaborators New builds.
type ServerOption func(*serverOptions)

// WithTransport sets the RoundTripper used for upstream requests.
func WithTransport(rt http.RoundTripper) ServerOption {
	return func(o *serverOptions) {
		o.transport = rt
	}
}

// WithMetrics shares a metrics registry with the caller, typically so it can be served on a separate listener.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(o *serverOptions) {
		o.metrics = m
	}
}

// WithNowTime sets the clock used for token, code and client timestamps (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(o *serverOptions) {
		o.nowTime = nowFunc
	}
}

// New wires the OAuth endpoints, the bearer gate and the upstream proxy over st.
func New(c config.Config, st store.Store, options ...ServerOption) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("[Server New] store is required")
	}
	if err := config.Validate(c); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	opts := serverOptions{nowTime: time.Now}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.metrics == nil {
		opts.metrics = metrics.New()
	}

	publicURL := c.GetPublicURL()
	codec, err := token.NewCodec(c.GetJWTSecret(), publicURL, c.GetDefaultAccessTokenExpiry(), token.WithNowTime(opts.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create token codec: %w", err)
	}

	registry := clients.NewRegistry(st, c, clients.WithNowTime(opts.nowTime))
	authService, err := auth.NewAuthorizationService(
		auth.Repos{
			Codes:   st,
			Clients: registry,
			Refresh: refresh.NewManager(st, c),
		},
		codec,
		c,
		c.GetConsentPassword(),
		auth.WithNowTime(opts.nowTime),
		auth.WithStrictRedirectURIs(c.GetStrictRedirectURIs()),
	)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization service: %w", err)
	}

	origin, err := url.Parse(c.GetOriginURL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] invalid origin URL: %w", err)
	}
	transport := opts.transport
	if transport == nil {
		transport = newUpstreamTransport(c.GetProxyDialTimeout())
	}

	consent, err := ParseTemplate(consentTemplate)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse consent template: %w", err)
	}

	s := &Server{
		env:       c.GetEnv(),
		mux:       http.NewServeMux(),
		config:    c,
		publicURL: publicURL,
		auth:      authService,
		clients:   registry,
		tokens:    codec,
		metrics:   opts.metrics,
		consent:   consent,
		nowTime:   opts.nowTime,
	}
	s.proxy = NewUpstreamProxy(origin, c.GetUpstreamBearerToken(), transport, s.metrics)

	log.Info().
		Str("issuer", publicURL).
		Str("upstream", origin.Scheme+"://"+hostWithoutPort(origin)).
		Bool("strict_redirect_uris", c.GetStrictRedirectURIs()).
		Msg("authorization proxy configured")

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("*", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// resourceMetadataURL is the discovery document advertised in WWW-Authenticate challenges.
func (s *Server) resourceMetadataURL() string {
	return s.publicURL + RouteProtectedResourceMetadata
}
