package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	// Public: never reach the bearer gate
	s.RegisterRouteHandler(RouteHealth, ChainMiddleware(s.Health(), s.LoggingMiddleware))

	s.registerAPIRoute(http.MethodGet, RouteProtectedResourceMetadata, s.ProtectedResourceMetadata())
	// RFC 9728 path-suffixed form, e.g. /.well-known/oauth-protected-resource/mcp
	s.registerAPIRoute(http.MethodGet, RouteProtectedResourceMetadata+"/{resource...}", s.ProtectedResourceMetadata())
	s.registerAPIRoute(http.MethodGet, RouteAuthorizationServerMetadata, s.AuthorizationServerMetadata())
	s.registerAPIRoute(http.MethodPost, RouteRegister, s.Register())
	s.registerAPIRoute(http.MethodPost, RouteToken, s.Token())

	// Consent page
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.AuthorizeGet(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthorize, ChainMiddleware(s.AuthorizePost(), s.HTMLMiddleWare()...))

	// Catch-all: bearer gate then upstream
	s.RegisterRouteHandler(RouteProxy, ChainMiddleware(s.proxy.ServeHTTP, s.ProxyMiddleware()...))
}

// registerAPIRoute registers a JSON endpoint together with its CORS preflight.
func (s *Server) registerAPIRoute(method, path string, handler http.HandlerFunc) {
	s.RegisterRouteHandler(method+" "+path, ChainMiddleware(handler, s.APIMiddleware()...))
	s.RegisterRouteHandler(http.MethodOptions+" "+path, ChainMiddleware(preflightHandler, s.APIMiddleware()...))
}

// preflightHandler is only reached for OPTIONS requests without an Origin header.
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
