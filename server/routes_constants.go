package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Discovery
	RouteProtectedResourceMetadata   = "/.well-known/oauth-protected-resource"
	RouteAuthorizationServerMetadata = "/.well-known/oauth-authorization-server"

	// OAuth 2.0 endpoints
	RouteRegister  = "/oauth/register"
	RouteAuthorize = "/oauth/authorize"
	RouteToken     = "/oauth/token"

	RouteHealth = "/health"

	// Everything else is gated and proxied upstream
	RouteProxy = "/"
)
