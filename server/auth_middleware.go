package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClientID stores the client the access token was issued to
	ContextKeyClientID ContextKey = "client_id"
)

// ClientIDFromContext returns the client bound by RequireBearer.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ContextKeyClientID).(string)
	return clientID, ok && clientID != ""
}

// RequireBearer admits a request only with a valid access token minted by this server.
// The caller's token goes no further: the proxy replaces the Authorization header.
func (s *Server) RequireBearer() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				s.metrics.GateRejected(string(oauthmodel.ErrorCodeUnauthorized))
				s.writeBearerChallenge(w, oauthmodel.ErrorCodeUnauthorized, "Missing or invalid Authorization header")
				return
			}

			claims, err := s.tokens.Verify(raw)
			if err != nil {
				s.metrics.GateRejected(string(oauthmodel.ErrorCodeInvalidToken))
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("access token rejected")
				s.writeBearerChallenge(w, oauthmodel.ErrorCodeInvalidToken, "Invalid or expired access token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClientID, claims.Subject)
			next(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, credential, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	credential = strings.TrimSpace(credential)
	return credential, credential != ""
}

func (s *Server) writeBearerChallenge(w http.ResponseWriter, code oauthmodel.ErrorCode, description string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer resource_metadata="%s"`, s.resourceMetadataURL()))
	writeJSONError(w, string(code), description, http.StatusUnauthorized)
}
