package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-proxy/auth"
	"github.com/jrsteele09/go-auth-proxy/clients"
	"github.com/jrsteele09/go-auth-proxy/oauthmodel"
	"github.com/jrsteele09/go-auth-proxy/store"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	maxFormBytes         = 64 << 10
	maxRegistrationBytes = 64 << 10

	storeRetryAfter = "1"
)

// ProtectedResourceMetadata serves the RFC 9728 document clients discover from the 401 challenge.
func (s *Server) ProtectedResourceMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"resource":              s.publicURL,
			"authorization_servers": []string{s.publicURL},
		}
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, resp)
	}
}

// AuthorizationServerMetadata serves the RFC 8414 document.
func (s *Server) AuthorizationServerMetadata() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.publicURL

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteAuthorize,
			"token_endpoint":         baseURL + RouteToken,
			"registration_endpoint":  baseURL + RouteRegister,

			"response_types_supported": []string{string(oauthmodel.CodeResponseType)},
			"grant_types_supported": []string{
				string(oauthmodel.AuthorizationCodeGrantType),
				string(oauthmodel.RefreshTokenGrantType),
			},
			"code_challenge_methods_supported": []string{string(oauthmodel.CodeMethodTypeS256)},

			// Public clients use PKCE alone; registered confidential clients send their secret
			"token_endpoint_auth_methods_supported": []string{
				string(oauthmodel.AuthMethodNone),
				"client_secret_post",
				"client_secret_basic",
			},
		}
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, resp)
	}
}

// Register handles RFC 7591 dynamic client registration.
func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clients.RegistrationRequest
		body := http.MaxBytesReader(w, r.Body, maxRegistrationBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeOAuthError(w, oauthmodel.InvalidClientMetadataError("Invalid JSON body"))
			return
		}

		resp, err := s.clients.Register(r.Context(), &req)
		if err != nil {
			s.writeServiceError(w, err, "client registration")
			return
		}

		s.metrics.ClientRegistered()
		log.Info().
			Str("client_id", resp.ClientID).
			Str("client_name", resp.ClientName).
			Str("auth_method", resp.TokenEndpointAuthMethod).
			Msg("client registered")

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusCreated, resp)
	}
}

// AuthorizeGet validates the authorization request and shows the consent page.
// Invalid requests get a JSON error and are never redirected.
func (s *Server) AuthorizeGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := oauthmodel.ParseAuthorizationParameters(r.URL.Query())
		if err := s.auth.ValidateAuthorizeRequest(r.Context(), params); err != nil {
			s.writeServiceError(w, err, "authorize")
			return
		}
		s.renderConsent(w, http.StatusOK, params, "")
	}
}

// AuthorizePost checks the consent password and redirects back to the client with a code.
func (s *Server) AuthorizePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			writeOAuthError(w, oauthmodel.InvalidRequestError("Failed to parse form data"))
			return
		}

		params := oauthmodel.ParseAuthorizationParameters(r.PostForm)
		redirectURL, err := s.auth.Approve(r.Context(), params, r.PostForm.Get("password"))
		if errors.Is(err, auth.ConsentDeniedErr) {
			log.Warn().Str("client_id", params.ClientID).Msg("consent password rejected")
			s.renderConsent(w, http.StatusForbidden, params, auth.ConsentDeniedErr.Description)
			return
		}
		if err != nil {
			s.writeServiceError(w, err, "authorize")
			return
		}

		log.Info().Str("client_id", params.ClientID).Msg("authorization code issued")
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// Token exchanges an authorization code or refresh token for tokens.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			s.writeTokenError(w, oauthmodel.InvalidRequestError("Failed to parse form data"))
			return
		}
		form := r.PostForm
		applyBasicAuth(r, form)

		log.Debug().
			Str("grant_type", form.Get("grant_type")).
			Str("client_id", form.Get("client_id")).
			Bool("has_code", form.Get("code") != "").
			Bool("has_code_verifier", form.Get("code_verifier") != "").
			Bool("has_refresh_token", form.Get("refresh_token") != "").
			Msg("token request")

		grant, oerr := oauthmodel.ParseGrant(form)
		if oerr != nil {
			s.writeTokenError(w, oerr)
			return
		}

		tokenResponse, err := s.auth.Token(r.Context(), grant)
		if err != nil {
			var oauthErr *oauthmodel.Error
			if errors.As(err, &oauthErr) {
				s.writeTokenError(w, oauthErr)
				return
			}
			s.metrics.TokenError(string(oauthmodel.ErrorCodeServerError))
			s.writeServiceError(w, err, "token")
			return
		}

		s.metrics.TokenIssued(string(grant.GrantType()))
		log.Info().
			Str("client_id", grant.Client().ClientID).
			Str("grant_type", string(grant.GrantType())).
			Msg("access token issued")

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, tokenResponse)
	}
}

// Health is the unauthenticated liveness check.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true,
			"ts": s.nowTime().UnixMilli(),
		})
	}
}

// applyBasicAuth copies HTTP Basic client credentials (RFC 6749 section 2.3.1) into the form.
// Credentials in the form body win.
func applyBasicAuth(r *http.Request, form url.Values) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return
	}
	if id, err := url.QueryUnescape(user); err == nil && form.Get("client_id") == "" {
		form.Set("client_id", id)
	}
	if secret, err := url.QueryUnescape(pass); err == nil && form.Get("client_secret") == "" {
		form.Set("client_secret", secret)
	}
}

func (s *Server) writeTokenError(w http.ResponseWriter, oerr *oauthmodel.Error) {
	s.metrics.TokenError(string(oerr.Code))
	w.Header().Set("Cache-Control", "no-store")
	writeOAuthError(w, oerr)
}

// writeServiceError renders an *oauthmodel.Error as is. Anything else is a server fault:
// logged with its cause and answered with a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, operation string) {
	var oauthErr *oauthmodel.Error
	if errors.As(err, &oauthErr) {
		writeOAuthError(w, oauthErr)
		return
	}
	if errors.Is(err, store.ErrUnavailable) {
		// transient, the client may retry
		log.Err(err).Str("operation", operation).Msg("credential store unavailable")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Retry-After", storeRetryAfter)
		writeJSONError(w, string(oauthmodel.ErrorCodeServerError), "Temporarily unable to process the request", http.StatusInternalServerError)
		return
	}
	log.Err(err).Str("operation", operation).Msg("request failed")
	writeJSONError(w, string(oauthmodel.ErrorCodeServerError), "Temporarily unable to process the request", http.StatusInternalServerError)
}

func writeOAuthError(w http.ResponseWriter, oerr *oauthmodel.Error) {
	status := oerr.Status
	if status == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, oerr)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, &oauthmodel.Error{Code: oauthmodel.ErrorCode(errorCode), Description: description})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}
