package server_test

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-proxy/server"
)

func TestDiscoveryDocuments(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("protected resource", func(t *testing.T) {
		for _, path := range []string{server.RouteProtectedResourceMetadata, server.RouteProtectedResourceMetadata + "/mcp"} {
			resp := f.do(t, http.MethodGet, path, nil, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
			body := decodeJSON(t, resp)
			require.Equal(t, publicURL, body["resource"])
			require.Equal(t, []any{publicURL}, body["authorization_servers"])
		}
	})

	t.Run("authorization server", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, server.RouteAuthorizationServerMetadata, nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		require.Equal(t, publicURL, body["issuer"])
		require.Equal(t, publicURL+"/oauth/authorize", body["authorization_endpoint"])
		require.Equal(t, publicURL+"/oauth/token", body["token_endpoint"])
		require.Equal(t, publicURL+"/oauth/register", body["registration_endpoint"])
		require.Equal(t, []any{"code"}, body["response_types_supported"])
		require.Equal(t, []any{"S256"}, body["code_challenge_methods_supported"])
		require.Equal(t, []any{"authorization_code", "refresh_token"}, body["grant_types_supported"])
		require.Equal(t, []any{"none", "client_secret_post", "client_secret_basic"}, body["token_endpoint_auth_methods_supported"])
	})
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("public client", func(t *testing.T) {
		body := f.registerClient(t, map[string]any{"client_name": "Desktop", "client_uri": "https://desktop.example"})
		require.Equal(t, "https://desktop.example", body["client_id"])
		require.Equal(t, "Desktop", body["client_name"])
		require.Equal(t, []any{"authorization_code"}, body["grant_types"])
		require.Equal(t, []any{"code"}, body["response_types"])
		require.Equal(t, "none", body["token_endpoint_auth_method"])
		require.NotContains(t, body, "client_secret")
		require.NotZero(t, body["client_id_issued_at"])
	})

	t.Run("client_uri collision gets a fresh id", func(t *testing.T) {
		body := f.registerClient(t, map[string]any{"client_uri": "https://desktop.example"})
		require.NotEqual(t, "https://desktop.example", body["client_id"])
	})

	t.Run("confidential client receives its secret once", func(t *testing.T) {
		body := f.registerClient(t, map[string]any{"token_endpoint_auth_method": "client_secret_post"})
		secret, _ := body["client_secret"].(string)
		require.Len(t, secret, 64)
		require.Equal(t, float64(0), body["client_secret_expires_at"])
	})

	t.Run("invalid metadata", func(t *testing.T) {
		cases := map[string]string{
			"malformed json":      `{"redirect_uris":`,
			"no redirect uris":    `{"client_name":"x"}`,
			"javascript redirect": `{"redirect_uris":["javascript:alert(1)"]}`,
			"relative redirect":   `{"redirect_uris":["/callback"]}`,
		}
		for name, payload := range cases {
			t.Run(name, func(t *testing.T) {
				resp := f.do(t, http.MethodPost, server.RouteRegister, strings.NewReader(payload), http.Header{"Content-Type": {"application/json"}})
				requireOAuthError(t, resp, http.StatusBadRequest, "invalid_client_metadata")
			})
		}
	})

	require.Contains(t, f.metricsText(t), "oauth_clients_registered_total 3")
}

func TestAuthorizeGet(t *testing.T) {
	f := setupTestFixture(t)
	client := f.registerClient(t, map[string]any{})
	clientID := client["client_id"].(string)

	query := func(overrides map[string]string) string {
		q := url.Values{
			"client_id":             {clientID},
			"redirect_uri":          {testRedirectURI},
			"state":                 {`"><script>alert(1)</script>`},
			"code_challenge":        {testCodeChallenge},
			"code_challenge_method": {"S256"},
			"response_type":         {"code"},
		}
		for k, v := range overrides {
			if v == "" {
				q.Del(k)
				continue
			}
			q.Set(k, v)
		}
		return server.RouteAuthorize + "?" + q.Encode()
	}

	t.Run("renders the consent page", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, query(nil), nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
		require.Equal(t, "frame-ancestors 'none'", resp.Header.Get("Content-Security-Policy"))

		page, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		html := string(page)
		require.Contains(t, html, "Test Proxy")
		require.Contains(t, html, `name="code_challenge" value="`+testCodeChallenge+`"`)
		require.Contains(t, html, `name="password"`)
		require.NotContains(t, html, "<script>alert(1)</script>")
	})

	t.Run("defaults method and response type", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, query(map[string]string{"code_challenge_method": "", "response_type": ""}), nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	tests := []struct {
		name      string
		overrides map[string]string
		wantCode  string
	}{
		{name: "missing client_id", overrides: map[string]string{"client_id": ""}, wantCode: "invalid_request"},
		{name: "missing redirect_uri", overrides: map[string]string{"redirect_uri": ""}, wantCode: "invalid_request"},
		{name: "missing code_challenge", overrides: map[string]string{"code_challenge": ""}, wantCode: "invalid_request"},
		{name: "plain method", overrides: map[string]string{"code_challenge_method": "plain"}, wantCode: "invalid_request"},
		{name: "token response type", overrides: map[string]string{"response_type": "token"}, wantCode: "unsupported_response_type"},
		{name: "unknown client", overrides: map[string]string{"client_id": "nobody"}, wantCode: "invalid_request"},
		{name: "unregistered redirect", overrides: map[string]string{"redirect_uri": "https://evil.example/cb"}, wantCode: "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, query(tt.overrides), nil, nil)
			requireOAuthError(t, resp, http.StatusBadRequest, tt.wantCode)
			require.Empty(t, resp.Header.Get("Location"))
		})
	}
}

func TestAuthorizeGetPermissiveRedirects(t *testing.T) {
	f := setupTestFixture(t, "STRICT_REDIRECT_URIS", "false")

	q := url.Values{
		"client_id":      {"never-registered"},
		"redirect_uri":   {"https://anywhere.example/cb"},
		"code_challenge": {testCodeChallenge},
	}
	resp := f.do(t, http.MethodGet, server.RouteAuthorize+"?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthorizePost(t *testing.T) {
	f := setupTestFixture(t)
	client := f.registerClient(t, map[string]any{})
	clientID := client["client_id"].(string)

	t.Run("wrong password re-renders with 403", func(t *testing.T) {
		resp := f.postForm(t, server.RouteAuthorize, consentForm(clientID, "guess"), nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Location"))
		require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
		page, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(page), "Invalid password. Please try again.")
		require.Contains(t, string(page), `name="client_id" value="`+clientID+`"`)
		require.NotContains(t, string(page), "guess")
	})

	t.Run("missing password", func(t *testing.T) {
		resp := f.postForm(t, server.RouteAuthorize, consentForm(clientID, ""), nil)
		requireOAuthError(t, resp, http.StatusBadRequest, "invalid_request")
	})

	t.Run("correct password redirects with code and state", func(t *testing.T) {
		form := consentForm(clientID, consentPassword)
		form.Set("redirect_uri", testRedirectURI)
		resp := f.postForm(t, server.RouteAuthorize, form, nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "client.example", location.Host)
		require.Equal(t, "/cb", location.Path)
		require.Len(t, location.Query().Get("code"), 64)
		require.Equal(t, "xyz", location.Query().Get("state"))
	})

	t.Run("unregistered redirect never redirects", func(t *testing.T) {
		form := consentForm(clientID, consentPassword)
		form.Set("redirect_uri", "https://evil.example/cb")
		resp := f.postForm(t, server.RouteAuthorize, form, nil)
		requireOAuthError(t, resp, http.StatusBadRequest, "invalid_request")
		require.Empty(t, resp.Header.Get("Location"))
	})
}

func TestTokenEndpoint(t *testing.T) {
	f := setupTestFixture(t)
	client := f.registerClient(t, map[string]any{"grant_types": []string{"authorization_code", "refresh_token"}})
	clientID := client["client_id"].(string)

	exchange := func(t *testing.T, code string) *http.Response {
		return f.postForm(t, server.RouteToken, url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"code_verifier": {testCodeVerifier},
			"client_id":     {clientID},
			"redirect_uri":  {testRedirectURI},
		}, nil)
	}

	t.Run("code exchange issues tokens once", func(t *testing.T) {
		code := f.authorize(t, clientID)

		resp := exchange(t, code)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.Equal(t, "no-cache", resp.Header.Get("Pragma"))
		body := decodeJSON(t, resp)
		require.Equal(t, "Bearer", body["token_type"])
		require.Equal(t, float64(604800), body["expires_in"])
		require.NotEmpty(t, body["access_token"])
		require.NotEmpty(t, body["refresh_token"])

		replay := exchange(t, code)
		requireOAuthError(t, replay, http.StatusBadRequest, "invalid_grant")
	})

	t.Run("wrong verifier leaves the code usable", func(t *testing.T) {
		code := f.authorize(t, clientID)
		resp := f.postForm(t, server.RouteToken, url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"code_verifier": {"wrong-verifier"},
			"client_id":     {clientID},
		}, nil)
		body := requireOAuthError(t, resp, http.StatusBadRequest, "invalid_grant")
		require.Equal(t, "PKCE verification failed", body["error_description"])

		require.Equal(t, http.StatusOK, exchange(t, code).StatusCode)
	})

	t.Run("expired code", func(t *testing.T) {
		code := f.authorize(t, clientID)
		f.advance(301 * time.Second)
		requireOAuthError(t, exchange(t, code), http.StatusBadRequest, "invalid_grant")
	})

	t.Run("refresh rotates", func(t *testing.T) {
		tokens := decodeJSON(t, exchange(t, f.authorize(t, clientID)))
		first := tokens["refresh_token"].(string)

		resp := f.postForm(t, server.RouteToken, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {first},
			"client_id":     {clientID},
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		rotated := decodeJSON(t, resp)
		require.NotEqual(t, first, rotated["refresh_token"])

		reuse := f.postForm(t, server.RouteToken, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {first},
			"client_id":     {clientID},
		}, nil)
		requireOAuthError(t, reuse, http.StatusBadRequest, "invalid_grant")
	})

	t.Run("malformed requests", func(t *testing.T) {
		cases := []struct {
			form     url.Values
			wantCode string
		}{
			{form: url.Values{}, wantCode: "invalid_request"},
			{form: url.Values{"grant_type": {"password"}}, wantCode: "unsupported_grant_type"},
			{form: url.Values{"grant_type": {"client_credentials"}, "client_id": {clientID}}, wantCode: "unsupported_grant_type"},
			{form: url.Values{"grant_type": {"authorization_code"}, "client_id": {clientID}}, wantCode: "invalid_request"},
			{form: url.Values{"grant_type": {"refresh_token"}}, wantCode: "invalid_request"},
		}
		for _, c := range cases {
			requireOAuthError(t, f.postForm(t, server.RouteToken, c.form, nil), http.StatusBadRequest, c.wantCode)
		}
	})

	text := f.metricsText(t)
	require.Contains(t, text, `oauth_tokens_issued_total{grant_type="authorization_code"}`)
	require.Contains(t, text, `oauth_tokens_issued_total{grant_type="refresh_token"} 1`)
	require.Contains(t, text, `oauth_token_errors_total{error="invalid_grant"}`)
}

func TestTokenEndpointConfidentialClient(t *testing.T) {
	f := setupTestFixture(t)
	client := f.registerClient(t, map[string]any{"token_endpoint_auth_method": "client_secret_basic"})
	clientID := client["client_id"].(string)
	secret := client["client_secret"].(string)

	form := func(code string) url.Values {
		return url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {code},
			"code_verifier": {testCodeVerifier},
		}
	}

	t.Run("without secret", func(t *testing.T) {
		code := f.authorize(t, clientID)
		v := form(code)
		v.Set("client_id", clientID)
		requireOAuthError(t, f.postForm(t, server.RouteToken, v, nil), http.StatusUnauthorized, "invalid_client")
	})

	t.Run("wrong secret over basic auth", func(t *testing.T) {
		code := f.authorize(t, clientID)
		req := http.Header{}
		req.Set("Authorization", basicAuth(clientID, "not-the-secret"))
		requireOAuthError(t, f.postForm(t, server.RouteToken, form(code), req), http.StatusUnauthorized, "invalid_client")
	})

	t.Run("secret over basic auth", func(t *testing.T) {
		code := f.authorize(t, clientID)
		req := http.Header{}
		req.Set("Authorization", basicAuth(clientID, secret))
		resp := f.postForm(t, server.RouteToken, form(code), req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("secret in form", func(t *testing.T) {
		code := f.authorize(t, clientID)
		v := form(code)
		v.Set("client_id", clientID)
		v.Set("client_secret", secret)
		require.Equal(t, http.StatusOK, f.postForm(t, server.RouteToken, v, nil).StatusCode)
	})
}

func basicAuth(user, pass string) string {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth(url.QueryEscape(user), url.QueryEscape(pass))
	return r.Header.Get("Authorization")
}

func TestStoreUnavailable(t *testing.T) {
	f := setupUnavailableStoreFixture(t)

	requireServerError := func(t *testing.T, resp *http.Response) {
		t.Helper()
		body := requireOAuthError(t, resp, http.StatusInternalServerError, "server_error")
		require.Equal(t, "Temporarily unable to process the request", body["error_description"])
		require.Equal(t, "1", resp.Header.Get("Retry-After"))
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.NotContains(t, body["error_description"], "connection refused")
	}

	t.Run("authorization code grant", func(t *testing.T) {
		resp := f.postForm(t, server.RouteToken, url.Values{
			"grant_type":    {"authorization_code"},
			"code":          {"some-code"},
			"code_verifier": {testCodeVerifier},
			"client_id":     {"client-a"},
		}, nil)
		requireServerError(t, resp)
	})

	t.Run("refresh token grant", func(t *testing.T) {
		resp := f.postForm(t, server.RouteToken, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {"some-refresh-token"},
			"client_id":     {"client-a"},
		}, nil)
		requireServerError(t, resp)
	})

	t.Run("registration", func(t *testing.T) {
		resp := f.postJSON(t, server.RouteRegister, map[string]any{"redirect_uris": []string{testRedirectURI}})
		requireServerError(t, resp)
	})

	t.Run("authorize", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, server.RouteAuthorize+"?"+consentForm("client-a", "").Encode(), nil, nil)
		requireServerError(t, resp)
	})

	text := f.metricsText(t)
	require.Contains(t, text, `oauth_token_errors_total{error="server_error"} 2`)
	require.NotContains(t, text, `oauth_token_errors_total{error="invalid_grant"}`)
	require.NotContains(t, text, "oauth_clients_registered_total 1")
}
