package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/advising-auth/internal/auth"
	"github.com/redmonkez12/advising-auth/internal/config"
	"github.com/redmonkez12/advising-auth/internal/httputil"
	"github.com/redmonkez12/advising-auth/internal/logging"
)

func newTestRouter(t *testing.T, env string) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Env:            env,
			TrustedOrigins: []string{"http://127.0.0.1:5500"},
		},
	}

	// Only request paths rejected before the store is reached are exercised here.
	service := auth.NewService(nil, nil, nil, nil, nil, logging.NewNopLogger(), auth.Config{})
	return NewRouter(cfg, auth.NewHandler(service), logging.NewNopLogger())
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, "prod")

	for _, path := range []string{"/", "/health"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, rec.Code, path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "api is running", body["status"])
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, "prod")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
}

func TestRouter_VerifyPageAllowsInlineStyles(t *testing.T) {
	router := newTestRouter(t, "prod")

	// No token: rejected before any store access.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/verify-email", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "style-src 'unsafe-inline'")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, "prod")

	req := httptest.NewRequest(http.MethodOptions, "/user/signin", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5500")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://127.0.0.1:5500", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	router := newTestRouter(t, "prod")

	req := httptest.NewRequest(http.MethodOptions, "/user/signin", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_UserRoutesAreMounted(t *testing.T) {
	router := newTestRouter(t, "prod")

	tests := []struct {
		method string
		path   string
		body   string
		code   string
	}{
		{http.MethodPost, "/user/register", "{", httputil.CodeInvalidRequestBody},
		{http.MethodPost, "/user/signin", "not json", httputil.CodeInvalidRequestBody},
		{http.MethodGet, "/user/profile", "", httputil.CodeEmailRequired},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp httputil.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, "prod")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SwaggerOnlyInDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, "prod").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(t, "dev").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
