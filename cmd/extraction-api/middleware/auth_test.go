package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoAPIKey() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(APIKeyFromContext(r.Context())))
	})
}

func TestAuthBearerToken(t *testing.T) {
	handler := Auth(AuthConfig{Enabled: true})(echoAPIKey())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer key-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key-123", rec.Body.String())
}

func TestAuthBareKey(t *testing.T) {
	handler := Auth(AuthConfig{Enabled: true})(echoAPIKey())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "key-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "key-123", rec.Body.String())
}

func TestAuthMissingKeyRejected(t *testing.T) {
	handler := Auth(AuthConfig{Enabled: true})(echoAPIKey())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDisabledFallsBackToDevKey(t *testing.T) {
	handler := Auth(AuthConfig{Enabled: false, DevAPIKey: "dev"})(echoAPIKey())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Body.String())
}

func TestAuthDisabledStillHonorsProvidedKey(t *testing.T) {
	handler := Auth(AuthConfig{Enabled: false, DevAPIKey: "dev"})(echoAPIKey())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer real-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "real-key", rec.Body.String())
}
