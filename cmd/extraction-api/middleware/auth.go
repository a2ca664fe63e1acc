// Package middleware provides HTTP middleware for the extraction API.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

// Context keys for request-scoped values.
type contextKey string

// APIKeyKey is the context key for the authenticated tenant key.
const APIKeyKey contextKey = "api_key"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled   bool
	DevAPIKey string
}

// Auth returns middleware that resolves the tenant key for each request.
// Keys arrive in the Authorization header, either bare or as a Bearer
// token. When auth is disabled requests without a key fall back to the
// configured development key.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := keyFromHeader(r.Header.Get("Authorization"))

			if apiKey == "" {
				if cfg.Enabled {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"error":"missing api key"}`))
					return
				}
				apiKey = cfg.DevAPIKey
			}

			ctx := context.WithValue(r.Context(), APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func keyFromHeader(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}

// APIKeyFromContext extracts the tenant key from context.
func APIKeyFromContext(ctx context.Context) string {
	if v := ctx.Value(APIKeyKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// CORS returns CORS middleware for browser clients.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
