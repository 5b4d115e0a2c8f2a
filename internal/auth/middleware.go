// Package auth provides operator key checks for the write endpoints.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// Context key type for avoiding collisions
type contextKey string

const keyIDContextKey contextKey = "keyID"

// KeyIDFromContext returns a short identifier of the key that authenticated
// the request, or "" for anonymous requests.
func KeyIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(keyIDContextKey).(string); ok {
		return id
	}
	return ""
}

// Middleware returns an HTTP middleware that validates operator keys.
func Middleware(keys *Keyring, writeError func(w http.ResponseWriter, status int, code, message string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := extractKey(r)
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
				return
			}

			if err := keys.Validate(apiKey); err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), keyIDContextKey, HashAPIKey(apiKey)[:12])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}
