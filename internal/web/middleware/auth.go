package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/config"
	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/core"
)

// Authenticate returns middleware that resolves the acting user and stores
// it in the request context.
//
// A request with X-API-Key acts as the user the key is configured for.
// If RequireAPIKey is false, a request without a key may name its user
// with X-User-ID instead; such users are never admins.
func Authenticate(cfg *config.SecurityConfig, keys map[string]config.KeyUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")

			if apiKey == "" && !cfg.RequireAPIKey {
				id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
				if err != nil || id <= 0 {
					http.Error(w, `{"error":"missing user","code":"AUTH_MISSING_USER"}`, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(core.ContextWithUser(r.Context(), core.User{ID: id})))
				return
			}

			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			ku, ok := lookupAPIKey(apiKey, keys)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			user := core.User{ID: ku.UserID, Admin: ku.Admin}
			next.ServeHTTP(w, r.WithContext(core.ContextWithUser(r.Context(), user)))
		})
	}
}

// lookupAPIKey finds the user of a key. Every configured key is compared in
// constant time so timing does not reveal which key matched.
func lookupAPIKey(key string, keys map[string]config.KeyUser) (config.KeyUser, bool) {
	var found config.KeyUser
	match := 0
	for k, u := range keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k)) == 1 {
			found = u
			match = 1
		}
	}
	return found, match == 1
}
