package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/plutusedu/webisync/internal/config"
	"github.com/plutusedu/webisync/internal/logging"
)

// APIKeyAuth guards the dispatch routes with an X-API-Key check when the
// deployment enables it. With RequireAPIKey false the middleware passes
// everything through; enabled with an empty key list it refuses every
// request, which beats silently running open.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			if !keyAccepted(r.Header.Get("X-API-Key"), cfg.APIKeys) {
				logging.FromContext(r.Context()).Warn("rejected dispatch credentials",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"missing or invalid API key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// keyAccepted compares the presented key against every configured key in
// constant time, so response timing does not reveal which key matched.
func keyAccepted(key string, keys []string) bool {
	if key == "" {
		return false
	}
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}
