package middleware

import (
	"net/http"

	"github.com/basisboard/basisboard/internal/api/response"
)

// RequireAdmin returns middleware that rejects identities without the
// admin role with 403. It must run after Auth; a request that somehow
// reaches it unauthenticated is rejected with 401.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !identity.IsAdmin() {
				response.Err(w, http.StatusForbidden, "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
