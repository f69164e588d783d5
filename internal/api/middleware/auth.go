package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/basisboard/basisboard/internal/api/response"
	"github.com/basisboard/basisboard/internal/auth"
)

const identityKey contextKey = "identity"

// Verifier resolves a bearer token to an authenticated identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Auth returns middleware that requires a well-formed bearer token and a
// successful verification before the request reaches its handler.
// Requests whose path is in publicPaths pass through untouched. Every
// ambiguity rejects: a missing header, a malformed header, a token the
// provider does not recognize, and a failed role lookup all stop here.
func Auth(verifier Verifier, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[strings.ToLower(p)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public[strings.ToLower(r.URL.Path)] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				response.Err(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := parseBearer(header)
			if !ok {
				response.Err(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrRoleLookup) {
					response.Err(w, http.StatusInternalServerError, auth.ErrRoleLookup.Error())
					return
				}
				response.Err(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}

// parseBearer splits an Authorization header into scheme and token,
// accepting only a case-insensitive "bearer" scheme with a non-empty token.
func parseBearer(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
