package server

import (
	"net/http"
	"strings"

	"marketplace-auth/internal/auth"
	"marketplace-auth/internal/security"
)

const bearerPrefix = "bearer "

// RequireAuth wraps next so it only runs for requests carrying a valid access
// token. The resolved principal is attached to the request context. Every
// failure mode (missing header, bad token, unknown subject) gets the same
// 401 response.
func RequireAuth(authn *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			p, err := authn.Authenticate(r.Context(), token, security.KindAccess)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
