package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/observability"
	"github.com/jobsy/identity-service/internal/security"
	"github.com/jobsy/identity-service/internal/service"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// AuthMiddleware reads the access token from the cookie, then the bearer
// header, and admits the request only when the authenticator accepts it.
func AuthMiddleware(authn service.AccessTokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := AccessTokenFromRequest(r)
			if raw == "" {
				observability.RecordAccessTokenValidation(r.Context(), "missing")
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
				return
			}
			claims, err := authn.AuthenticateAccessToken(r.Context(), raw)
			if err != nil {
				if service.KindOf(err) == service.KindIntegrity {
					observability.Audit(r, "auth.access_token", "outcome", "error", "reason", service.ReasonOf(err))
					response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
					return
				}
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication failed", nil)
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AccessTokenFromRequest(r *http.Request) string {
	if raw := security.GetCookie(r, security.AccessTokenCookie); raw != "" {
		return raw
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
