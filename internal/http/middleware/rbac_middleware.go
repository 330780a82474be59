package middleware

import (
	"net/http"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/http/response"
)

// RequireRole admits requests whose verified role tag is one of roles. It must
// run after AuthMiddleware.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing auth context", nil)
				return
			}
			if _, ok := allowed[domain.Role(claims.Role)]; !ok {
				response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
