package observability

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Audit writes a security-relevant event with request correlation fields.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}
