package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/health"
	"github.com/jobsy/identity-service/internal/http/handler"
	"github.com/jobsy/identity-service/internal/http/middleware"
	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/service"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	AdminHandler      *handler.AdminHandler
	Authenticator     service.AccessTokenAuthenticator
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter RateLimiterFunc
	AuthRateLimiter   RateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type RateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}
	requireAuth := middleware.AuthMiddleware(dep.Authenticator)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, response.CodeNotReady, "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter)
				r.Post("/register/candidate", dep.AuthHandler.RegisterCandidate)
				r.Post("/register/recruiter", dep.AuthHandler.RegisterRecruiter)
				r.Post("/login", dep.AuthHandler.Login)
				r.Post("/refresh", dep.AuthHandler.Refresh)
				r.Post("/password/forgot", dep.AuthHandler.ForgotPassword)
				r.Post("/password/reset", dep.AuthHandler.ResetPassword)
			})
			r.With(requireAuth).Post("/logout", dep.AuthHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", dep.UserHandler.Me)
			r.Get("/me/sessions", dep.UserHandler.Sessions)
			r.Delete("/me/sessions/{session_id}", dep.UserHandler.RevokeSession)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Patch("/users/{id}/active", dep.AdminHandler.SetUserActive)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
