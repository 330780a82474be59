package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/health"
	"github.com/jobsy/identity-service/internal/http/handler"
	"github.com/jobsy/identity-service/internal/security"
	"github.com/jobsy/identity-service/internal/service"
)

type unhealthyChecker struct{}

func (unhealthyChecker) Check(ctx context.Context) health.CheckResult {
	return health.CheckResult{Name: "db", Healthy: false, Error: "db down"}
}

// tokenAuthenticator admits "admin-token" as an Admin and "candidate-token"
// as a candidate.
type tokenAuthenticator struct{}

func (tokenAuthenticator) AuthenticateAccessToken(_ context.Context, raw string) (*security.Claims, error) {
	claims := &security.Claims{SessionID: "s1"}
	claims.Subject = "u1"
	switch raw {
	case "admin-token":
		claims.Role = string(domain.RoleAdmin)
	case "candidate-token":
		claims.Role = string(domain.RoleCandidate)
	default:
		return nil, service.ErrInvalidAccessToken
	}
	return claims, nil
}

type nopAuthService struct{}

func (nopAuthService) RegisterCandidate(_ context.Context, in service.RegisterCandidateInput) (*domain.PublicUser, error) {
	return &domain.PublicUser{ID: "u1", Email: in.Email, Role: domain.RoleCandidate}, nil
}

func (nopAuthService) RegisterRecruiter(_ context.Context, in service.RegisterRecruiterInput) (*domain.PublicUser, error) {
	return &domain.PublicUser{ID: "u2", Email: in.Email, Role: domain.RoleRecruiter}, nil
}

func (nopAuthService) Login(context.Context, string, string, domain.ClientMeta) (*service.LoginResult, error) {
	return nil, service.ErrInvalidCredentials
}

func (nopAuthService) Refresh(context.Context, string, domain.ClientMeta) (*service.LoginResult, error) {
	return nil, service.ErrInvalidRefreshToken
}

func (nopAuthService) Logout(context.Context, *security.Claims) error { return nil }

func (nopAuthService) Me(claims *security.Claims) (*service.MeResult, error) {
	return &service.MeResult{UserID: claims.UserID(), Role: domain.Role(claims.Role), SessionID: claims.SessionID}, nil
}

func (nopAuthService) RequestPasswordReset(context.Context, string) error { return nil }

func (nopAuthService) ConfirmPasswordReset(context.Context, string, string, string, string) error {
	return nil
}

func (nopAuthService) SetUserActive(context.Context, string, bool) error { return nil }

type nopSessionService struct{}

func (nopSessionService) ListActiveSessions(context.Context, string, string) ([]service.SessionView, error) {
	return nil, nil
}

func (nopSessionService) RevokeSession(context.Context, string, string) (string, error) {
	return "revoked", nil
}

func newRouterTestDeps() Dependencies {
	auth := nopAuthService{}
	return Dependencies{
		AuthHandler:      handler.NewAuthHandler(auth, security.CookieOptions{AccessTTL: time.Minute, RefreshTTL: time.Hour}),
		UserHandler:      handler.NewUserHandler(auth, nopSessionService{}),
		AdminHandler:     handler.NewAdminHandler(auth),
		Authenticator:    tokenAuthenticator{},
		CORSOrigins:      []string{"http://localhost"},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
		EnableOTelHTTP:   false,
	}
}

func perform(r http.Handler, method, target string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "10.10.10.10:1234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRouterHealthReadyNilAndUnreadyBranches(t *testing.T) {
	t.Run("nil readiness returns ready", func(t *testing.T) {
		dep := newRouterTestDeps()
		dep.Readiness = nil
		r := NewRouter(dep)

		rr := perform(r, http.MethodGet, "/health/ready", nil, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"status":"ready"`) {
			t.Fatalf("expected ready status payload, got %s", rr.Body.String())
		}
	})

	t.Run("unready dependency returns 503", func(t *testing.T) {
		dep := newRouterTestDeps()
		dep.Readiness = health.NewProbeRunner(time.Second, 0, unhealthyChecker{})
		r := NewRouter(dep)

		rr := perform(r, http.MethodGet, "/health/ready", nil, "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"code":"DEPENDENCY_UNREADY"`) {
			t.Fatalf("expected DEPENDENCY_UNREADY error envelope, got %s", rr.Body.String())
		}
	})
}

func TestRouterHealthLiveAlwaysOKWithDefaultLimiter(t *testing.T) {
	r := NewRouter(newRouterTestDeps())

	rr := perform(r, http.MethodGet, "/health/live", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("expected health live payload, got %s", rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRouterFallbackGlobalRateLimiterWhenCustomNil(t *testing.T) {
	dep := newRouterTestDeps()
	dep.APIRateLimitRPM = 1
	dep.GlobalRateLimiter = nil
	r := NewRouter(dep)

	first := perform(r, http.MethodGet, "/health/live", nil, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", first.Code)
	}
	second := perform(r, http.MethodGet, "/health/live", nil, "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429 from fallback limiter, got %d", second.Code)
	}
}

func TestRouterAuthLimiterScopesPublicAuthRoutes(t *testing.T) {
	dep := newRouterTestDeps()
	hits := 0
	dep.AuthRateLimiter = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}
	r := NewRouter(dep)

	perform(r, http.MethodPost, "/api/v1/auth/login", nil, `{"email":"a@x.com","password":"x"}`)
	perform(r, http.MethodPost, "/api/v1/auth/register/candidate", nil, `{"email":"a@x.com","password":"secret123"}`)
	perform(r, http.MethodGet, "/api/v1/me", bearer("candidate-token"), "")
	if hits != 2 {
		t.Fatalf("expected auth limiter on public auth routes only, got %d hits", hits)
	}
}

func TestRouterProtectedRoutesRequireAccessToken(t *testing.T) {
	r := NewRouter(newRouterTestDeps())

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/me/sessions"},
		{http.MethodDelete, "/api/v1/me/sessions/abc"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodPatch, "/api/v1/admin/users/u1/active"},
	}
	for _, tc := range cases {
		rr := perform(r, tc.method, tc.path, nil, "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
		rr = perform(r, tc.method, tc.path, bearer("forged"), "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
	}

	if rr := perform(r, http.MethodGet, "/api/v1/me", bearer("candidate-token"), ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for authenticated me, got %d", rr.Code)
	}
}

func TestRouterAdminRoutesRequireAdminRole(t *testing.T) {
	r := NewRouter(newRouterTestDeps())

	rr := perform(r, http.MethodPatch, "/api/v1/admin/users/u1/active", bearer("candidate-token"), `{"active":false}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for candidate, got %d", rr.Code)
	}
	rr = perform(r, http.MethodPatch, "/api/v1/admin/users/u1/active", bearer("admin-token"), `{"active":false}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d body=%s", rr.Code, rr.Body.String())
	}
}
