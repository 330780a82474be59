package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobsy/identity-service/internal/security"
	"github.com/jobsy/identity-service/internal/service"
)

type stubAuthenticator struct {
	claims *security.Claims
	err    error
	seen   string
}

func (s *stubAuthenticator) AuthenticateAccessToken(_ context.Context, raw string) (*security.Claims, error) {
	s.seen = raw
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func TestAuthMiddlewareMissingTokenReturnsUnauthorized(t *testing.T) {
	h := AuthMiddleware(&stubAuthenticator{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", rr.Code)
	}
}

func TestAuthMiddlewareValidBearerTokenPasses(t *testing.T) {
	authn := &stubAuthenticator{claims: &security.Claims{Role: "Candidat", SessionID: "s1"}}
	var got *security.Claims
	h := AuthMiddleware(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
	if authn.seen != "abc.def.ghi" {
		t.Fatalf("expected bearer token forwarded, got %q", authn.seen)
	}
	if got == nil || got.SessionID != "s1" {
		t.Fatalf("expected claims in context, got %+v", got)
	}
}

func TestAuthMiddlewarePrefersCookie(t *testing.T) {
	authn := &stubAuthenticator{claims: &security.Claims{}}
	h := AuthMiddleware(authn)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: security.AccessTokenCookie, Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if authn.seen != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", authn.seen)
	}
}

func TestAuthMiddlewareRejectionsAreUniform(t *testing.T) {
	for _, err := range []error{service.ErrInvalidAccessToken, service.ErrAccessTokenRevoked} {
		h := AuthMiddleware(&stubAuthenticator{err: err})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("request must not be admitted")
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer x")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%v: expected 401, got %d", err, rr.Code)
		}
	}
}

func TestAuthMiddlewareStoreFailureIs500(t *testing.T) {
	h := AuthMiddleware(&stubAuthenticator{err: errors.New("db down")})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("request must not be admitted")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
