package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
	"github.com/jobsy/identity-service/internal/security"
)

func TestTokenServiceIssueBindsPairToNewSession(t *testing.T) {
	f := newAuthFixture()
	pub := f.registerCandidate("a@x.com", "secret123")
	user, _ := f.users.FindByID(context.Background(), pub.ID)

	pair, err := f.tokens.Issue(context.Background(), user, domain.ClientMeta{IP: "1.1.1.1", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	session := f.sessions.get(pair.SessionID)
	if session.UserID != pub.ID || session.IP != "1.1.1.1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if session.RefreshTokenHash == pair.RefreshToken {
		t.Fatal("raw refresh token must not be stored")
	}
	if !session.ExpiresAt.Equal(f.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("expected refresh ttl expiry, got %s", session.ExpiresAt)
	}
	claims, err := f.tokens.AuthenticateAccessToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.SessionID != pair.SessionID || claims.Role != string(domain.RoleCandidate) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenServiceRejectsWrongTokenType(t *testing.T) {
	f := newAuthFixture()
	pub := f.registerCandidate("a@x.com", "secret123")
	user, _ := f.users.FindByID(context.Background(), pub.ID)
	pair, err := f.tokens.Issue(context.Background(), user, domain.ClientMeta{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := f.tokens.AuthenticateAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}
	if _, _, err := f.tokens.Rotate(context.Background(), pair.AccessToken, f.users.FindByID, domain.ClientMeta{}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token must not rotate, got %v", err)
	}
	if _, err := f.tokens.AuthenticateAccessToken(context.Background(), "garbage"); KindOf(err) != KindAuthentication {
		t.Fatalf("expected authentication kind, got %v", err)
	}
}

func TestTokenServiceRotateRejectsForeignSubject(t *testing.T) {
	f := newAuthFixture()
	a := f.registerCandidate("a@x.com", "secret123")
	f.registerCandidate("b@x.com", "secret123")
	userA, _ := f.users.FindByID(context.Background(), a.ID)
	pair, err := f.tokens.Issue(context.Background(), userA, domain.ClientMeta{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	forger := security.NewJWTManager("jobsy-identity", "jobsy-api", testAccessSecret, testRefreshSecret).WithClock(f.clock.Now)
	forged, _, err := forger.SignRefreshToken("someone-else", string(domain.RoleCandidate), pair.SessionID, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := f.tokens.Rotate(context.Background(), forged, f.users.FindByID, domain.ClientMeta{}); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if session := f.sessions.get(pair.SessionID); session.RevokedAt != nil {
		t.Fatal("a subject mismatch must not revoke the real owner's session")
	}
}

func TestTokenServiceRevokeAccessTokenSkipsExpiredClaims(t *testing.T) {
	f := newAuthFixture()
	pub := f.registerCandidate("a@x.com", "secret123")
	user, _ := f.users.FindByID(context.Background(), pub.ID)
	pair, _ := f.tokens.Issue(context.Background(), user, domain.ClientMeta{})
	claims, err := f.tokens.AuthenticateAccessToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	f.clock.Advance(time.Hour)
	if err := f.tokens.RevokeAccessToken(context.Background(), claims); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := f.revoked.FindByJTI(context.Background(), claims.ID); err == nil {
		t.Fatal("an already expired token needs no denylist row")
	}
}
