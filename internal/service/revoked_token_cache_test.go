package service

import (
	"context"
	"testing"
	"time"

	"github.com/jobsy/identity-service/internal/domain"
)

func TestInMemoryRevokedTokenCacheExpiry(t *testing.T) {
	clock := &testClock{t: time.Now()}
	cache := NewInMemoryRevokedTokenCache()
	cache.now = clock.Now
	ctx := context.Background()

	if err := cache.MarkRevoked(ctx, "j1", time.Minute); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := cache.MarkRevoked(ctx, "j0", 0); err != nil {
		t.Fatalf("zero ttl mark: %v", err)
	}
	if hit, _ := cache.IsRevoked(ctx, "j1"); !hit {
		t.Fatal("expected hit before expiry")
	}
	if hit, _ := cache.IsRevoked(ctx, "j0"); hit {
		t.Fatal("zero ttl must not be cached")
	}
	clock.Advance(time.Minute)
	if hit, _ := cache.IsRevoked(ctx, "j1"); hit {
		t.Fatal("expected miss at expiry")
	}
}

func TestRedisRevokedTokenCacheUsesTTL(t *testing.T) {
	server, client := newRedisClientForTest(t)
	cache := NewRedisRevokedTokenCache(client, "revoked_test")
	ctx := context.Background()

	if err := cache.MarkRevoked(ctx, "jti-1", 30*time.Second); err != nil {
		t.Fatalf("mark: %v", err)
	}
	hit, err := cache.IsRevoked(ctx, "jti-1")
	if err != nil || !hit {
		t.Fatalf("expected hit, got %v %v", hit, err)
	}
	if keys := server.Keys(); len(keys) != 1 || keys[0] == "revoked_test:jti:jti-1" {
		t.Fatalf("expected one hashed key, got %v", keys)
	}

	server.FastForward(31 * time.Second)
	hit, err = cache.IsRevoked(ctx, "jti-1")
	if err != nil || hit {
		t.Fatalf("expected miss after ttl, got %v %v", hit, err)
	}
}

func TestTokenServiceBackfillsCacheFromDenylist(t *testing.T) {
	f := newAuthFixture()
	f.registerCandidate("a@x.com", "secret123")
	login, _ := f.auth.Login(context.Background(), "a@x.com", "secret123", domain.ClientMeta{})
	claims, _ := f.tokens.AuthenticateAccessToken(context.Background(), login.Tokens.AccessToken)
	if err := f.auth.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// A fresh cache forces one relational lookup, then serves from memory.
	cache := NewInMemoryRevokedTokenCache()
	cache.now = f.clock.Now
	f.tokens.cache = cache
	before := f.revoked.lookups
	for i := 0; i < 3; i++ {
		revoked, err := f.tokens.IsAccessTokenRevoked(context.Background(), claims.ID)
		if err != nil || !revoked {
			t.Fatalf("expected revoked, got %v %v", revoked, err)
		}
	}
	if got := f.revoked.lookups - before; got != 1 {
		t.Fatalf("expected exactly one denylist lookup, got %d", got)
	}
}

// ctxAwareRevokedRepo fails lookups whose context is already done, like a real
// driver would.
type ctxAwareRevokedRepo struct{ *inMemoryRevokedRepo }

func (r ctxAwareRevokedRepo) FindByJTI(ctx context.Context, jti string) (*domain.RevokedAccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.inMemoryRevokedRepo.FindByJTI(ctx, jti)
}

func TestDenylistLookupIgnoresCallerCancellation(t *testing.T) {
	f := newAuthFixture()
	f.registerCandidate("a@x.com", "secret123")
	login, _ := f.auth.Login(context.Background(), "a@x.com", "secret123", domain.ClientMeta{})
	claims, _ := f.tokens.AuthenticateAccessToken(context.Background(), login.Tokens.AccessToken)
	if err := f.auth.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	f.tokens.revoked = ctxAwareRevokedRepo{f.revoked}
	f.tokens.cache = NewNoopRevokedTokenCache()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	revoked, err := f.tokens.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		t.Fatalf("a shared lookup must not inherit the caller's cancellation: %v", err)
	}
	if !revoked {
		t.Fatal("expected revoked")
	}
}
