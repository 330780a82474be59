package service

import (
	"context"
	"sync"
	"time"
)

// RevokedTokenCache remembers revoked access token ids until the token's own
// expiry. A miss says nothing; callers fall back to the relational denylist.
type RevokedTokenCache interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error
}

type NoopRevokedTokenCache struct{}

func NewNoopRevokedTokenCache() *NoopRevokedTokenCache { return &NoopRevokedTokenCache{} }

func (c *NoopRevokedTokenCache) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func (c *NoopRevokedTokenCache) MarkRevoked(context.Context, string, time.Duration) error { return nil }

type InMemoryRevokedTokenCache struct {
	mu    sync.RWMutex
	store map[string]time.Time
	now   func() time.Time
}

func NewInMemoryRevokedTokenCache() *InMemoryRevokedTokenCache {
	return &InMemoryRevokedTokenCache{store: make(map[string]time.Time), now: time.Now}
}

func (c *InMemoryRevokedTokenCache) IsRevoked(_ context.Context, jti string) (bool, error) {
	now := c.now().UTC()
	c.mu.RLock()
	expiresAt, ok := c.store[jti]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !now.Before(expiresAt) {
		c.mu.Lock()
		if exp, ok := c.store[jti]; ok && !now.Before(exp) {
			delete(c.store, jti)
		}
		c.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (c *InMemoryRevokedTokenCache) MarkRevoked(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[jti] = c.now().UTC().Add(ttl)
	return nil
}
