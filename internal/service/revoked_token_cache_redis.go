package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRevokedTokenCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRevokedTokenCache(client redis.UniversalClient, prefix string) *RedisRevokedTokenCache {
	if prefix == "" {
		prefix = "revoked_access_token"
	}
	return &RedisRevokedTokenCache{client: client, prefix: prefix}
}

func (c *RedisRevokedTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	_, err := c.client.Get(ctx, c.key(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisRevokedTokenCache) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.key(jti), "1", ttl).Err()
}

func (c *RedisRevokedTokenCache) key(jti string) string {
	return fmt.Sprintf("%s:jti:%s", c.prefix, hashToken(jti))
}
