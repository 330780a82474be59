package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed window counter. Returns {count, pttl}.
const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`

type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	script *redis.Script
	now    func() time.Time
}

func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		script: redis.NewScript(fixedWindowScript),
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	res, err := l.script.Run(ctx, l.client, []string{l.prefix + ":ratelimit:" + key}, policy.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("redis rate limit: unexpected reply length %d", len(res))
	}
	count, ttl := res[0], time.Duration(res[1])*time.Millisecond
	resetAt := l.now().Add(ttl)
	if count > int64(policy.Limit) {
		return Decision{Allowed: false, RetryAfter: ttl, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{Allowed: true, Remaining: policy.Limit - int(count), ResetAt: resetAt}, nil
}
