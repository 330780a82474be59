package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// registerFailureScript updates one dimension atomically and returns the
// cooldown in milliseconds.
var registerFailureScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local free = tonumber(ARGV[2])
local base = tonumber(ARGV[3])
local mult = tonumber(ARGV[4])
local maxd = tonumber(ARGV[5])
local window = tonumber(ARGV[6])
local failures = tonumber(redis.call('HGET', key, 'failures') or '0')
local last = tonumber(redis.call('HGET', key, 'last_failure_ms') or '0')
if failures == nil or last == nil then
  return redis.error_reply('malformed abuse state')
end
if now - last > window then
  failures = 0
end
failures = failures + 1
local cooldown = 0
if failures > free then
  cooldown = base * (mult ^ (failures - free - 1))
  if cooldown > maxd then
    cooldown = maxd
  end
end
cooldown = math.floor(cooldown)
redis.call('HSET', key, 'failures', failures, 'last_failure_ms', now, 'cooldown_until_ms', now + cooldown)
redis.call('PEXPIRE', key, window + cooldown)
return cooldown
`)

type RedisAuthAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AuthAbusePolicy
	now    func() time.Time
}

func NewRedisAuthAbuseGuard(client redis.UniversalClient, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	if prefix == "" {
		prefix = "auth_abuse"
	}
	return &RedisAuthAbuseGuard{client: client, prefix: prefix, policy: policy.withDefaults(), now: time.Now}
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UnixMilli()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		raw, err := g.client.HGet(ctx, g.stateKey(scope, d.name, d.value), "cooldown_until_ms").Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, err
		}
		until, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse abuse cooldown: %w", err)
		}
		if rem := time.Duration(until-nowMS) * time.Millisecond; rem > longest {
			longest = rem
		}
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UnixMilli()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		ms, err := registerFailureScript.Run(ctx, g.client,
			[]string{g.stateKey(scope, d.name, d.value)},
			nowMS,
			g.policy.FreeAttempts,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
		).Int64()
		if err != nil {
			return 0, fmt.Errorf("register auth failure: %w", err)
		}
		if cd := time.Duration(ms) * time.Millisecond; cd > longest {
			longest = cd
		}
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	dims := abuseDimensions(identity, ip)
	if len(dims) == 0 {
		return nil
	}
	keys := make([]string, 0, len(dims))
	for _, d := range dims {
		keys = append(keys, g.stateKey(scope, d.name, d.value))
	}
	return g.client.Del(ctx, keys...).Err()
}

func (g *RedisAuthAbuseGuard) stateKey(scope AuthAbuseScope, dimension, value string) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, normalizeToken(string(scope)), dimension, hashToken(value))
}
