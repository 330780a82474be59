package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jobsy/identity-service/internal/http/response"
	"github.com/jobsy/identity-service/internal/observability"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
}

type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
	// Burst caps the token bucket of the local limiter. Zero means Limit.
	Burst int
}

type Limiter interface {
	Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error)
}

type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type RateLimiter struct {
	limiter Limiter
	policy  RateLimitPolicy
	mode    FailureMode
	scope   string
	keyFunc func(r *http.Request) string
}

// NewRateLimiter keeps counters in process memory.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewDistributedRateLimiter(NewLocalLimiter(), limit, window, FailClosed, "local")
}

func NewDistributedRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limiter: limiter,
		policy:  normalizePolicy(RateLimitPolicy{Limit: limit, Window: window}),
		mode:    mode,
		scope:   scope,
		keyFunc: clientIPKey,
	}
}

func (rl *RateLimiter) WithKeyFunc(keyFunc func(r *http.Request) string) *RateLimiter {
	if keyFunc != nil {
		rl.keyFunc = keyFunc
	}
	return rl
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.keyFunc(r)
			if key == "" {
				key = r.RemoteAddr
			}
			decision, err := rl.limiter.Allow(r.Context(), rl.scope+":"+key, rl.policy)
			if err != nil {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "backend_error", string(rl.mode))
				if rl.mode == FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request", "scope", rl.scope, "error", err.Error())
					next.ServeHTTP(w, r)
					return
				}
				writeRateLimitHeaders(w.Header(), rl.policy.Limit, 0, time.Now().Add(rl.policy.Window))
				w.Header().Set("Retry-After", retryAfterHeader(rl.policy.Window))
				response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
				return
			}
			writeRateLimitHeaders(w.Header(), rl.policy.Limit, decision.Remaining, decision.ResetAt)
			if !decision.Allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "deny", string(rl.mode))
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allow", string(rl.mode))
			next.ServeHTTP(w, r)
		})
	}
}

// localLimiter combines a token bucket for bursts with a sliding window for
// the sustained rate.
type localLimiter struct {
	mu      sync.Mutex
	store   map[string]*localState
	cleanup time.Time
	now     func() time.Time
}

type localState struct {
	tokens     float64
	lastRefill time.Time
	hits       []time.Time
}

func NewLocalLimiter() Limiter {
	return &localLimiter{
		store:   make(map[string]*localState),
		cleanup: time.Now().Add(time.Minute),
		now:     time.Now,
	}
}

func (l *localLimiter) Allow(_ context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	now := l.now()
	refillPerSec := float64(policy.Limit) / policy.Window.Seconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.cleanup) {
		for k, v := range l.store {
			if now.Sub(v.lastRefill) > 2*policy.Window {
				delete(l.store, k)
			}
		}
		l.cleanup = now.Add(policy.Window)
	}

	state, ok := l.store[key]
	if !ok {
		state = &localState{tokens: float64(policy.Burst), lastRefill: now}
		l.store[key] = state
	}
	if elapsed := now.Sub(state.lastRefill).Seconds(); elapsed > 0 {
		state.tokens = min(float64(policy.Burst), state.tokens+elapsed*refillPerSec)
		state.lastRefill = now
	}

	cutoff := now.Add(-policy.Window)
	kept := state.hits[:0]
	for _, hit := range state.hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	state.hits = kept

	var retry time.Duration
	if state.tokens < 1 {
		retry = time.Duration(math.Ceil((1 - state.tokens) / refillPerSec * float64(time.Second)))
	}
	if len(state.hits) >= policy.Limit {
		retry = max(retry, state.hits[0].Add(policy.Window).Sub(now))
	}

	if retry > 0 {
		return Decision{Allowed: false, RetryAfter: retry, Remaining: 0, ResetAt: now.Add(retry)}, nil
	}
	state.tokens = max(state.tokens-1, 0)
	state.hits = append(state.hits, now)
	remaining := min(int(math.Floor(state.tokens)), policy.Limit-len(state.hits))
	return Decision{
		Allowed:   true,
		Remaining: max(remaining, 0),
		ResetAt:   state.hits[0].Add(policy.Window),
	}, nil
}

func clientIPKey(r *http.Request) string {
	if ip := parseRequestIP(r); ip != nil {
		return ip.String()
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func writeRateLimitHeaders(h http.Header, limit, remaining int, resetAt time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func normalizePolicy(policy RateLimitPolicy) RateLimitPolicy {
	if policy.Limit <= 0 {
		policy.Limit = 1
	}
	if policy.Window <= 0 {
		policy.Window = time.Minute
	}
	if policy.Burst < policy.Limit {
		policy.Burst = policy.Limit
	}
	return policy
}
