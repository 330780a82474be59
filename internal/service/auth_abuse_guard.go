package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

type AuthAbuseScope string

const (
	AuthAbuseScopeLogin  AuthAbuseScope = "login"
	AuthAbuseScopeForgot AuthAbuseScope = "forgot"
)

// AuthAbusePolicy grants FreeAttempts failures, then imposes a cooldown of
// BaseDelay*Multiplier^n capped at MaxDelay. Failure counts reset after
// ResetWindow without failures.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

func (p AuthAbusePolicy) withDefaults() AuthAbusePolicy {
	if p.FreeAttempts <= 0 {
		p.FreeAttempts = 5
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Minute
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = 30 * time.Minute
	}
	return p
}

func (p AuthAbusePolicy) cooldown(failures int) time.Duration {
	over := failures - p.FreeAttempts
	if over <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(over-1))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// AuthAbuseGuard tracks failed attempts per identity and per client ip.
// Check and RegisterFailure return the remaining cooldown, zero when clear.
type AuthAbuseGuard interface {
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}

func normalizeAuthIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

type abuseDimension struct {
	name  string
	value string
}

func abuseDimensions(identity, ip string) []abuseDimension {
	dims := make([]abuseDimension, 0, 2)
	if id := normalizeAuthIdentity(identity); id != "" {
		dims = append(dims, abuseDimension{name: "id", value: id})
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		dims = append(dims, abuseDimension{name: "ip", value: ip})
	}
	return dims
}

type NoopAuthAbuseGuard struct{}

func (NoopAuthAbuseGuard) Check(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopAuthAbuseGuard) RegisterFailure(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopAuthAbuseGuard) Reset(context.Context, AuthAbuseScope, string, string) error { return nil }

type abuseState struct {
	failures      int
	lastFailure   time.Time
	cooldownUntil time.Time
}

type InMemoryAuthAbuseGuard struct {
	mu     sync.Mutex
	policy AuthAbusePolicy
	state  map[string]*abuseState
	now    func() time.Time
}

func NewInMemoryAuthAbuseGuard(policy AuthAbusePolicy) *InMemoryAuthAbuseGuard {
	return &InMemoryAuthAbuseGuard{
		policy: policy.withDefaults(),
		state:  make(map[string]*abuseState),
		now:    time.Now,
	}
}

func (g *InMemoryAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		st, ok := g.state[memKey(scope, d)]
		if !ok {
			continue
		}
		if rem := st.cooldownUntil.Sub(now); rem > longest {
			longest = rem
		}
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictLocked(now)
	var longest time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		key := memKey(scope, d)
		st, ok := g.state[key]
		if !ok || now.Sub(st.lastFailure) > g.policy.ResetWindow {
			st = &abuseState{}
			g.state[key] = st
		}
		st.failures++
		st.lastFailure = now
		cd := g.policy.cooldown(st.failures)
		st.cooldownUntil = now.Add(cd)
		if cd > longest {
			longest = cd
		}
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range abuseDimensions(identity, ip) {
		delete(g.state, memKey(scope, d))
	}
	return nil
}

func (g *InMemoryAuthAbuseGuard) evictLocked(now time.Time) {
	for k, st := range g.state {
		if now.Sub(st.lastFailure) > g.policy.ResetWindow && !now.Before(st.cooldownUntil) {
			delete(g.state, k)
		}
	}
}

func memKey(scope AuthAbuseScope, d abuseDimension) string {
	return string(scope) + "|" + d.name + "|" + d.value
}
