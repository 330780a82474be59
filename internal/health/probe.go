// Package health runs dependency readiness probes for the /health/ready endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type CheckResult struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a plain ping function into a named Checker.
type CheckerFunc struct {
	Name string
	Fn   func(ctx context.Context) error
}

func (c CheckerFunc) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := c.Fn(ctx)
	res := CheckResult{Name: c.Name, Healthy: err == nil, DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// ProbeRunner runs every checker concurrently under one timeout and caches the
// aggregated result for cacheTTL so readiness polling stays cheap.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker
	now      func() time.Time

	mu        sync.Mutex
	cachedAt  time.Time
	cachedOK  bool
	cachedRes []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers, now: time.Now}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cacheTTL > 0 && !p.cachedAt.IsZero() && p.now().Sub(p.cachedAt) < p.cacheTTL {
		return p.cachedOK, p.cachedRes
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	var g errgroup.Group
	for i, c := range p.checkers {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, res := range results {
		if !res.Healthy {
			ready = false
		}
	}
	p.cachedAt, p.cachedOK, p.cachedRes = p.now(), ready, results
	return ready, results
}
