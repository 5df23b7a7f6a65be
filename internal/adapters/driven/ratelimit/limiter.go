// Package ratelimit provides the token-bucket limiter shared by all
// workers that call one external system.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Limiter implements the interface.
var _ driven.RateLimiter = (*Limiter)(nil)

// Config holds rate limiting configuration for one target.
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or less disables limiting.
	RequestsPerSecond float64

	// Burst is the maximum burst size (minimum 1).
	Burst int
}

// Limiter combines a token bucket with a shared backoff deadline set when
// the remote system reports throttling.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter from cfg.
func New(cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, cfg.Burst)}
}

// Wait blocks until a call can be made. Any backoff deadline is honoured
// before the token bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Backoff delays every caller until d from now. A shorter backoff never
// shortens one already in effect.
func (l *Limiter) Backoff(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if at := time.Now().Add(d); at.After(l.retryAt) {
		l.retryAt = at
	}
}

// Allow reports whether a call may be made immediately.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}
