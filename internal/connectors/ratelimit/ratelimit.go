// Package ratelimit provides client-side throttling for provider APIs.
// It combines a token bucket for proactive pacing with a retry-at deadline
// recorded from 429 responses.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiting configuration for a provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int
}

// Defaults provides conservative per-provider limits, well below the
// providers' published quotas.
var Defaults = map[string]Config{
	"google_drive": {RequestsPerSecond: 8.0, BurstSize: 10}, // Google allows 10/sec/user
	"onedrive":     {RequestsPerSecond: 5.0, BurstSize: 10},
	"sharepoint":   {RequestsPerSecond: 2.0, BurstSize: 5}, // Graph throttles SharePoint harder
	"dropbox":      {RequestsPerSecond: 5.0, BurstSize: 10},
}

// DefaultBackoff is applied when a 429 carries no Retry-After hint.
const DefaultBackoff = 60 * time.Second

// Limiter paces requests against one provider API.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter for the named provider, falling back to a
// conservative default for unknown names.
func New(provider string) *Limiter {
	cfg, ok := Defaults[provider]
	if !ok {
		cfg = Config{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a limiter with explicit configuration.
func NewWithConfig(cfg Config) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made without exceeding the rate
// limit. It also respects any backoff recorded from a 429.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordRetryAfter records a provider throttle response and sets the
// backoff deadline for subsequent Waits.
func (l *Limiter) RecordRetryAfter(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}
	l.mu.Lock()
	l.retryAt = time.Now().Add(d)
	l.mu.Unlock()
}

// Allow checks if a request can be made immediately without blocking.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}
