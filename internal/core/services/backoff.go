package services

import (
	"context"
	"time"
)

const (
	// backoffBase is the delay before the first retry.
	backoffBase = 1 * time.Second

	// backoffCap bounds the delay between retries.
	backoffCap = 30 * time.Second
)

// retryBackoff returns the delay before retry number attempt (1-based).
// Doubles per attempt: 1s, 2s, 4s, 8s, capped at backoffCap.
func retryBackoff(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

// sleepCtx sleeps for d or returns early with the context error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
