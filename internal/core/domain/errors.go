package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedProvider indicates an unknown provider tag.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrSyncInProgress indicates a sync for the same key is already
	// running. Jobs for one (user, provider, scope) never run concurrently.
	ErrSyncInProgress = errors.New("sync in progress")

	// Authentication errors.

	// ErrNotConnected indicates no connection exists for (user, provider).
	ErrNotConnected = errors.New("not connected")

	// ErrAuthExpired indicates the access token expired mid-use.
	// Recoverable: the connection manager refreshes and the job retries.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrReauthRequired indicates the refresh token itself is expired or
	// revoked. Fatal to the job; the user must re-authenticate out of
	// band. Never retried: a known-invalid token cannot succeed.
	ErrReauthRequired = errors.New("reauthentication required")

	// Sync errors.

	// ErrRateLimited indicates the provider throttled the request. The
	// job suspends until the suggested deadline, then resumes from the
	// last committed cursor. See RateLimitError for the retry-after hint.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a network failure or provider 5xx.
	// Retried with exponential backoff before escalating.
	ErrTransient = errors.New("transient provider error")

	// ErrInvalidCursor indicates the provider invalidated its delta
	// state. Recovered by resetting to a full resync from empty state.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrRejected indicates the emitter refused a batch. Retried at
	// batch granularity.
	ErrRejected = errors.New("batch rejected by emitter")
)

// RateLimitError carries the provider's suggested retry-after deadline.
// It matches errors.Is(err, ErrRateLimited).
type RateLimitError struct {
	// RetryAfter is how long to suspend before resuming.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Is reports ErrRateLimited identity.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterOf extracts the retry-after hint from a rate limit error.
// Returns the fallback when the error carries no hint.
func RetryAfterOf(err error, fallback time.Duration) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > 0 {
		return rle.RetryAfter
	}
	return fallback
}

// Retryable returns true for errors that page-level backoff can recover.
// ErrReauthRequired and ErrInvalidCursor escalate immediately.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRejected)
}
