package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_KnownAndUnknownProviders(t *testing.T) {
	assert.NotNil(t, New("google_drive"))
	// Unknown providers get the conservative fallback rather than a panic.
	assert.NotNil(t, New("mystery"))
}

func TestAllow_WithinBurst(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 1, BurstSize: 2})

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestRecordRetryAfter_BlocksAllow(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 10})

	l.RecordRetryAfter(time.Minute)
	assert.False(t, l.Allow())
}

func TestRecordRetryAfter_ZeroUsesDefaultBackoff(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 10})

	l.RecordRetryAfter(0)
	assert.False(t, l.Allow())
}

func TestWait_HonoursContextCancellation(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 10})
	l.RecordRetryAfter(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_PassesWhenClear(t *testing.T) {
	l := NewWithConfig(Config{RequestsPerSecond: 100, BurstSize: 10})
	require.NoError(t, l.Wait(context.Background()))
}
