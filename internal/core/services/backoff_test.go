package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryBackoff_DoublesAndCaps(t *testing.T) {
	assert.Equal(t, 1*time.Second, retryBackoff(1))
	assert.Equal(t, 2*time.Second, retryBackoff(2))
	assert.Equal(t, 4*time.Second, retryBackoff(3))
	assert.Equal(t, 8*time.Second, retryBackoff(4))
	assert.Equal(t, 16*time.Second, retryBackoff(5))
	assert.Equal(t, 30*time.Second, retryBackoff(6))
	assert.Equal(t, 30*time.Second, retryBackoff(20))
}

func TestSleepCtx_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepCtx(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepCtx_ZeroDuration(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
}
