package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_GetSet(t *testing.T) {
	now := time.Now()
	c := newTTLCache(time.Minute, func() time.Time { return now })

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Now()
	c := newTTLCache(time.Minute, func() time.Time { return now })

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_Delete(t *testing.T) {
	c := newTTLCache(time.Minute, nil)

	c.Set("k", "v")
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
