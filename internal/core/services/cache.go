package services

import (
	"sync"
	"time"
)

// ttlCache is a small expiring string cache. The clock is injected so
// tests can advance time without sleeping.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]ttlEntry
}

type ttlEntry struct {
	value   string
	expires time.Time
}

func newTTLCache(ttl time.Duration, now func() time.Time) *ttlCache {
	if now == nil {
		now = time.Now
	}
	return &ttlCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]ttlEntry),
	}
}

// Get returns the cached value for key if it has not expired.
func (c *ttlCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

// Set stores a value for key with the cache TTL.
func (c *ttlCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry{value: value, expires: c.now().Add(c.ttl)}
}

// Delete removes a key.
func (c *ttlCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
