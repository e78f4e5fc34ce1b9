package github

import (
	"sync"
	"time"
)

// ttlCache is a read-through cache for API responses. Writes are
// idempotent overwrites keyed by request URL, so a plain mutex around
// the map is all the locking needed. Expired entries are evicted lazily
// on the next lookup.
type ttlCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    []byte
	storedAt time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached body for key, or nil if absent or expired.
func (c *ttlCache) get(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Since(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil
	}
	return e.value
}

func (c *ttlCache) set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: time.Now()}
}

func (c *ttlCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
