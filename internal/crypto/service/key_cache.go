package service

import (
	"sync"
	"time"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
)

// TTLKeyCache is an in-memory KeyCache with time-based expiry.
//
// One instance is shared by all concurrent record operations in the process
// and lives for the process lifetime. It is never a source of truth: durable
// KeyMetadata always wins and a miss simply re-resolves. Entries expire on
// read after the configured TTL; a TTL of zero disables expiry.
type TTLKeyCache struct {
	mu      sync.RWMutex
	entries map[cryptoDomain.EntityKey]cryptoDomain.CacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewKeyCache creates a TTLKeyCache with the given entry time-to-live.
func NewKeyCache(ttl time.Duration) *TTLKeyCache {
	return &TTLKeyCache{
		entries: make(map[cryptoDomain.EntityKey]cryptoDomain.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached entry for the entity, expiring it when stale.
func (c *TTLKeyCache) Get(entity cryptoDomain.EntityKey) (cryptoDomain.CacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[entity]
	c.mu.RUnlock()

	if !ok {
		return cryptoDomain.CacheEntry{}, false
	}

	if c.ttl > 0 && c.now().Sub(entry.InsertedAt) > c.ttl {
		c.Delete(entity)
		return cryptoDomain.CacheEntry{}, false
	}

	return entry, true
}

// Set stores the entry for the entity, stamping the insertion time.
func (c *TTLKeyCache) Set(entity cryptoDomain.EntityKey, entry cryptoDomain.CacheEntry) {
	entry.InsertedAt = c.now()

	c.mu.Lock()
	c.entries[entity] = entry
	c.mu.Unlock()
}

// Delete removes the entry for the entity. The wrapped DEK is ciphertext, so
// no zeroing is needed; the plaintext DEK never enters the cache.
func (c *TTLKeyCache) Delete(entity cryptoDomain.EntityKey) {
	c.mu.Lock()
	delete(c.entries, entity)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *TTLKeyCache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of live entries. Used by metrics and tests.
func (c *TTLKeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
