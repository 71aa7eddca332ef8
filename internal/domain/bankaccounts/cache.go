// Package bankaccounts caches each tenant's designated bank-account codes.
//
// The cache is an explicit object with a bounded lifetime per entry. Callers
// own it and pass it to whatever needs it; there is no package-level state.
package bankaccounts

import (
	"context"
	"sync"
	"time"
)

// Loader fetches the bank-account codes of a tenant.
type Loader func(ctx context.Context, tenantID string) ([]string, error)

type entry struct {
	codes    map[string]bool
	loadedAt time.Time
}

// Cache is a time-bounded in-memory cache keyed by tenant.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// NewCache creates a cache whose entries expire after ttl. A ttl of zero
// disables caching: every Get calls the loader.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the tenant's codes, calling load when the entry is missing or
// stale. The returned map must not be modified.
func (c *Cache) Get(ctx context.Context, tenantID string, load Loader) (map[string]bool, error) {
	if codes, ok := c.lookup(tenantID); ok {
		return codes, nil
	}

	list, err := load(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	codes := make(map[string]bool, len(list))
	for _, code := range list {
		codes[code] = true
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[tenantID] = entry{codes: codes, loadedAt: c.now()}
		c.mu.Unlock()
	}

	return codes, nil
}

func (c *Cache) lookup(tenantID string) (map[string]bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.entries[tenantID]
	if !found || c.now().Sub(e.loadedAt) >= c.ttl {
		return nil, false
	}
	return e.codes, true
}

// Invalidate drops the tenant's entry.
func (c *Cache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
}

// Clear removes all entries from cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
