package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/liamcoop/shiftrules/rules"
)

type cacheEntry struct {
	profile  rules.EmployeeProfile
	cachedAt time.Time
}

// InMemoryProfileCache is a process-local ProfileCache.
// Thread-safe for concurrent access.
type InMemoryProfileCache struct {
	entries map[int]cacheEntry
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

// NewInMemoryProfileCache creates a new in-memory profile cache
func NewInMemoryProfileCache(config CacheConfig) *InMemoryProfileCache {
	return &InMemoryProfileCache{
		entries: make(map[int]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

// Get returns the cached profile unless it is missing or expired
func (c *InMemoryProfileCache) Get(ctx context.Context, employeeID int) (rules.EmployeeProfile, bool) {
	c.mu.RLock()
	entry, ok := c.entries[employeeID]
	c.mu.RUnlock()

	if !ok {
		return rules.EmployeeProfile{}, false
	}

	if c.config.TTL > 0 && c.now().Sub(entry.cachedAt) > c.config.TTL {
		c.Invalidate(ctx, employeeID)
		return rules.EmployeeProfile{}, false
	}

	return entry.profile.Clone(), true
}

// Set stores a profile
func (c *InMemoryProfileCache) Set(ctx context.Context, profile rules.EmployeeProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[profile.EmployeeID] = cacheEntry{profile: profile.Clone(), cachedAt: c.now()}
}

// Invalidate drops one entry
func (c *InMemoryProfileCache) Invalidate(ctx context.Context, employeeID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, employeeID)
}

// Len returns the number of entries, expired or not
func (c *InMemoryProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
