package profiles

import (
	"context"
	"time"

	"github.com/liamcoop/shiftrules/rules"
)

// ProfileCache provides an abstraction for caching employee profiles.
// This allows swapping between in-memory and Redis implementations.
type ProfileCache interface {
	// Get returns the cached profile and true, or false on a miss or expiry
	Get(ctx context.Context, employeeID int) (rules.EmployeeProfile, bool)

	// Set stores a profile
	Set(ctx context.Context, profile rules.EmployeeProfile)

	// Invalidate drops one employee's entry
	Invalidate(ctx context.Context, employeeID int)
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (invalidation on writes only).
	TTL time.Duration

	// Prefix namespaces keys in shared caches such as Redis
	Prefix string
}

// DefaultCacheConfig returns the defaults for profile caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:    10 * time.Minute,
		Prefix: "shiftrules:profiles:",
	}
}

// CachedStore is a read-through ProfileStore fronted by a ProfileCache.
// Writes go to the store first and then invalidate the cache entry.
type CachedStore struct {
	store ProfileStore
	cache ProfileCache
}

// NewCachedStore wraps store with cache
func NewCachedStore(store ProfileStore, cache ProfileCache) *CachedStore {
	return &CachedStore{store: store, cache: cache}
}

// Get serves from cache when possible
func (s *CachedStore) Get(ctx context.Context, employeeID int) (*rules.EmployeeProfile, error) {
	if p, ok := s.cache.Get(ctx, employeeID); ok {
		return &p, nil
	}

	p, err := s.store.Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, *p)
	return p, nil
}

// GetMany serves cached entries and fetches only the misses from the store
func (s *CachedStore) GetMany(ctx context.Context, employeeIDs []int) (map[int]rules.EmployeeProfile, error) {
	found := make(map[int]rules.EmployeeProfile, len(employeeIDs))
	var misses []int
	for _, id := range employeeIDs {
		if p, ok := s.cache.Get(ctx, id); ok {
			found[id] = p
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return found, nil
	}

	fetched, err := s.store.GetMany(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		found[id] = p
		s.cache.Set(ctx, p)
	}
	return found, nil
}

// Put writes through to the store
func (s *CachedStore) Put(ctx context.Context, profile *rules.EmployeeProfile) error {
	if err := s.store.Put(ctx, profile); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, profile.EmployeeID)
	return nil
}

// Delete removes from the store and the cache
func (s *CachedStore) Delete(ctx context.Context, employeeID int) error {
	if err := s.store.Delete(ctx, employeeID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, employeeID)
	return nil
}

// List always reads the store
func (s *CachedStore) List(ctx context.Context) ([]*rules.EmployeeProfile, error) {
	return s.store.List(ctx)
}
