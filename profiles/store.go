// Package profiles resolves employee master data (labor-time thresholds) for
// the validator. Stores may be in memory or PostgreSQL-backed, optionally
// fronted by an in-memory or Redis cache.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/liamcoop/shiftrules/rules"
)

// ErrProfileNotFound is returned when an employee has no recorded profile
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore manages employee profile persistence and retrieval
type ProfileStore interface {
	// Get returns one employee's profile, or an error wrapping ErrProfileNotFound
	Get(ctx context.Context, employeeID int) (*rules.EmployeeProfile, error)

	// GetMany returns the profiles found for ids; missing employees are absent
	GetMany(ctx context.Context, employeeIDs []int) (map[int]rules.EmployeeProfile, error)

	// Put inserts or replaces a profile
	Put(ctx context.Context, profile *rules.EmployeeProfile) error

	// Delete removes a profile
	Delete(ctx context.Context, employeeID int) error

	// List returns every profile ordered by employee id
	List(ctx context.Context) ([]*rules.EmployeeProfile, error)
}

// InMemoryProfileStore implements ProfileStore using an in-memory map.
// Thread-safe with RWMutex.
type InMemoryProfileStore struct {
	profiles map[int]*rules.EmployeeProfile
	mu       sync.RWMutex
}

// NewInMemoryProfileStore creates a store seeded with the given profiles
func NewInMemoryProfileStore(seed ...rules.EmployeeProfile) *InMemoryProfileStore {
	s := &InMemoryProfileStore{
		profiles: make(map[int]*rules.EmployeeProfile),
	}
	for i := range seed {
		p := seed[i].Clone()
		s.profiles[p.EmployeeID] = &p
	}
	return s
}

// Get retrieves a profile by employee ID
func (s *InMemoryProfileStore) Get(ctx context.Context, employeeID int) (*rules.EmployeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[employeeID]
	if !exists {
		return nil, fmt.Errorf("employee %d: %w", employeeID, ErrProfileNotFound)
	}
	clone := p.Clone()
	return &clone, nil
}

// GetMany retrieves the profiles of several employees at once
func (s *InMemoryProfileStore) GetMany(ctx context.Context, employeeIDs []int) (map[int]rules.EmployeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[int]rules.EmployeeProfile, len(employeeIDs))
	for _, id := range employeeIDs {
		if p, ok := s.profiles[id]; ok {
			found[id] = p.Clone()
		}
	}
	return found, nil
}

// Put stores a copy of the profile, replacing any previous one
func (s *InMemoryProfileStore) Put(ctx context.Context, profile *rules.EmployeeProfile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}
	if profile.EmployeeID <= 0 {
		return fmt.Errorf("invalid employee ID %d", profile.EmployeeID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := profile.Clone()
	s.profiles[profile.EmployeeID] = &clone
	return nil
}

// Delete removes a profile from the store
func (s *InMemoryProfileStore) Delete(ctx context.Context, employeeID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[employeeID]; !exists {
		return fmt.Errorf("employee %d: %w", employeeID, ErrProfileNotFound)
	}

	delete(s.profiles, employeeID)
	return nil
}

// List returns all profiles ordered by employee ID
func (s *InMemoryProfileStore) List(ctx context.Context) ([]*rules.EmployeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*rules.EmployeeProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		clone := p.Clone()
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].EmployeeID < list[j].EmployeeID
	})
	return list, nil
}

// Lookup resolves the profiles of every employee appearing in events, in the
// map form consumed by the validator. Employees without a profile are absent.
func Lookup(ctx context.Context, store ProfileStore, events []rules.EventRecord) (map[int]rules.EmployeeProfile, error) {
	seen := make(map[int]bool)
	var ids []int
	for _, evt := range events {
		if !seen[evt.EmployeeID] {
			seen[evt.EmployeeID] = true
			ids = append(ids, evt.EmployeeID)
		}
	}

	if len(ids) == 0 {
		return map[int]rules.EmployeeProfile{}, nil
	}

	found, err := store.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up profiles: %w", err)
	}
	return found, nil
}
