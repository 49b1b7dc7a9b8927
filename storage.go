package inertiaclient

import (
	"context"
	"slices"
	"sync"
)

var _ SessionStorage = (*MemoryStorage)(nil)

// LocationVisitKey is the session storage key of the one-shot marker written
// before an external redirect and consumed by Client.Init.
const LocationVisitKey = "inertiaLocationVisit"

// locationVisit is the payload stored under LocationVisitKey.
type locationVisit struct {
	PreserveScroll bool `json:"preserveScroll"`
}

// SessionStorage is a key-value store scoped to the browsing session that
// outlives a full page navigation.
type SessionStorage interface {
	// Get returns the value stored under key. ok is false if nothing is stored.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MemoryStorage is an in-process SessionStorage.
//
// The zero value is ready to use.
type MemoryStorage struct {
	m  map[string][]byte
	mu sync.RWMutex
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]

	return slices.Clone(v), ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m == nil {
		s.m = make(map[string][]byte)
	}

	s.m[key] = slices.Clone(value)

	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)

	return nil
}
