package store

import (
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	written time.Time
}

// MemoryStore is a concurrency-safe in-memory implementation of Storage.
type MemoryStore struct {
	mu sync.RWMutex

	data map[string]memoryEntry
	// insertion order, oldest first
	keys []string

	// retention configuration
	maxEntries int           // max number of keys kept
	maxAge     time.Duration // optional hard cap on entry age

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxEntries is <= 0, it is treated as unlimited; so is maxAge.
func NewMemoryStore(maxEntries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]memoryEntry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Set stores value under key and enforces retention.
func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		s.dropKey(key)
	}
	s.data[key] = memoryEntry{value: slices.Clone(value), written: s.now()}
	s.keys = append(s.keys, key)

	// Enforce retention by count.
	if s.maxEntries > 0 && len(s.keys) > s.maxEntries {
		over := len(s.keys) - s.maxEntries
		for _, k := range s.keys[:over] {
			delete(s.data, k)
		}
		s.keys = s.keys[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.keys); i++ {
			if !s.data[s.keys[i]].written.Before(cutoff) {
				break
			}
			delete(s.data, s.keys[i])
		}
		s.keys = s.keys[i:]
	}
	return nil
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	if s.maxAge > 0 && e.written.Before(s.now().Add(-s.maxAge)) {
		return nil, ErrNotFound
	}
	return slices.Clone(e.value), nil
}

// Remove deletes key; removing a missing key is not an error.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; ok {
		s.dropKey(key)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// dropKey must be called with the write lock held.
func (s *MemoryStore) dropKey(key string) {
	delete(s.data, key)
	if i := slices.Index(s.keys, key); i >= 0 {
		s.keys = slices.Delete(s.keys, i, i+1)
	}
}
