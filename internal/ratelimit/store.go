package ratelimit

import (
	"sync"
	"time"
)

// Entry tracks recorded authentication failures for one origin identifier.
// Entries are created on the first failure, never with Attempts == 0.
type Entry struct {
	Attempts      int
	LastAttemptAt time.Time
	BlockedUntil  time.Time // zero when no block has been issued
}

// Store holds limiter entries keyed by origin identifier. The limiter is
// the only writer; implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (Entry, bool)
	Put(key string, e Entry)
	Delete(key string)
	// Range calls fn for each entry until fn returns false. The snapshot
	// seen by fn may be stale with respect to concurrent writes.
	Range(fn func(key string, e Entry) bool)
	Len() int
}

// MemoryStore is the default process-local Store backed by a mutex-guarded map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Put(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

func (s *MemoryStore) Range(fn func(key string, e Entry) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, e := range s.entries {
		if !fn(key, e) {
			return
		}
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
