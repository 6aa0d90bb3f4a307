package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lexhaven/lexsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store is an in-process db.Store backed by a map. Expired entries are
// removed lazily on read.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Ping always succeeds for an in-memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close releases the backing map.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// WaitForReady returns immediately; an in-memory store is always ready.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, db.ErrKeyNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	return s.set(key, value, 0)
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.set(key, value, ttl)
}

// Del removes a key. Deleting a missing key is not an error.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) set(key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	e := entry{value: cp}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}
