// Package cache provides the in-process query result cache. Entries expire
// lazily on read; there is no background sweep.
package cache

import (
	"sync"
	"time"

	"github.com/lexhaven/lexsearch/internal/domain"
)

type entry struct {
	results   []domain.SearchResult
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// QueryCache maps raw query text to the result list it last produced.
// The key is the query text alone; filters are not part of the key, so
// two queries differing only in filters share an entry.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	capacity int
	now      func() time.Time
}

// NewQueryCache creates a cache holding at most capacity entries.
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &QueryCache{
		entries:  make(map[string]entry, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the cached results for the key, or false if absent or
// expired. Expired entries are removed on read.
func (c *QueryCache) Get(key string) ([]domain.SearchResult, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		c.mu.Lock()
		if stale, still := c.entries[key]; still && stale.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.results, true
}

// Insert stores results under the key. At capacity, the oldest entry by
// creation time is evicted first.
func (c *QueryCache) Insert(key string, results []domain.SearchResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	c.entries[key] = entry{
		results:   results,
		createdAt: c.now(),
		ttl:       ttl,
	}
}

// Len reports the number of entries currently held, including entries that
// have expired but not yet been read.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry, c.capacity)
}

func (c *QueryCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.createdAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
