package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lexhaven/lexsearch/internal/domain"
)

func results(score float64) []domain.SearchResult {
	return []domain.SearchResult{{Score: score, MatchType: domain.MatchExact}}
}

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(10)

	if _, ok := c.Get("miranda"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Insert("miranda", results(2.0), time.Minute)

	got, ok := c.Get("miranda")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 1 || got[0].Score != 2.0 {
		t.Errorf("unexpected cached results: %+v", got)
	}
}

func TestQueryCache_KeyIsCaseSensitive(t *testing.T) {
	c := NewQueryCache(10)
	c.Insert("Miranda", results(1.0), time.Minute)

	if _, ok := c.Get("miranda"); ok {
		t.Error("expected case-sensitive key to miss")
	}
}

func TestQueryCache_LazyExpiry(t *testing.T) {
	c := NewQueryCache(10)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Insert("roe", results(1.0), time.Second)

	if _, ok := c.Get("roe"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)

	if _, ok := c.Get("roe"); ok {
		t.Fatal("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry removed on read, have %d entries", c.Len())
	}
}

func TestQueryCache_EvictsOldestAtCapacity(t *testing.T) {
	c := NewQueryCache(2)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Insert("a", results(1.0), time.Minute)
	now = now.Add(time.Second)
	c.Insert("b", results(1.0), time.Minute)
	now = now.Add(time.Second)
	c.Insert("c", results(1.0), time.Minute)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected oldest entry evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected newest entry retained")
	}
}

func TestQueryCache_OverwriteDoesNotEvict(t *testing.T) {
	c := NewQueryCache(2)
	c.Insert("a", results(1.0), time.Minute)
	c.Insert("b", results(1.0), time.Minute)
	c.Insert("a", results(9.0), time.Minute)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	got, ok := c.Get("a")
	if !ok || got[0].Score != 9.0 {
		t.Errorf("expected overwritten entry, got %+v (hit=%v)", got, ok)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("overwrite must not evict another entry")
	}
}

func TestQueryCache_Purge(t *testing.T) {
	c := NewQueryCache(10)
	c.Insert("a", results(1.0), time.Minute)
	c.Purge()

	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, got %d", c.Len())
	}
}

func TestQueryCache_ConcurrentAccess(t *testing.T) {
	c := NewQueryCache(50)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				key := fmt.Sprintf("q-%d", n%60)
				if w%2 == 0 {
					c.Insert(key, results(float64(n)), time.Minute)
				} else {
					c.Get(key)
				}
			}
		}(w)
	}

	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache exceeded capacity: %d", c.Len())
	}
}
