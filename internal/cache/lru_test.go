package cache

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// "b" is now least recently used and is evicted.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("Stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.Advance(30 * time.Second)
	c.Set("b", "2b") // refreshes b's expiry

	clock.Advance(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Fatalf("CleanExpired removed %d, want 0", removed)
	}
	if v, ok := c.Get("b"); !ok || v != "2b" {
		t.Fatalf("Get(b) = %q, %v", v, ok)
	}

	clock.Advance(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", removed)
	}
}

func TestLRUCacheDeleteFunc(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("month:2025-09", "x")
	c.Set("summary:2025-09", "y")
	c.Set("month:2025-10", "z")

	n := c.DeleteFunc(func(k string) bool { return strings.HasSuffix(k, ":2025-09") })
	if n != 2 || c.Size() != 1 {
		t.Fatalf("DeleteFunc removed %d, size %d", n, c.Size())
	}
	c.Delete("month:2025-10")
	if c.Size() != 0 {
		t.Fatalf("Size = %d after Delete", c.Size())
	}
}

func TestManagerSweep(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clock.Advance(2 * time.Minute)

	m := NewManager()
	m.Register("views", c)
	var gotName string
	var gotRemoved int
	m.OnClean(func(name string, removed, size int) {
		gotName, gotRemoved = name, removed
	})

	if total := m.Sweep(); total != 1 {
		t.Fatalf("Sweep = %d, want 1", total)
	}
	if gotName != "views" || gotRemoved != 1 {
		t.Fatalf("hook got %q/%d", gotName, gotRemoved)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
