package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d", c.Size())
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Evictions != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestLRUCacheExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.now)
	c.Set("k", "v")
	c.Set("k2", "v2")

	clock.t = clock.t.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("item expired too early")
	}

	clock.t = clock.t.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("item should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d", c.Size())
	}
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	var reported int
	m := NewManager(func(n int) { reported = n })
	m.Register(c)

	if n := m.Sweep(); n != 0 || reported != 0 {
		t.Fatalf("nothing should expire yet: %d %d", n, reported)
	}
	clock.t = clock.t.Add(2 * time.Second)
	if n := m.Sweep(); n != 2 || reported != 2 {
		t.Errorf("Sweep() = %d, reported %d", n, reported)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
