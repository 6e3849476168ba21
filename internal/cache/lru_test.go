package cache

import (
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now least recently used
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Errorf("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "3")

	clock.t = clock.t.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Errorf("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != "3" {
		t.Errorf("b = %q, %v", v, ok)
	}

	clock.t = clock.t.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("cleaned %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUCache_NoTTL(t *testing.T) {
	c, clock := newTestCache(0, 0)
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, k)
	}
	clock.t = clock.t.Add(24 * time.Hour)
	if c.CleanExpired() != 0 || c.Size() != 4 {
		t.Errorf("entries should never expire, size = %d", c.Size())
	}
}

func TestLRUCache_DeleteFunc(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("u1|2024-05", "x")
	c.Set("u1|2024-06", "y")
	c.Set("u2|2024-05", "z")

	if n := c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "u1|") }); n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if _, ok := c.Get("u2|2024-05"); !ok {
		t.Errorf("other user's entry removed")
	}
	c.Delete("u2|2024-05")
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestJanitor_Sweep(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	clock.t = clock.t.Add(2 * time.Minute)

	j := NewJanitor()
	j.Register(c)
	if n := j.Sweep(); n != 1 {
		t.Errorf("sweep removed %d", n)
	}
	j.Stop() // not started
}
