package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[string](2, 0)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatal("recently used entry evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUZeroTTLNeverExpires(t *testing.T) {
	c := NewLRUCache[int](4, 0)
	c.Set("k", 1)
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("cleaned %d entries without a ttl", n)
	}
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry disappeared")
	}
}

func TestLRUTTLExpires(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)
	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	hits, misses := c.Stats()
	if hits != 0 || misses != 1 {
		t.Fatalf("stats = %d/%d", hits, misses)
	}
}

func TestManagerPurgeAll(t *testing.T) {
	a := NewLRUCache[int](4, 0)
	b := NewLRUCache[string](4, time.Minute)
	a.Set("x", 1)
	b.Set("y", "z")
	b.Set("w", "v")

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	m.StartCleanup(time.Hour)
	defer m.Stop()

	if n := m.PurgeAll("test"); n != 3 {
		t.Fatalf("purged %d entries, want 3", n)
	}
	if a.Size() != 0 || b.Size() != 0 {
		t.Fatal("caches not empty after purge")
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Stop()
}
