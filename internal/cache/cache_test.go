package cache

import (
	"testing"
	"time"

	"github.com/groblegark/agora/internal/ledger"
)

// stamped is a minimal Value for cache tests.
type stamped struct {
	name string
	at   time.Time
}

func (s stamped) LogicalTime() time.Time { return s.at }

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[stamped], *fakeClock) {
	t.Helper()
	c := New[stamped](ttl)
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

func TestCache_GetMissOnAbsent(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent id")
	}
}

func TestCache_SetThenGet(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	if !c.Set("r1", stamped{name: "a", at: clock.t}) {
		t.Fatal("Set rejected")
	}
	got, ok := c.Get("r1")
	if !ok || got.name != "a" {
		t.Fatalf("got (%v, %v), want (a, true)", got, ok)
	}
}

func TestCache_ExpiryIsMissAndRemoves(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("r1", stamped{name: "a", at: clock.t})

	clock.advance(time.Minute + time.Second)
	if _, ok := c.Get("r1"); ok {
		t.Fatal("expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, len=%d", c.Len())
	}
}

func TestCache_SetRejectsLogicallyOlder(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	fresh := stamped{name: "fresh", at: clock.t}
	stale := stamped{name: "stale", at: clock.t.Add(-time.Hour)}

	c.Set("r1", fresh)
	if c.Set("r1", stale) {
		t.Fatal("stale set accepted")
	}
	got, _ := c.Get("r1")
	if got.name != "fresh" {
		t.Errorf("got %q, want fresh value retained", got.name)
	}
}

func TestCache_SetOverwritesExpiredRegardlessOfLogicalTime(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("r1", stamped{name: "new", at: clock.t})

	clock.advance(2 * time.Minute)
	// Entry expired; even a logically older value may repopulate.
	if !c.Set("r1", stamped{name: "old", at: clock.t.Add(-time.Hour)}) {
		t.Fatal("set after expiry rejected")
	}
}

func TestCache_Invalidate(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("r1", stamped{name: "a", at: clock.t})
	c.Invalidate("r1")
	if _, ok := c.Get("r1"); ok {
		t.Fatal("entry survived Invalidate")
	}
}

func TestCache_AllValidExcludesExpired(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("r1", stamped{name: "a", at: clock.t})
	clock.advance(2 * time.Minute)
	c.Set("r2", stamped{name: "b", at: clock.t})

	var names []string
	for v := range c.AllValid() {
		names = append(names, v.name)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("AllValid = %v, want [b]", names)
	}
}

func TestCache_AllValidIsSnapshot(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("r1", stamped{name: "a", at: clock.t})
	seq := c.AllValid()
	c.Invalidate("r1")

	count := 0
	for range seq {
		count++
	}
	if count != 1 {
		t.Errorf("snapshot saw %d items, want 1 (state at call time)", count)
	}
}

func TestCache_Evict(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.Set("r1", stamped{name: "org-a", at: clock.t})
	c.Set("r2", stamped{name: "org-b", at: clock.t})
	c.Set("r3", stamped{name: "org-a", at: clock.t})

	removed := c.Evict(func(_ ledger.Ref, v stamped) bool { return v.name == "org-a" })
	if removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if _, ok := c.Get("r2"); !ok {
		t.Error("unmatched entry was evicted")
	}
}

func TestCache_PerEntryTTLOverride(t *testing.T) {
	c, clock := newTestCache(t, time.Minute)
	c.SetTTL("r1", stamped{name: "a", at: clock.t}, 10*time.Minute)

	clock.advance(5 * time.Minute)
	if _, ok := c.Get("r1"); !ok {
		t.Fatal("entry with extended TTL expired early")
	}
}
