// Package cache provides the per-domain, in-memory view of currently
// believed entity state. It exists to avoid redundant high-latency ledger
// reads: a hit answers synchronously, a miss (absent or expired) sends the
// caller to the ledger. A miss is normal control flow, never an error.
package cache

import (
	"iter"
	"sync"
	"time"

	"github.com/groblegark/agora/internal/ledger"
)

// DefaultTTL is used when a cache is constructed with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Value is what a cache can hold. LogicalTime orders competing writes for
// the same identity: a Set carrying an older logical time than the stored
// entry is rejected, so a slow stale read never clobbers a fresher write
// that arrived first.
type Value interface {
	LogicalTime() time.Time
}

type entry[T Value] struct {
	value      T
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry[T]) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Cache is a TTL-keyed store of resolved entity snapshots. One instance per
// domain type is shared by all callers in the process; every mutation is a
// single atomic replace under the lock, so readers never observe a
// half-written entry.
type Cache[T Value] struct {
	mu         sync.RWMutex
	entries    map[ledger.Ref]entry[T]
	defaultTTL time.Duration

	now func() time.Time // overridable in tests
}

// New creates a cache with the given default TTL per entry.
func New[T Value](defaultTTL time.Duration) *Cache[T] {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache[T]{
		entries:    make(map[ledger.Ref]entry[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value for id. An expired entry is removed and
// reported as a miss.
func (c *Cache[T]) Get(id ledger.Ref) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	now := c.now()
	c.mu.RUnlock()

	if !ok {
		var zero T
		return zero, false
	}
	if e.expired(now) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if cur, ok := c.entries[id]; ok && cur.expired(c.now()) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under id with the default TTL. It reports whether the
// value was stored; a value logically older than the current entry is
// rejected.
func (c *Cache[T]) Set(id ledger.Ref, value T) bool {
	return c.SetTTL(id, value, c.defaultTTL)
}

// SetTTL is Set with a per-entry TTL override.
func (c *Cache[T]) SetTTL(id ledger.Ref, value T, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if cur, ok := c.entries[id]; ok && !cur.expired(now) {
		if cur.value.LogicalTime().After(value.LogicalTime()) {
			return false
		}
	}
	c.entries[id] = entry[T]{value: value, insertedAt: now, ttl: ttl}
	return true
}

// Invalidate removes the entry for id unconditionally, forcing the next read
// to the ledger. Used after writes and deletes.
func (c *Cache[T]) Invalidate(id ledger.Ref) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// AllValid returns a finite sequence over the unexpired values as of the
// moment of the call. The sequence is a snapshot: iterating it twice yields
// the same items only by coincidence of cache state, and callers must not
// assume stability across calls.
func (c *Cache[T]) AllValid() iter.Seq[T] {
	c.mu.RLock()
	now := c.now()
	snapshot := make([]T, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.expired(now) {
			snapshot = append(snapshot, e.value)
		}
	}
	c.mu.RUnlock()

	return func(yield func(T) bool) {
		for _, v := range snapshot {
			if !yield(v) {
				return
			}
		}
	}
}

// Evict removes every entry the predicate matches and returns how many were
// removed. Used for domain-wide invalidation, e.g. dropping every entity
// that denormalizes a changed organization name.
func (c *Cache[T]) Evict(pred func(id ledger.Ref, value T) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if pred(id, e.value) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, expired or not.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
