// Package cache provides ConcurrentCache, a reader/writer-locked map used to
// share derived state (balances, address lists) between a background refresh
// path and synchronous queries.
package cache

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// nextID orders cache instances for two-cache operations.
var nextID atomic.Uint64

// CloneFunc deep-copies a value. Values containing slices, maps or pointers
// need one so callers never hold memory shared with the cache.
type CloneFunc[V any] func(V) V

// ConcurrentCache is a map guarded by a sync.RWMutex. Reads proceed in
// parallel, writes are exclusive. Every value handed in or out passes
// through the clone function, so no reference into the locked map escapes.
//
// Caches must be created with New or NewFromMap.
type ConcurrentCache[K cmp.Ordered, V any] struct {
	mu    sync.RWMutex
	m     map[K]V
	clone CloneFunc[V]
	id    uint64
}

// Option configures a cache.
type Option[V any] func(*options[V])

type options[V any] struct {
	clone CloneFunc[V]
}

// WithClone sets the function used to copy values in and out.
func WithClone[V any](fn CloneFunc[V]) Option[V] {
	return func(o *options[V]) { o.clone = fn }
}

// New returns an empty cache.
func New[K cmp.Ordered, V any](opts ...Option[V]) *ConcurrentCache[K, V] {
	var o options[V]
	for _, opt := range opts {
		opt(&o)
	}
	clone := o.clone
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &ConcurrentCache[K, V]{
		m:     make(map[K]V),
		clone: clone,
		id:    nextID.Add(1),
	}
}

// NewFromMap returns a cache holding a copy of src.
func NewFromMap[K cmp.Ordered, V any](src map[K]V, opts ...Option[V]) *ConcurrentCache[K, V] {
	c := New[K, V](opts...)
	for k, v := range src {
		c.m[k] = c.clone(v)
	}
	return c
}

// Clone returns an independent cache with the same contents.
func (c *ConcurrentCache[K, V]) Clone() *ConcurrentCache[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &ConcurrentCache[K, V]{
		m:     make(map[K]V, len(c.m)),
		clone: c.clone,
		id:    nextID.Add(1),
	}
	for k, v := range c.m {
		out.m[k] = c.clone(v)
	}
	return out
}

// Set stores v under k, replacing any previous value.
func (c *ConcurrentCache[K, V]) Set(k K, v V) {
	v = c.clone(v)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
}

// Get returns a copy of the value stored under k.
func (c *ConcurrentCache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	return c.clone(v), true
}

// Exists reports whether k is present.
func (c *ConcurrentCache[K, V]) Exists(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[k]
	return ok
}

// Size returns the number of entries.
func (c *ConcurrentCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Empty reports whether the cache has no entries.
func (c *ConcurrentCache[K, V]) Empty() bool {
	return c.Size() == 0
}

// Erase removes k and returns how many entries were removed (0 or 1).
func (c *ConcurrentCache[K, V]) Erase(k K) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[k]; !ok {
		return 0
	}
	delete(c.m, k)
	return 1
}

// Front returns the value of the smallest key.
func (c *ConcurrentCache[K, V]) Front() (V, bool) {
	return c.extreme(func(a, b K) bool { return a < b })
}

// Back returns the value of the largest key.
func (c *ConcurrentCache[K, V]) Back() (V, bool) {
	return c.extreme(func(a, b K) bool { return a > b })
}

func (c *ConcurrentCache[K, V]) extreme(better func(a, b K) bool) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var (
		best  K
		found bool
	)
	for k := range c.m {
		if !found || better(k, best) {
			best, found = k, true
		}
	}
	if !found {
		var zero V
		return zero, false
	}
	return c.clone(c.m[best]), true
}

// Clear removes every entry.
func (c *ConcurrentCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}

// Keys returns the keys in ascending order.
func (c *ConcurrentCache[K, V]) Keys() []K {
	c.mu.RLock()
	keys := slices.Collect(maps.Keys(c.m))
	c.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Snapshot returns a copy of the whole mapping taken atomically.
func (c *ConcurrentCache[K, V]) Snapshot() map[K]V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[K]V, len(c.m))
	for k, v := range c.m {
		out[k] = c.clone(v)
	}
	return out
}

// Replace swaps the whole mapping for a copy of m in one step.
func (c *ConcurrentCache[K, V]) Replace(m map[K]V) {
	fresh := make(map[K]V, len(m))
	for k, v := range m {
		fresh[k] = c.clone(v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = fresh
}

// EqualFunc reports whether c and other hold the same keys with values
// equal under eq. Comparing a cache with itself returns true without
// locking; otherwise both read locks are taken in a fixed order.
func (c *ConcurrentCache[K, V]) EqualFunc(other *ConcurrentCache[K, V], eq func(a, b V) bool) bool {
	if c == other {
		return true
	}
	if other == nil {
		return false
	}
	first, second := c, other
	if second.id < first.id {
		first, second = second, first
	}
	first.mu.RLock()
	defer first.mu.RUnlock()
	second.mu.RLock()
	defer second.mu.RUnlock()
	return maps.EqualFunc(c.m, other.m, eq)
}

// Equal compares two caches whose values are comparable.
func Equal[K cmp.Ordered, V comparable](a, b *ConcurrentCache[K, V]) bool {
	return a.EqualFunc(b, func(x, y V) bool { return x == y })
}
