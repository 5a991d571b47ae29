// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checker

import "sync"

// DefaultCacheSize bounds each memoization cache.
const DefaultCacheSize = 100000

// boundedCache is a map that clears itself when it reaches its cap.
// A miss only costs recomputation, so there is no eviction order.
type boundedCache[V any] struct {
	mu    sync.Mutex
	max   int
	items map[string]V
}

func newBoundedCache[V any](max int) *boundedCache[V] {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &boundedCache[V]{max: max, items: make(map[string]V)}
}

func (c *boundedCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *boundedCache[V]) put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.max {
		c.items = make(map[string]V)
	}
	c.items[key] = v
}

func (c *boundedCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Caches holds the memoization tables used by a Checker. Sharing one
// Caches value between Checkers shares their memoized results.
type Caches struct {
	truth        *boundedCache[Truth]
	inconsistent *boundedCache[bool]
	nonsense     *boundedCache[bool]
}

// NewCaches returns empty caches, each capped at size entries.
func NewCaches(size int) *Caches {
	return &Caches{
		truth:        newBoundedCache[Truth](size),
		inconsistent: newBoundedCache[bool](size),
		nonsense:     newBoundedCache[bool](size),
	}
}

// Len reports the number of entries across all caches.
func (c *Caches) Len() int {
	return c.truth.len() + c.inconsistent.len() + c.nonsense.len()
}
