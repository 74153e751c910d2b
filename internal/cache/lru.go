package cache

import (
	"container/list"
	"sync"
)

// entry is one cached value and its place in the recency list.
type entry[K comparable, V any] struct {
	key     K
	value   V
	element *list.Element
}

// LRU is a size-bounded cache that evicts the least recently used key.
// It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	capacity  int
	entries   map[K]*entry[K, V]
	evictList *list.List
	mu        sync.Mutex
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		capacity:  capacity,
		entries:   make(map[K]*entry[K, V]),
		evictList: list.New(),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.evictList.MoveToFront(e.element)
	return e.value, true
}

// Set adds or updates a value, evicting the oldest entry when full.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.evictList.MoveToFront(e.element)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	e.element = c.evictList.PushFront(e)
	c.entries[key] = e

	for c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back().Value.(*entry[K, V])
		c.removeEntry(oldest)
	}
}

// Delete removes key.
func (c *LRU[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.removeEntry(e)
	}
}

// Len returns the number of entries in the cache.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU[K, V]) removeEntry(e *entry[K, V]) {
	c.evictList.Remove(e.element)
	delete(c.entries, e.key)
}
