// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheCapacity is the default number of entries of a query cache.
const DefaultCacheCapacity = 1000

// LRUCache is a bounded, thread-safe LRU cache with an optional TTL.
//
// Description:
//
//	Evicts the least recently used entry when capacity is reached. When a
//	TTL is set, entries older than the TTL are treated as misses and removed
//	on access. Uses container/list for O(1) access and eviction.
//
// Thread Safety: All methods are safe for concurrent use.
//
// Performance:
//
//	| Operation | Complexity |
//	|-----------|------------|
//	| Get       | O(1)       |
//	| Set       | O(1)       |
//	| Purge     | O(n)       |
type LRUCache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*list.Element
	order    *list.List // Front = most recent
	now      func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

type lruEntry[K comparable, V any] struct {
	key     K
	value   V
	created time.Time
}

// NewLRUCache creates a cache holding at most capacity entries.
//
// Inputs:
//   - capacity: Maximum number of entries. Values <= 0 use DefaultCacheCapacity.
//   - ttl: Maximum entry age. Zero disables expiry.
//
// Outputs:
//   - *LRUCache[K, V]: The cache. Never nil.
func NewLRUCache[K comparable, V any](capacity int, ttl time.Duration) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	entry := elem.Value.(*lruEntry[K, V])
	if c.ttl > 0 && c.now().Sub(entry.created) > c.ttl {
		c.remove(elem)
		c.evictions.Add(1)
		c.misses.Add(1)
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return entry.value, true
}

// Peek returns the value for key without touching recency or the hit and
// miss counters. Expired entries are reported absent but left in place.
func (c *LRUCache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if c.ttl > 0 && c.now().Sub(entry.created) > c.ttl {
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key, evicting the least recently used entry if full.
func (c *LRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry[K, V])
		entry.value = value
		entry.created = c.now()
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
			c.evictions.Add(1)
		}
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value, created: c.now()})
}

// Remove drops key if present.
func (c *LRUCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// Purge removes all entries and resets the counters.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Len returns the number of entries, expired ones included until accessed.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts since creation or the last Purge.
func (c *LRUCache[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Evictions returns the number of entries dropped for capacity or age.
func (c *LRUCache[K, V]) Evictions() int64 {
	return c.evictions.Load()
}

// remove drops elem from the list and map. Caller holds mu.
func (c *LRUCache[K, V]) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry[K, V]).key)
}
