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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string, int](2, 0)

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a is now most recent
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should be evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, int64(1), c.Evictions())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := NewLRUCache[string, int](2, 0)
	c.Set("a", 1)
	c.Set("a", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(30 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.Evictions())
}

func TestLRUCache_StatsAndPurge(t *testing.T) {
	c := NewLRUCache[string, int](0, 0)
	assert.Equal(t, DefaultCacheCapacity, c.capacity)

	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	c.Remove("a")
	assert.Equal(t, 0, c.Len())

	c.Set("b", 2)
	c.Purge()
	hits, misses = c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int, int](50, 0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Set(i%100, w)
				c.Get((i + w) % 100)
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}

func TestLRUCache_PeekLeavesCountersAndOrder(t *testing.T) {
	c := NewLRUCache[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = c.Peek("missing")
	assert.False(t, ok)

	hits, misses := c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)

	// Peek did not refresh a, so it is still the eviction candidate.
	c.Set("c", 3)
	_, ok = c.Peek("a")
	assert.False(t, ok)
}
