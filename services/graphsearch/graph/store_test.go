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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories runs the same behavior checks against every backend.
var storeFactories = map[string]func(t *testing.T) AdjacencyStore{
	BackendMemory: func(t *testing.T) AdjacencyStore {
		return NewMemoryStore()
	},
	BackendBadger: func(t *testing.T) AdjacencyStore {
		s, err := OpenBadgerStore("", 4)
		require.NoError(t, err)
		return s
	},
}

func TestAdjacencyStore_Behavior(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			assert.Equal(t, name, store.Backend())

			require.NoError(t, store.Index("2", Edge{To: "1", Relation: "-knows", RelationshipID: "-r1"}))
			require.NoError(t, store.Index("1", Edge{To: "2", Relation: "knows", RelationshipID: "r1"}))
			require.NoError(t, store.Index("1", Edge{To: "3", Relation: "owns", RelationshipID: "r2"}))
			require.NoError(t, store.Index("1", Edge{To: "2", Relation: "likes", RelationshipID: "r3"}))

			edges, err := store.Get("1")
			require.NoError(t, err)
			assert.Equal(t, []Edge{
				{To: "2", Relation: "knows", RelationshipID: "r1"},
				{To: "3", Relation: "owns", RelationshipID: "r2"},
				{To: "2", Relation: "likes", RelationshipID: "r3"},
			}, edges)

			none, err := store.Get("3")
			require.NoError(t, err)
			assert.Empty(t, none)

			assert.Equal(t, 2, store.Len())
			assert.Equal(t, 4, store.EdgeCount())

			var order []NodeID
			require.NoError(t, store.Range(func(id NodeID, edges []Edge) error {
				order = append(order, id)
				return nil
			}))
			assert.Equal(t, []NodeID{"2", "1"}, order, "range follows first insertion")
		})
	}
}

func TestAdjacencyStore_IndexAfterGet(t *testing.T) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()

			require.NoError(t, store.Index("1", Edge{To: "2", Relation: "a", RelationshipID: "r1"}))
			first, err := store.Get("1")
			require.NoError(t, err)
			assert.Len(t, first, 1)

			require.NoError(t, store.Index("1", Edge{To: "3", Relation: "b", RelationshipID: "r2"}))
			second, err := store.Get("1")
			require.NoError(t, err)
			assert.Len(t, second, 2)
		})
	}
}

func TestBadgerStore_CacheAndClose(t *testing.T) {
	store, err := OpenBadgerStore("", 2)
	require.NoError(t, err)

	require.NoError(t, store.Index("1", Edge{To: "2", Relation: "a", RelationshipID: "r1"}))
	for i := 0; i < 3; i++ {
		_, err := store.Get("1")
		require.NoError(t, err)
	}
	hits, misses := store.CacheStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Get("1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Index("1", Edge{To: "3"}), ErrStoreClosed)
}

func TestBadgerStore_PersistentPathIsReset(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenBadgerStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, first.Index("1", Edge{To: "2", Relation: "a", RelationshipID: "r1"}))
	_, err = first.Get("1")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenBadgerStore(dir, 0)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 0, second.Len())
	var count int
	require.NoError(t, second.Range(func(NodeID, []Edge) error {
		count++
		return nil
	}))
	assert.Zero(t, count)
}

func TestEdge_StringAndReverse(t *testing.T) {
	e := Edge{To: "2", Relation: "knows", RelationshipID: "r1"}
	assert.Equal(t, "2:knows:r1", e.String())
	assert.Equal(t, Edge{To: "1", Relation: "-knows", RelationshipID: "-r1"}, e.Reverse("1"))
}
