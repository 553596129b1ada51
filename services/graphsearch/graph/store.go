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
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// AdjacencyStore maps an internal node id to its ordered outgoing edges.
//
// Description:
//
//	Both traversal engines depend only on this interface, so a disk-backed
//	store can replace the in-memory one without touching them. Edge order
//	per source is load-time insertion order; it drives traversal and result
//	order and every implementation must preserve it.
//
// Thread Safety: Implementations must allow concurrent Get calls.
type AdjacencyStore interface {
	// Get returns the outgoing edges of id in insertion order.
	// A node with no outgoing edges returns (nil, nil).
	// Callers must not modify the returned slice.
	Get(id NodeID) ([]Edge, error)

	// Index appends an edge to the adjacency list of source.
	Index(source NodeID, edge Edge) error

	// Range calls fn for every source node, in first-insertion order,
	// stopping at the first error.
	Range(fn func(id NodeID, edges []Edge) error) error

	// Len returns the number of nodes with at least one outgoing edge.
	Len() int

	// EdgeCount returns the total number of stored edges.
	EdgeCount() int

	// Backend names the implementation ("memory", "badger").
	Backend() string

	// Close releases resources held by the store.
	Close() error
}

// MemoryStore is the default in-memory AdjacencyStore.
//
// Thread Safety: Safe for concurrent use. Reads take a shared lock.
type MemoryStore struct {
	mu    sync.RWMutex
	adj   map[NodeID][]Edge
	order []NodeID
	edges int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		adj: make(map[NodeID][]Edge),
	}
}

// Get implements AdjacencyStore.
func (s *MemoryStore) Get(id NodeID) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adj[id], nil
}

// Index implements AdjacencyStore.
func (s *MemoryStore) Index(source NodeID, edge Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edges, ok := s.adj[source]
	if !ok {
		s.order = append(s.order, source)
	}
	s.adj[source] = append(edges, edge)
	s.edges++
	return nil
}

// Range implements AdjacencyStore.
func (s *MemoryStore) Range(fn func(id NodeID, edges []Edge) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if err := fn(id, s.adj[id]); err != nil {
			return err
		}
	}
	return nil
}

// Len implements AdjacencyStore.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.adj)
}

// EdgeCount implements AdjacencyStore.
func (s *MemoryStore) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edges
}

// Backend implements AdjacencyStore.
func (s *MemoryStore) Backend() string {
	return BackendMemory
}

// Close implements AdjacencyStore. The memory store holds no resources.
func (s *MemoryStore) Close() error {
	return nil
}
