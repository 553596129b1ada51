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
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	bstore "github.com/AleutianAI/graphsearch/services/graphsearch/storage/badger"
)

// Key prefixes of the disk-backed adjacency store.
//
//	adj:<source>:<seq>  -> gob Edge        (one key per edge)
//	node:<seq>          -> source          (first edge of each source)
//
// seq is a store-wide counter rendered as 16 hex digits, so a prefix scan
// returns edges and nodes in insertion order.
const (
	adjKeyPrefix  = "adj:"
	nodeKeyPrefix = "node:"
)

// DefaultAdjacencyCacheSize is the number of decoded adjacency lists kept by BadgerStore.
const DefaultAdjacencyCacheSize = 10000

// BadgerStore is a disk-backed AdjacencyStore over BadgerDB.
//
// Description:
//
//	Writes are buffered in a WriteBatch and flushed before the first read.
//	Decoded adjacency lists are kept in an LRU cache so hub nodes touched by
//	many traversals are not decoded repeatedly. The store is rebuilt on every
//	graph generation: NewBadgerStore drops any existing keys.
//
// Thread Safety: Safe for concurrent use. Index is expected from a single
// loader goroutine; Get may be called concurrently once loading is done.
type BadgerStore struct {
	db     *bstore.DB
	ownsDB bool

	mu     sync.RWMutex
	batch  *badgerdb.WriteBatch
	seq    uint64
	seen   map[NodeID]struct{}
	edges  int
	closed bool

	cache *LRUCache[NodeID, []Edge]
}

// NewBadgerStore creates an empty store over db.
//
// Inputs:
//
//	db - An open database. All keys in it are dropped.
//	cacheSize - Decoded adjacency lists to cache. <= 0 uses DefaultAdjacencyCacheSize.
//	ownsDB - If true, Close also closes db.
//
// Outputs:
//
//	*BadgerStore - The store.
//	error - Non-nil if the existing keys could not be dropped.
func NewBadgerStore(db *bstore.DB, cacheSize int, ownsDB bool) (*BadgerStore, error) {
	if err := db.DropAll(); err != nil {
		return nil, fmt.Errorf("reset adjacency store: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultAdjacencyCacheSize
	}
	return &BadgerStore{
		db:     db,
		ownsDB: ownsDB,
		seen:   make(map[NodeID]struct{}),
		cache:  NewLRUCache[NodeID, []Edge](cacheSize, 0),
	}, nil
}

// OpenBadgerStore opens a database at path and wraps it in a store that owns it.
// An empty path opens an in-memory database.
func OpenBadgerStore(path string, cacheSize int) (*BadgerStore, error) {
	var (
		db  *bstore.DB
		err error
	)
	if path == "" {
		db, err = bstore.OpenInMemory()
	} else {
		db, err = bstore.Open(bstore.DefaultConfig(path))
	}
	if err != nil {
		return nil, err
	}

	store, err := NewBadgerStore(db, cacheSize, true)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Get implements AdjacencyStore.
func (s *BadgerStore) Get(id NodeID) ([]Edge, error) {
	if edges, ok := s.cache.Get(id); ok {
		return edges, nil
	}
	if err := s.flush(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if _, ok := s.seen[id]; !ok {
		return nil, nil
	}

	edges, err := s.scanEdges(id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, edges)
	return edges, nil
}

// Index implements AdjacencyStore.
func (s *BadgerStore) Index(source NodeID, edge Edge) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(edge); err != nil {
		return fmt.Errorf("encode edge %s: %w", edge, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if s.batch == nil {
		s.batch = s.db.NewWriteBatch()
	}

	seq := s.seq
	s.seq++

	if _, ok := s.seen[source]; !ok {
		if err := s.batch.Set(nodeKey(seq), []byte(source)); err != nil {
			return fmt.Errorf("index node %s: %w", source, err)
		}
		s.seen[source] = struct{}{}
	}
	if err := s.batch.Set(edgeKey(source, seq), buf.Bytes()); err != nil {
		return fmt.Errorf("index edge %s: %w", edge, err)
	}

	s.edges++
	s.cache.Remove(source)
	return nil
}

// Range implements AdjacencyStore.
func (s *BadgerStore) Range(fn func(id NodeID, edges []Edge) error) error {
	if err := s.flush(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	return s.db.IteratePrefix([]byte(nodeKeyPrefix), false, func(_, value []byte) error {
		id := NodeID(string(value))
		edges, err := s.scanEdges(id)
		if err != nil {
			return err
		}
		return fn(id, edges)
	})
}

// Len implements AdjacencyStore.
func (s *BadgerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// EdgeCount implements AdjacencyStore.
func (s *BadgerStore) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edges
}

// Backend implements AdjacencyStore.
func (s *BadgerStore) Backend() string {
	return BackendBadger
}

// CacheStats returns hit and miss counts of the decoded adjacency cache.
func (s *BadgerStore) CacheStats() (hits, misses int64) {
	return s.cache.Stats()
}

// Close implements AdjacencyStore. Pending writes are discarded.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.batch != nil {
		s.batch.Cancel()
		s.batch = nil
	}
	s.cache.Purge()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// flush commits buffered writes, if any.
func (s *BadgerStore) flush() error {
	s.mu.RLock()
	pending := s.batch != nil
	s.mu.RUnlock()
	if !pending {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil {
		return nil
	}
	err := s.batch.Flush()
	s.batch = nil
	if err != nil {
		return fmt.Errorf("flush adjacency writes: %w", err)
	}
	return nil
}

// scanEdges reads the edges of id from disk. Caller holds mu.
func (s *BadgerStore) scanEdges(id NodeID) ([]Edge, error) {
	var edges []Edge
	err := s.db.IteratePrefix([]byte(adjKeyPrefix+string(id)+":"), false, func(key, value []byte) error {
		var e Edge
		if err := gob.NewDecoder(bytes.NewReader(value)).Decode(&e); err != nil {
			return fmt.Errorf("decode edge %s: %w", key, err)
		}
		edges = append(edges, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

func edgeKey(source NodeID, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%016x", adjKeyPrefix, source, seq))
}

func nodeKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", nodeKeyPrefix, seq))
}
