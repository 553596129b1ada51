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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config configures graph construction and query caching.
type Config struct {
	// DatasetPath is the relationship CSV file.
	DatasetPath string

	// Bidirectional indexes a reverse edge for every dataset row.
	Bidirectional bool

	// SnapshotDir holds the snapshot artifacts. Empty disables snapshots.
	SnapshotDir string

	// UseSnapshot tries the snapshot before parsing the dataset.
	UseSnapshot bool

	// Backend selects the adjacency store: BackendMemory (default) or BackendBadger.
	Backend string

	// BadgerPath is the BadgerDB directory. Empty runs Badger in memory.
	BadgerPath string

	// AdjacencyCacheSize bounds the decoded adjacency cache of the badger store.
	AdjacencyCacheSize int

	// PathCacheSize bounds the path query cache. Zero uses DefaultCacheCapacity.
	PathCacheSize int

	// PathCacheTTL expires cached path results. Zero disables expiry.
	PathCacheTTL time.Duration

	// Logger receives load and query logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a configuration for the dataset at path with
// bidirectional loading and the in-memory backend.
func DefaultConfig(datasetPath string) Config {
	return Config{
		DatasetPath:   datasetPath,
		Bidirectional: true,
		UseSnapshot:   true,
		Backend:       BackendMemory,
		PathCacheSize: DefaultCacheCapacity,
	}
}

// pathKey identifies a cached path query.
type pathKey struct {
	origin, destination NodeID
	maxDist             int
	simple              bool
	limit               int
}

func (k pathKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%t|%d", k.origin, k.destination, k.maxDist, k.simple, k.limit)
}

// cachedPaths is a path query result as stored in the cache.
type cachedPaths struct {
	paths     [][]string
	truncated bool
}

// Graph is a loaded, read-only relationship graph.
//
// Description:
//
//	Owns the id table, the adjacency store, and the bounded path cache.
//	After construction the id table is frozen; queries never allocate ids
//	and fail with ErrUnknownID for ids absent from the dataset.
//
// Thread Safety: Safe for concurrent queries. Close must not race with queries.
type Graph struct {
	ids    *IDTable
	store  AdjacencyStore
	logger *slog.Logger

	cache *LRUCache[pathKey, cachedPaths]

	// flightMu guards flights and keeps them in step with group.
	flightMu sync.Mutex
	flights  map[string]*pathFlight
	group    singleflight.Group

	source       string
	loadDuration time.Duration
}

// New wraps an already populated id table and store.
//
// Inputs:
//
//	ids - The id table. It is frozen by New.
//	store - The adjacency store. Ownership passes to the Graph.
//	cfg - Cache and logger settings; load settings are ignored.
//
// Outputs:
//
//	*Graph - The graph. Never nil.
func New(ids *IDTable, store AdjacencyStore, cfg Config) *Graph {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids.Freeze()
	return &Graph{
		ids:     ids,
		store:   store,
		logger:  logger,
		cache:   NewLRUCache[pathKey, cachedPaths](cfg.PathCacheSize, cfg.PathCacheTTL),
		flights: make(map[string]*pathFlight),
		source:  SourceDataset,
	}
}

// Open builds a graph from the snapshot artifacts or, failing that, the dataset.
//
// Description:
//
//	With UseSnapshot set, the snapshot is tried first; any snapshot failure
//	is logged and treated as a miss. The dataset is then parsed and, if a
//	snapshot directory is configured, a fresh snapshot is written. A
//	snapshot write failure is logged and does not fail Open.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	cfg - Construction settings.
//
// Outputs:
//
//	*Graph - The loaded graph. Caller must call Close().
//	error - ErrDatasetNotFound, ErrDatasetMalformed, or a store error.
func Open(ctx context.Context, cfg Config) (*Graph, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		cfg.Logger = logger
	}
	start := time.Now()

	if cfg.UseSnapshot && cfg.SnapshotDir != "" {
		g, err := openSnapshot(ctx, cfg)
		if err == nil {
			g.loadDuration = time.Since(start)
			logger.Info("Graph loaded from snapshot",
				slog.String("dir", cfg.SnapshotDir),
				slog.Int("nodes", g.store.Len()),
				slog.Int("ids", g.ids.Len()),
				slog.Duration("elapsed", g.loadDuration),
			)
			return g, nil
		}
		logger.Warn("Snapshot unavailable, loading dataset",
			slog.String("dir", cfg.SnapshotDir),
			slog.String("error", err.Error()),
		)
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	ids := NewIDTable()
	opts := LoadOptions{Bidirectional: cfg.Bidirectional, Logger: logger}
	if _, err := LoadDataset(ctx, cfg.DatasetPath, ids, store, opts); err != nil {
		store.Close()
		return nil, err
	}

	if cfg.SnapshotDir != "" {
		if err := SaveSnapshot(ctx, DefaultSnapshotPaths(cfg.SnapshotDir), ids, store); err != nil {
			logger.Warn("Failed to save snapshot",
				slog.String("dir", cfg.SnapshotDir),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("Snapshot saved", slog.String("dir", cfg.SnapshotDir))
		}
	}

	g := New(ids, store, cfg)
	g.loadDuration = time.Since(start)
	return g, nil
}

func openSnapshot(ctx context.Context, cfg Config) (*Graph, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	ids, err := LoadSnapshot(ctx, DefaultSnapshotPaths(cfg.SnapshotDir), store)
	if err != nil {
		store.Close()
		return nil, err
	}
	g := New(ids, store, cfg)
	g.source = SourceSnapshot
	return g, nil
}

// newStore creates the adjacency store selected by cfg.Backend.
func newStore(cfg Config) (AdjacencyStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendBadger:
		store, err := OpenBadgerStore(cfg.BadgerPath, cfg.AdjacencyCacheSize)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// GetAllPaths returns every walk from origin to destination within maxDist
// hops and the time the query took.
func (g *Graph) GetAllPaths(ctx context.Context, origin, destination string, maxDist int) ([][]string, time.Duration, error) {
	res, err := g.FindAllPaths(ctx, origin, destination, maxDist)
	if err != nil {
		return nil, 0, err
	}
	return res.Paths, res.Duration, nil
}

// GetRadialData returns the radial neighborhood of node within degree hops
// and the time the query took.
func (g *Graph) GetRadialData(ctx context.Context, node string, degree int) (*RadialResult, time.Duration, error) {
	start := time.Now()
	res, err := g.RadialNeighborhood(ctx, node, degree)
	if err != nil {
		return nil, 0, err
	}
	return res, time.Since(start), nil
}

// IDs returns the frozen id table.
func (g *Graph) IDs() *IDTable {
	return g.ids
}

// Store returns the adjacency store.
func (g *Graph) Store() AdjacencyStore {
	return g.store
}

// Source reports whether the graph came from a snapshot or the dataset.
func (g *Graph) Source() string {
	return g.source
}

// Stats returns counts and cache statistics.
func (g *Graph) Stats() Stats {
	hits, misses := g.cache.Stats()
	return Stats{
		Nodes:          g.store.Len(),
		Edges:          g.store.EdgeCount(),
		IDs:            g.ids.Len(),
		Source:         g.source,
		Backend:        g.store.Backend(),
		LoadDuration:   g.loadDuration,
		CacheSize:      g.cache.Len(),
		CacheHits:      hits,
		CacheMisses:    misses,
		CacheEvictions: g.cache.Evictions(),
	}
}

// Close releases the adjacency store.
func (g *Graph) Close() error {
	g.cache.Purge()
	if err := g.store.Close(); err != nil && !errors.Is(err, ErrStoreClosed) {
		return fmt.Errorf("close adjacency store: %w", err)
	}
	return nil
}

// resolve lower-cases an external id and maps it to its internal id.
func (g *Graph) resolve(external string) (NodeID, error) {
	id, ok := g.ids.Lookup(normalizeExternalID(external))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownID, external)
	}
	return id, nil
}
