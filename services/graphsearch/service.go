// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphsearch serves path and radial queries over a relationship
// graph loaded from a CSV dataset.
//
// The Service owns the live graph. Each load builds a complete, immutable
// graph generation and publishes it with an atomic pointer swap, so queries
// never observe a partially built graph. The HTTP layer (handlers.go,
// routes.go) maps query parameters onto the graph engine and engine errors
// onto status codes.
package graphsearch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
)

// ServiceVersion is the graph search service version.
const ServiceVersion = "1.0.0"

// ServiceConfig configures the Service.
type ServiceConfig struct {
	// Graph configures every generation the service builds.
	Graph graph.Config

	// WatchDataset rebuilds the graph when the dataset file changes.
	WatchDataset bool

	// WatchDebounce is the quiet period before a rebuild. Zero uses the
	// watcher default.
	WatchDebounce time.Duration

	// Logger receives service logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultServiceConfig returns the default configuration for a dataset.
func DefaultServiceConfig(datasetPath string) ServiceConfig {
	return ServiceConfig{
		Graph: graph.DefaultConfig(datasetPath),
	}
}

// generation is one published graph. Queries hold mu for reading while they
// run; retiring takes the write lock so the store is never closed under a
// running query.
type generation struct {
	graph     *graph.Graph
	number    uint64
	loadedAt  time.Time
	badgerDir string

	mu      sync.RWMutex
	retired bool
}

// Service owns the live graph and its reloads.
//
// Thread Safety: All methods are safe for concurrent use.
type Service struct {
	cfg    ServiceConfig
	logger *slog.Logger

	current     atomic.Pointer[generation]
	generations atomic.Uint64

	// buildMu serializes builds, which share the snapshot files.
	buildMu sync.Mutex

	reloads        atomic.Uint64
	reloadFailures atomic.Uint64

	watchMu sync.Mutex
	watcher *DatasetWatcher

	closed atomic.Bool
}

// NewService creates a service. Call Load before serving queries.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Graph.Logger == nil {
		cfg.Graph.Logger = logger
	}
	return &Service{
		cfg:    cfg,
		logger: logger,
	}
}

// Load builds the first graph generation.
//
// Description:
//
//	Uses the configured snapshot policy: the snapshot is tried first when
//	enabled, the dataset otherwise. Calling Load again replaces the current
//	generation the same way.
//
// Outputs:
//
//	error - ErrNoDataset, ErrServiceClosed, or the graph.Open error. On
//	        error the previous generation, if any, stays live.
func (s *Service) Load(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.build(ctx, s.cfg.Graph, "load")
}

// Reload rebuilds the graph from the dataset, bypassing the snapshot.
//
// Description:
//
//	The snapshot is rewritten from the new generation when snapshots are
//	configured. A failed rebuild keeps the running generation and is counted
//	in Stats. Reload waits for a build that is already running.
func (s *Service) Reload(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	cfg := s.cfg.Graph
	cfg.UseSnapshot = false

	s.reloads.Add(1)
	if err := s.build(ctx, cfg, "reload"); err != nil {
		s.reloadFailures.Add(1)
		s.logger.Warn("Graph reload failed, keeping current generation",
			slog.Uint64("generation", s.Generation()),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// build opens a new generation and publishes it. Caller holds buildMu.
func (s *Service) build(ctx context.Context, cfg graph.Config, reason string) error {
	if s.closed.Load() {
		return ErrServiceClosed
	}
	if cfg.DatasetPath == "" && cfg.SnapshotDir == "" {
		return ErrNoDataset
	}

	number := s.generations.Add(1)

	// A Badger directory can only be opened once, and the previous
	// generation still holds it until it retires.
	var badgerDir string
	if cfg.Backend == graph.BackendBadger && cfg.BadgerPath != "" {
		badgerDir = filepath.Join(cfg.BadgerPath, fmt.Sprintf("gen-%d", number))
		cfg.BadgerPath = badgerDir
	}

	start := time.Now()
	g, err := graph.Open(ctx, cfg)
	if err != nil {
		if badgerDir != "" {
			_ = os.RemoveAll(badgerDir)
		}
		return fmt.Errorf("build graph generation %d: %w", number, err)
	}

	next := &generation{
		graph:     g,
		number:    number,
		loadedAt:  time.Now(),
		badgerDir: badgerDir,
	}
	if s.closed.Load() {
		s.retire(next)
		return ErrServiceClosed
	}
	old := s.current.Swap(next)

	stats := g.Stats()
	s.logger.Info("Graph generation published",
		slog.String("reason", reason),
		slog.Uint64("generation", number),
		slog.String("source", stats.Source),
		slog.String("backend", stats.Backend),
		slog.Int("nodes", stats.Nodes),
		slog.Int("edges", stats.Edges),
		slog.Duration("duration", time.Since(start)),
	)

	if old != nil {
		s.retire(old)
	}
	return nil
}

// retire waits for queries on gen to finish and releases its store.
func (s *Service) retire(gen *generation) {
	gen.mu.Lock()
	gen.retired = true
	err := gen.graph.Close()
	gen.mu.Unlock()

	if err != nil {
		s.logger.Warn("Failed to close retired graph",
			slog.Uint64("generation", gen.number),
			slog.String("error", err.Error()),
		)
	}
	if gen.badgerDir != "" {
		if err := os.RemoveAll(gen.badgerDir); err != nil {
			s.logger.Warn("Failed to remove retired badger directory",
				slog.String("path", gen.badgerDir),
				slog.String("error", err.Error()),
			)
		}
	}
}

// acquire pins the current generation. The caller must release it with
// gen.mu.RUnlock.
func (s *Service) acquire() (*generation, error) {
	for {
		gen := s.current.Load()
		if gen == nil {
			return nil, ErrNotReady
		}
		gen.mu.RLock()
		if !gen.retired {
			return gen, nil
		}
		gen.mu.RUnlock()
		if s.closed.Load() {
			return nil, ErrNotReady
		}
	}
}

// WithGraph runs fn against the current generation.
//
// Description:
//
//	The generation cannot be retired while fn runs, so a reload that
//	completes mid-query waits for it. fn must not retain g after returning.
//
// Outputs:
//
//	error - ErrNotReady before the first successful Load, or fn's error.
func (s *Service) WithGraph(fn func(g *graph.Graph) error) error {
	gen, err := s.acquire()
	if err != nil {
		return err
	}
	defer gen.mu.RUnlock()
	return fn(gen.graph)
}

// Graph returns the current graph, or nil before the first Load.
// The returned graph is not pinned; prefer WithGraph for queries.
func (s *Service) Graph() *graph.Graph {
	if gen := s.current.Load(); gen != nil {
		return gen.graph
	}
	return nil
}

// Ready reports whether a graph generation is live.
func (s *Service) Ready() bool {
	gen := s.current.Load()
	return gen != nil && !s.closed.Load()
}

// Generation returns the number of the live generation, 0 if none.
func (s *Service) Generation() uint64 {
	if gen := s.current.Load(); gen != nil {
		return gen.number
	}
	return 0
}

// Status describes the live generation for the readiness endpoint.
func (s *Service) Status() ReadyResponse {
	gen := s.current.Load()
	if gen == nil || s.closed.Load() {
		return ReadyResponse{}
	}
	return ReadyResponse{
		Ready:      true,
		Generation: gen.number,
		Source:     gen.graph.Source(),
		LoadedAt:   gen.loadedAt,
	}
}

// Stats returns graph statistics plus reload counters.
func (s *Service) Stats() (StatsResponse, error) {
	var resp StatsResponse
	err := s.WithGraph(func(g *graph.Graph) error {
		resp.Stats = g.Stats()
		return nil
	})
	if err != nil {
		return StatsResponse{}, err
	}
	resp.Generation = s.Generation()
	resp.Reloads = s.reloads.Load()
	resp.ReloadFailures = s.reloadFailures.Load()
	return resp, nil
}

// StartWatching rebuilds the graph whenever the dataset file changes.
//
// Description:
//
//	No-op unless ServiceConfig.WatchDataset is set. Watching stops when ctx
//	is cancelled or Close is called.
func (s *Service) StartWatching(ctx context.Context) error {
	if !s.cfg.WatchDataset {
		return nil
	}
	if s.cfg.Graph.DatasetPath == "" {
		return ErrNoDataset
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return nil
	}

	opts := DefaultDatasetWatcherOptions()
	if s.cfg.WatchDebounce > 0 {
		opts.DebounceWindow = s.cfg.WatchDebounce
	}
	opts.Logger = s.logger

	w, err := NewDatasetWatcher(s.cfg.Graph.DatasetPath, s.onDatasetChange, &opts)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	s.watcher = w
	return nil
}

func (s *Service) onDatasetChange(ctx context.Context, changes []DatasetChange) {
	s.logger.Info("Dataset changed, rebuilding graph",
		slog.String("path", changes[len(changes)-1].Path),
		slog.String("op", changes[len(changes)-1].Op.String()),
		slog.Int("events", len(changes)),
	)
	_ = s.Reload(ctx)
}

// Close stops the watcher and releases the live generation.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.watchMu.Lock()
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	s.watchMu.Unlock()

	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if gen := s.current.Load(); gen != nil {
		s.retire(gen)
	}
	return nil
}
