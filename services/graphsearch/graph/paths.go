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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// cancelCheckInterval is how many edge expansions a traversal performs
// between context checks.
const cancelCheckInterval = 100

// errLimitReached stops a walk once the result limit is hit.
var errLimitReached = errors.New("path limit reached")

// QueryOptions configures FindAllPaths.
type QueryOptions struct {
	// Simple excludes walks that revisit a node already on the current path.
	Simple bool

	// Limit stops enumeration after this many paths. Zero means unlimited.
	Limit int
}

// QueryOption is a functional option for FindAllPaths.
type QueryOption func(*QueryOptions)

// WithSimplePaths excludes walks that revisit a node.
//
// By default walks may revisit nodes (a -> b -> a -> b), which matches the
// hop-bounded enumeration semantics. Simple paths are a subset of walks.
func WithSimplePaths() QueryOption {
	return func(o *QueryOptions) {
		o.Simple = true
	}
}

// WithLimit caps the number of returned paths. The result is marked
// Truncated when the cap stops enumeration. n <= 0 means unlimited.
func WithLimit(n int) QueryOption {
	return func(o *QueryOptions) {
		if n < 0 {
			n = 0
		}
		o.Limit = n
	}
}

func applyQueryOptions(opts []QueryOption) QueryOptions {
	var o QueryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FindAllPaths enumerates every walk from origin to destination of at most
// maxDist edges.
//
// Description:
//
//	Depth-first backtracking from origin. Each time the walk steps onto the
//	destination the current path is recorded, and the walk continues past
//	it, so longer walks that return to the destination are also found.
//	Results are cached in a bounded LRU keyed by the resolved query, and
//	concurrent identical misses share one traversal.
//
// Inputs:
//
//	ctx - Context for cancellation, checked every 100 expansions.
//	origin - External id of the first node (case-insensitive).
//	destination - External id of the last node (case-insensitive).
//	maxDist - Maximum number of edges per path. 0 returns no paths.
//	opts - WithSimplePaths, WithLimit.
//
// Outputs:
//
//	*PathsResult - Paths as external ids, origin first. Empty if unreachable.
//	error - ErrUnknownID, ErrInvalidBound, ErrQueryCancelled, or a store error.
//
// Example:
//
//	res, err := g.FindAllPaths(ctx, "a", "c", 2)
//	// res.Paths == [][]string{{"a", "b", "c"}} for the chain a -> b -> c
//
// Thread Safety: Safe for concurrent use.
func (g *Graph) FindAllPaths(ctx context.Context, origin, destination string, maxDist int, opts ...QueryOption) (*PathsResult, error) {
	start := time.Now()
	o := applyQueryOptions(opts)

	ctx, span := startQuerySpan(ctx, "FindAllPaths", origin, maxDist)
	defer span.End()
	span.SetAttributes(
		attribute.String("graph.destination", destination),
		attribute.Bool("graph.simple", o.Simple),
	)

	if maxDist < 0 {
		err := fmt.Errorf("%w: distance %d", ErrInvalidBound, maxDist)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	from, err := g.resolve(origin)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	to, err := g.resolve(destination)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if maxDist == 0 {
		return &PathsResult{Paths: [][]string{}, Duration: time.Since(start)}, nil
	}

	key := pathKey{origin: from, destination: to, maxDist: maxDist, simple: o.Simple, limit: o.Limit}

	if cached, ok := g.cache.Get(key); ok {
		recordCacheLookup(ctx, true)
		span.SetAttributes(attribute.Bool("graph.cache_hit", true))
		return g.pathsResult(ctx, cached, true, start), nil
	}
	recordCacheLookup(ctx, false)

	v, shared, err := g.sharedPaths(ctx, key.String(), func(walkCtx context.Context) (any, error) {
		// Another caller may have filled the cache while we waited.
		if cached, ok := g.cache.Peek(key); ok {
			return cached, nil
		}

		w := &pathWalker{
			ctx:         walkCtx,
			store:       g.store,
			destination: to,
			maxDist:     maxDist,
			simple:      o.Simple,
			limit:       o.Limit,
			path:        make([]NodeID, 1, initialPathCap(maxDist)),
		}
		w.path[0] = from
		if o.Simple {
			w.onPath = map[NodeID]struct{}{from: {}}
		}

		err := w.walk(from, 1)
		if err != nil && !errors.Is(err, errLimitReached) {
			return nil, err
		}

		paths, err := g.decompressPaths(w.results)
		if err != nil {
			return nil, err
		}
		result := cachedPaths{paths: paths, truncated: w.truncated}
		g.cache.Set(key, result)

		g.logger.Debug("Paths enumerated",
			slog.String("origin", origin),
			slog.String("destination", destination),
			slog.Int("max_dist", maxDist),
			slog.Int("paths", len(paths)),
			slog.Int("expansions", w.expansions),
		)
		return result, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("graph.shared", shared))

	return g.pathsResult(ctx, v.(cachedPaths), false, start), nil
}

// pathsResult builds a caller-owned result from a cached entry.
func (g *Graph) pathsResult(ctx context.Context, c cachedPaths, hit bool, start time.Time) *PathsResult {
	res := &PathsResult{
		Paths:     copyPaths(c.paths),
		Truncated: c.truncated,
		Cached:    hit,
		Duration:  time.Since(start),
	}
	recordQueryMetrics(ctx, "paths", res.Duration, len(res.Paths))
	return res
}

func (g *Graph) decompressPaths(internal [][]NodeID) ([][]string, error) {
	paths := make([][]string, 0, len(internal))
	for _, p := range internal {
		ext := make([]string, len(p))
		for i, id := range p {
			s, err := g.ids.Decompress(id)
			if err != nil {
				return nil, err
			}
			ext[i] = s
		}
		paths = append(paths, ext)
	}
	return paths, nil
}

// copyPaths returns a deep copy so callers cannot mutate cached results.
func copyPaths(paths [][]string) [][]string {
	out := make([][]string, len(paths))
	for i, p := range paths {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// maxInitialPathCap bounds the preallocated path buffer. Deeper walks grow it.
const maxInitialPathCap = 64

// initialPathCap returns the starting capacity of a walker's path buffer.
func initialPathCap(maxDist int) int {
	if maxDist < maxInitialPathCap {
		return maxDist + 1
	}
	return maxInitialPathCap
}

// pathFlight is the traversal shared by identical concurrent queries.
//
// The walk runs on a context detached from every caller. It is cancelled
// only when the last waiting caller gives up, so one caller timing out
// does not fail the others.
type pathFlight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// sharedPaths runs fn once per key among concurrent callers.
//
// Description:
//
//	Each caller waits on its own ctx. A caller whose ctx ends gets
//	ErrQueryCancelled while the walk continues for the remaining waiters.
//	A flight abandoned by all of its waiters is replaced, not joined.
//
// Outputs:
//
//	any - fn's result.
//	bool - True if the result was shared with another caller.
//	error - fn's error, or ErrQueryCancelled if ctx ended first.
func (g *Graph) sharedPaths(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrQueryCancelled, err)
	}

	g.flightMu.Lock()
	f, ok := g.flights[key]
	if ok && f.ctx.Err() != nil {
		// Abandoned and still unwinding; start over.
		delete(g.flights, key)
		g.group.Forget(key)
		ok = false
	}
	if !ok {
		walkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &pathFlight{ctx: walkCtx, cancel: cancel}
		g.flights[key] = f
	}
	f.waiters++
	ch := g.group.DoChan(key, func() (any, error) {
		defer func() {
			g.flightMu.Lock()
			if g.flights[key] == f {
				delete(g.flights, key)
				g.group.Forget(key)
			}
			g.flightMu.Unlock()
			f.cancel()
		}()
		return fn(f.ctx)
	})
	g.flightMu.Unlock()

	select {
	case res := <-ch:
		g.leaveFlight(f)
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		g.leaveFlight(f)
		return nil, false, fmt.Errorf("%w: %w", ErrQueryCancelled, ctx.Err())
	}
}

// leaveFlight drops one waiter and cancels the walk when none remain.
func (g *Graph) leaveFlight(f *pathFlight) {
	g.flightMu.Lock()
	defer g.flightMu.Unlock()
	f.waiters--
	if f.waiters == 0 {
		f.cancel()
	}
}

// pathWalker owns the state of one path enumeration.
//
// path is the current walk. A neighbor is pushed before descending and
// popped after the descent returns, so sibling branches never see each
// other's partial paths.
type pathWalker struct {
	ctx         context.Context
	store       AdjacencyStore
	destination NodeID
	maxDist     int
	simple      bool
	limit       int

	path   []NodeID
	onPath map[NodeID]struct{}

	results    [][]NodeID
	truncated  bool
	expansions int
}

// walk extends the current path from node, which is at the given degree.
func (w *pathWalker) walk(node NodeID, degree int) error {
	if degree > w.maxDist {
		return nil
	}
	edges, err := w.store.Get(node)
	if err != nil {
		return fmt.Errorf("get adjacency of %s: %w", node, err)
	}

	for _, edge := range edges {
		next := edge.To
		if w.simple {
			if _, seen := w.onPath[next]; seen {
				continue
			}
		}

		w.expansions++
		if w.expansions%cancelCheckInterval == 0 {
			if err := w.ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrQueryCancelled, err)
			}
		}

		w.push(next)
		if next == w.destination {
			w.results = append(w.results, append([]NodeID(nil), w.path...))
			if w.limit > 0 && len(w.results) >= w.limit {
				w.truncated = true
				w.pop()
				return errLimitReached
			}
		}
		err := w.walk(next, degree+1)
		w.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *pathWalker) push(id NodeID) {
	w.path = append(w.path, id)
	if w.simple {
		w.onPath[id] = struct{}{}
	}
}

func (w *pathWalker) pop() {
	last := w.path[len(w.path)-1]
	w.path = w.path[:len(w.path)-1]
	if w.simple {
		delete(w.onPath, last)
	}
}
