// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the in-memory relationship graph engine.
//
// The engine answers two bounded queries over a static relationship dataset:
// all walks between two nodes up to a hop distance, and the radial
// neighborhood of a node up to a degree.
//
// # Identifiers
//
// External node ids (content hashes, UUIDs) are case-insensitive and are
// lower-cased on every entry point. They are compressed into short base-36
// internal ids by an IDTable so traversal hashes and compares small strings.
//
// # Thread Safety
//
// A Graph is built once (from a snapshot or from the dataset) by a single
// goroutine. Open freezes the IDTable afterwards, so queries never allocate
// ids and the graph can be read from multiple goroutines.
//
// # Lifecycle
//
//  1. Open(ctx, cfg) tries the snapshot artifacts, then falls back to the dataset
//  2. The IDTable is frozen
//  3. FindAllPaths / RadialNeighborhood are served concurrently
//  4. Close releases the backing store
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrDatasetNotFound is returned when the source relationship file does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetMalformed is returned when the dataset header or a row cannot be parsed,
	// or a required column is missing.
	ErrDatasetMalformed = errors.New("dataset malformed")

	// ErrSnapshotUnavailable is returned when any snapshot artifact is missing,
	// corrupt, or written by an incompatible version. Callers treat it as a cache miss.
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrUnknownID is returned when an id has no mapping in the IDTable.
	ErrUnknownID = errors.New("unknown node id")

	// ErrIDTableFrozen is returned when an id allocation is attempted after the
	// table has been frozen. It always wraps ErrUnknownID.
	ErrIDTableFrozen = errors.New("id table is frozen")

	// ErrQueryCancelled is returned when a traversal is stopped by its context.
	ErrQueryCancelled = errors.New("query cancelled")

	// ErrInvalidBound is returned for a negative distance or degree bound.
	ErrInvalidBound = errors.New("invalid traversal bound")

	// ErrStoreClosed is returned by a backing store after Close.
	ErrStoreClosed = errors.New("adjacency store closed")
)
