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
	"strings"
	"time"
)

// Relationship column names required in the dataset header.
const (
	ColumnFrom           = "entity_from_guid"
	ColumnTo             = "entity_to_guid"
	ColumnRelationType   = "relationship_type"
	ColumnRelationshipID = "relationship_id"
)

// ReversePrefix marks the relation and relationship id of a synthesized reverse edge.
// Real relationship ids never start with it, so reverse edges never collide with
// forward edges during radial dedup.
const ReversePrefix = "-"

// Data source labels reported by Stats.
const (
	SourceSnapshot = "snapshot"
	SourceDataset  = "dataset"
)

// NodeID is a compact internal node identifier: a counter rendered in radix 36.
type NodeID string

// Edge is a directed relationship stored in the adjacency list of its source.
type Edge struct {
	// To is the internal id of the destination node.
	To NodeID

	// Relation is the relationship label, prefixed with "-" on reverse edges.
	Relation string

	// RelationshipID identifies the relationship, prefixed with "-" on reverse edges.
	RelationshipID string
}

// String renders the edge in the compact "dest:relation:relationshipId" form.
func (e Edge) String() string {
	var b strings.Builder
	b.Grow(len(e.To) + len(e.Relation) + len(e.RelationshipID) + 2)
	b.WriteString(string(e.To))
	b.WriteByte(':')
	b.WriteString(e.Relation)
	b.WriteByte(':')
	b.WriteString(e.RelationshipID)
	return b.String()
}

// Reverse returns the synthesized reverse of an edge leaving source.
func (e Edge) Reverse(source NodeID) Edge {
	return Edge{
		To:             source,
		Relation:       ReversePrefix + e.Relation,
		RelationshipID: ReversePrefix + e.RelationshipID,
	}
}

// EdgeTuple is one edge of a radial graph, rendered with external ids.
type EdgeTuple struct {
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	Relation       string `json:"relation"`
	RelationshipID string `json:"relationship_id"`
}

// PathsResult is the outcome of FindAllPaths.
type PathsResult struct {
	// Paths holds each walk from origin to destination, inclusive, as external ids.
	Paths [][]string

	// Truncated is true if a result limit stopped the enumeration early.
	Truncated bool

	// Cached is true if the result was served from the path cache.
	Cached bool

	// Duration is the query execution time.
	Duration time.Duration
}

// RadialResult is the outcome of RadialNeighborhood.
type RadialResult struct {
	// Graph holds the deduplicated edges reachable within the degree bound.
	Graph []EdgeTuple `json:"graph"`

	// EdgeCount is len(Graph).
	EdgeCount int `json:"edge_count"`

	// NodesVisited is the number of nodes whose adjacency was expanded.
	NodesVisited int `json:"-"`

	// RepeatedEdges counts edges skipped because their relationship id was seen.
	RepeatedEdges int `json:"-"`
}

// Stats describes a loaded graph.
type Stats struct {
	Nodes          int           `json:"nodes"`
	Edges          int           `json:"edges"`
	IDs            int           `json:"ids"`
	Source         string        `json:"source"`
	Backend        string        `json:"backend"`
	LoadDuration   time.Duration `json:"load_duration_ns"`
	CacheSize      int           `json:"path_cache_size"`
	CacheHits      int64         `json:"path_cache_hits"`
	CacheMisses    int64         `json:"path_cache_misses"`
	CacheEvictions int64         `json:"path_cache_evictions"`
}

// normalizeExternalID lower-cases an external id; ids are case-insensitive.
func normalizeExternalID(id string) string {
	return strings.ToLower(id)
}
