// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphsearch

import (
	"time"

	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
)

// Radial output modes.
const (
	// ModeBenchmark reports counts only.
	ModeBenchmark = "benchmark"

	// ModeShowData also returns the edge list as node_radial.
	ModeShowData = "showdata"
)

// =============================================================================
// Request Types
// =============================================================================

// PathsRequest is the query string of GET /v1/graph/paths.
type PathsRequest struct {
	// Start is the external id of the first node.
	Start string `form:"start" binding:"required,nodeid"`

	// End is the external id of the last node.
	End string `form:"end" binding:"required,nodeid"`

	// Dist is the maximum number of edges per path. Zero returns no paths.
	Dist *int `form:"dist" binding:"required,min=0"`

	// Simple excludes walks that revisit a node.
	Simple bool `form:"simple"`

	// Limit caps the number of returned paths. Zero means unlimited.
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

// RadialRequest is the query string of GET /v1/graph/radial.
type RadialRequest struct {
	// Node is the external id of the center node.
	Node string `form:"node" binding:"required,nodeid"`

	// Degree is the maximum hop count. Zero returns an empty neighborhood.
	Degree *int `form:"degree" binding:"required,min=0"`

	// Mode is "showdata" or "benchmark" (default). Case-insensitive;
	// anything else is treated as benchmark.
	Mode string `form:"mode"`
}

// =============================================================================
// Response Types
// =============================================================================

// PathsResponse is the response body of GET /v1/graph/paths.
type PathsResponse struct {
	DataSource        string     `json:"_data_source"`
	SearchDetails     string     `json:"_search_details"`
	SearchPerformance string     `json:"_search_performance"`
	PathsFound        int        `json:"paths_found"`
	ValidPaths        [][]string `json:"valid_paths"`
	Truncated         bool       `json:"truncated,omitempty"`
	Cached            bool       `json:"cached"`
}

// RadialResponse is the response body of GET /v1/graph/radial.
type RadialResponse struct {
	DataSource        string `json:"_data_source"`
	SearchDetails     string `json:"_search_details"`
	SearchPerformance string `json:"_search_performance"`
	SearchResult      string `json:"_search_result"`
	EdgeCount         int    `json:"edge_count"`

	// NodeRadial is only set in showdata mode. A pointer keeps an empty
	// neighborhood serialized as [] rather than omitted.
	NodeRadial *[]graph.EdgeTuple `json:"node_radial,omitempty"`
}

// HealthResponse is the response body of GET /v1/graph/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response body of GET /v1/graph/ready.
type ReadyResponse struct {
	Ready      bool      `json:"ready"`
	Generation uint64    `json:"generation"`
	Source     string    `json:"source,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
}

// StatsResponse is the response body of GET /v1/graph/stats.
type StatsResponse struct {
	graph.Stats

	Generation     uint64 `json:"generation"`
	Reloads        uint64 `json:"reloads"`
	ReloadFailures uint64 `json:"reload_failures"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
