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

import "errors"

var (
	// ErrNotReady is returned when no graph generation has been loaded yet.
	ErrNotReady = errors.New("graph not loaded")

	// ErrServiceClosed is returned by Load and Reload after Close.
	ErrServiceClosed = errors.New("service closed")

	// ErrNoDataset is returned when the service config names no dataset.
	ErrNoDataset = errors.New("dataset path not configured")
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeUnknownNode      = "UNKNOWN_NODE"
	CodeGraphNotReady    = "GRAPH_NOT_READY"
	CodeQueryCancelled   = "QUERY_CANCELLED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeQueryFailed      = "QUERY_FAILED"
)
