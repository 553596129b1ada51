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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all graph search routes with the router.
//
// Description:
//
//	Registers all /v1/graph/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//	Query endpoints additionally get the handlers' rate limiter.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Query Endpoints:
//
//	GET /v1/graph/paths - All paths between two nodes within a distance
//	GET /v1/graph/radial - Radial neighborhood of a node
//
// Health Endpoints:
//
//	GET /v1/graph/health - Liveness
//	GET /v1/graph/ready - Readiness (503 until a graph is loaded)
//	GET /v1/graph/stats - Graph size and cache statistics
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	g := rg.Group("/graph")
	{
		registerQueryRoutes(g, handlers)

		g.GET("/health", handlers.HandleHealth)
		g.GET("/ready", handlers.HandleReady)
		g.GET("/stats", handlers.HandleStats)
	}
}

// RegisterRootRoutes registers the banner and the unversioned query aliases.
//
// Endpoints:
//
//	GET /        - Banner
//	GET /paths   - Alias of /v1/graph/paths
//	GET /radial  - Alias of /v1/graph/radial
func RegisterRootRoutes(r *gin.RouterGroup, handlers *Handlers) {
	r.GET("/", handlers.HandleHome)
	registerQueryRoutes(r, handlers)
}

func registerQueryRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.GET("/paths", append(handlers.queryMiddleware(), handlers.HandlePaths)...)
	rg.GET("/radial", append(handlers.queryMiddleware(), handlers.HandleRadial)...)
}
