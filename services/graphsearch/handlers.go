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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/gin-gonic/gin"
)

// Banner is the body of GET /.
const Banner = "<h1>Graph search demo with optimised in-memory traversal</h1>"

// HandlerConfig bounds query parameters.
type HandlerConfig struct {
	// MaxPathDistance is the largest accepted dist. Zero disables the check.
	MaxPathDistance int

	// MaxRadialDegree is the largest accepted degree. Zero disables the check.
	MaxRadialDegree int

	// QueryTimeout cancels a query that runs longer. Zero disables it.
	QueryTimeout time.Duration
}

// DefaultHandlerConfig returns sensible defaults.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		MaxPathDistance: 10,
		MaxRadialDegree: 10,
		QueryTimeout:    30 * time.Second,
	}
}

// Handlers contains the HTTP handlers for graph search.
type Handlers struct {
	svc     *Service
	cfg     HandlerConfig
	metrics *HTTPMetrics
	limiter gin.HandlerFunc
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service, cfg HandlerConfig) *Handlers {
	return &Handlers{
		svc:     svc,
		cfg:     cfg,
		metrics: DefaultMetrics,
	}
}

// WithRateLimit limits the query endpoints to rps requests per second.
//
// Description:
//
//	Health, readiness and stats stay unlimited so probes keep working
//	under load. A non-positive rps disables limiting.
//
// Outputs:
//
//	*Handlers - The handlers for method chaining
func (h *Handlers) WithRateLimit(rps float64, burst int) *Handlers {
	if rps > 0 {
		h.limiter = RateLimitMiddleware(rps, burst, h.metrics)
	} else {
		h.limiter = nil
	}
	return h
}

// queryMiddleware returns the middleware chain of the query endpoints.
func (h *Handlers) queryMiddleware() []gin.HandlerFunc {
	if h.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{h.limiter}
}

// HandleHome handles GET /.
func (h *Handlers) HandleHome(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(Banner))
}

// HandlePaths handles GET /v1/graph/paths.
//
// Description:
//
//	Enumerates every walk from start to end with at most dist edges.
//	Ids are case-insensitive. An unreachable end is not an error: the
//	response has paths_found 0.
//
// Query Parameters:
//
//	start, end - External node ids (required)
//	dist - Maximum edges per path, 0..MaxPathDistance (required)
//	simple - Exclude walks that revisit a node (optional)
//	limit - Stop after this many paths (optional)
//
// Response:
//
//	200 OK: PathsResponse
//	400 Bad Request: Invalid parameter
//	404 Not Found: Unknown start or end
//	503 Service Unavailable: Graph not loaded
//	504 Gateway Timeout: Query exceeded QueryTimeout
func (h *Handlers) HandlePaths(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePaths")

	var req PathsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.invalidParameter(c, logger, describeBindError(err))
		return
	}
	dist := *req.Dist
	if h.cfg.MaxPathDistance > 0 && dist > h.cfg.MaxPathDistance {
		h.invalidParameter(c, logger, fmt.Sprintf("dist must be at most %d", h.cfg.MaxPathDistance))
		return
	}

	var opts []graph.QueryOption
	if req.Simple {
		opts = append(opts, graph.WithSimplePaths())
	}
	if req.Limit > 0 {
		opts = append(opts, graph.WithLimit(req.Limit))
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	var resp PathsResponse
	var elapsed time.Duration
	err := h.svc.WithGraph(func(g *graph.Graph) error {
		res, err := g.FindAllPaths(ctx, req.Start, req.End, dist, opts...)
		if err != nil {
			return err
		}
		elapsed = res.Duration
		resp = NewPathsResponse(g.Store().Backend(), req.Start, req.End, dist, res)
		return nil
	})
	if err != nil {
		h.writeQueryError(c, logger, err)
		return
	}

	h.metrics.ObserveQuery("paths", elapsed)
	logger.Debug("Paths query served",
		slog.String("start", req.Start),
		slog.String("end", req.End),
		slog.Int("dist", dist),
		slog.Int("paths", resp.PathsFound),
		slog.Bool("cached", resp.Cached),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleRadial handles GET /v1/graph/radial.
//
// Description:
//
//	Collects every edge reachable from node within degree hops, each
//	relationship once. In showdata mode the edges are returned as
//	node_radial; benchmark mode (the default) returns counts only.
//
// Query Parameters:
//
//	node - External node id (required)
//	degree - Maximum hops, 0..MaxRadialDegree (required)
//	mode - showdata or benchmark (optional, case-insensitive)
//
// Response:
//
//	200 OK: RadialResponse
//	400 Bad Request: Invalid parameter
//	404 Not Found: Unknown node
//	503 Service Unavailable: Graph not loaded
//	504 Gateway Timeout: Query exceeded QueryTimeout
func (h *Handlers) HandleRadial(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleRadial")

	var req RadialRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.invalidParameter(c, logger, describeBindError(err))
		return
	}
	degree := *req.Degree
	if h.cfg.MaxRadialDegree > 0 && degree > h.cfg.MaxRadialDegree {
		h.invalidParameter(c, logger, fmt.Sprintf("degree must be at most %d", h.cfg.MaxRadialDegree))
		return
	}
	showData := strings.ToLower(strings.TrimSpace(req.Mode)) == ModeShowData

	ctx, cancel := h.queryContext(c)
	defer cancel()

	var resp RadialResponse
	var elapsed time.Duration
	err := h.svc.WithGraph(func(g *graph.Graph) error {
		res, d, err := g.GetRadialData(ctx, req.Node, degree)
		if err != nil {
			return err
		}
		elapsed = d
		resp = NewRadialResponse(g.Store().Backend(), req.Node, degree, res, d, showData)
		return nil
	})
	if err != nil {
		h.writeQueryError(c, logger, err)
		return
	}

	h.metrics.ObserveQuery("radial", elapsed)
	logger.Debug("Radial query served",
		slog.String("node", req.Node),
		slog.Int("degree", degree),
		slog.Int("edges", resp.EdgeCount),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/graph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/graph/ready.
//
// Response:
//
//	200 OK: ReadyResponse once a graph generation is live
//	503 Service Unavailable: ReadyResponse with ready=false
func (h *Handlers) HandleReady(c *gin.Context) {
	status := h.svc.Status()
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleStats handles GET /v1/graph/stats.
func (h *Handlers) HandleStats(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleStats")

	stats, err := h.svc.Stats()
	if err != nil {
		h.writeQueryError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// queryContext derives the query context from the request context.
func (h *Handlers) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.cfg.QueryTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.cfg.QueryTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (h *Handlers) invalidParameter(c *gin.Context, logger *slog.Logger, details string) {
	logger.Warn("Invalid query parameters", "details", details)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid query parameters",
		Code:    CodeInvalidParameter,
		Details: details,
	})
}

// writeQueryError maps an engine or service error to a status and code.
func (h *Handlers) writeQueryError(c *gin.Context, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	errCode := CodeQueryFailed
	message := "Query failed"

	switch {
	case errors.Is(err, graph.ErrUnknownID):
		statusCode = http.StatusNotFound
		errCode = CodeUnknownNode
		message = "Unknown node"
	case errors.Is(err, graph.ErrInvalidBound):
		statusCode = http.StatusBadRequest
		errCode = CodeInvalidParameter
		message = "Invalid query parameters"
	case errors.Is(err, ErrNotReady):
		statusCode = http.StatusServiceUnavailable
		errCode = CodeGraphNotReady
		message = "Graph not loaded"
	case errors.Is(err, graph.ErrQueryCancelled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		statusCode = http.StatusGatewayTimeout
		errCode = CodeQueryCancelled
		message = "Query cancelled"
	}

	if statusCode >= http.StatusInternalServerError && statusCode != http.StatusServiceUnavailable {
		logger.Error("Query failed", "error", err, "code", errCode)
	} else {
		logger.Info("Query rejected", "error", err, "code", errCode)
	}

	c.JSON(statusCode, ErrorResponse{
		Error:   message,
		Code:    errCode,
		Details: err.Error(),
	})
}

// NewPathsResponse renders a path query result in the response format.
func NewPathsResponse(backend, start, end string, dist int, res *graph.PathsResult) PathsResponse {
	paths := res.Paths
	if paths == nil {
		paths = [][]string{}
	}
	return PathsResponse{
		DataSource:        dataSourceName(backend),
		SearchDetails:     fmt.Sprintf("Find path between %s and %s with distance = %d", start, end, dist),
		SearchPerformance: searchPerformance(res.Duration),
		PathsFound:        len(paths),
		ValidPaths:        paths,
		Truncated:         res.Truncated,
		Cached:            res.Cached,
	}
}

// NewRadialResponse renders a radial query result in the response format.
// The edge list is included only when showData is set.
func NewRadialResponse(backend, node string, degree int, res *graph.RadialResult, d time.Duration, showData bool) RadialResponse {
	resp := RadialResponse{
		DataSource:        dataSourceName(backend),
		SearchDetails:     fmt.Sprintf("Find node %s neighborhood within %d degree(s)", node, degree),
		SearchPerformance: searchPerformance(d),
		SearchResult:      fmt.Sprintf("Constructed a graph with a total of %d paths", res.EdgeCount),
		EdgeCount:         res.EdgeCount,
	}
	if showData {
		edges := res.Graph
		if edges == nil {
			edges = []graph.EdgeTuple{}
		}
		resp.NodeRadial = &edges
	}
	return resp
}

// dataSourceName renders a store backend as the _data_source field.
func dataSourceName(backend string) string {
	switch backend {
	case graph.BackendMemory:
		return "in-memory"
	default:
		return backend
	}
}

// searchPerformance renders a query duration the way responses report it.
func searchPerformance(d time.Duration) string {
	return "Search completed in " + strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + " seconds."
}
