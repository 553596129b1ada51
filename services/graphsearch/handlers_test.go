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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, h)
	RegisterRootRoutes(&router.RouterGroup, h)
	return router
}

func loadedRouter(t *testing.T, rows [][4]string) *gin.Engine {
	t.Helper()
	svc, _ := newLoadedService(t, rows)
	return setupTestRouter(NewHandlers(svc, DefaultHandlerConfig()))
}

func doGet(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHandlers_HandleHome(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Banner, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
}

func TestHandlers_HandleHealth(t *testing.T) {
	svc := NewService(testServiceConfig(writeDataset(t, chainRows)))
	defer svc.Close()
	router := setupTestRouter(NewHandlers(svc, DefaultHandlerConfig()))

	w := doGet(router, "/v1/graph/health")
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandlers_HandleReady(t *testing.T) {
	svc := NewService(testServiceConfig(writeDataset(t, chainRows)))
	defer svc.Close()
	router := setupTestRouter(NewHandlers(svc, DefaultHandlerConfig()))

	w := doGet(router, "/v1/graph/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, decode[ReadyResponse](t, w).Ready)

	require.NoError(t, svc.Load(context.Background()))

	w = doGet(router, "/v1/graph/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[ReadyResponse](t, w)
	assert.True(t, resp.Ready)
	assert.Equal(t, uint64(1), resp.Generation)
	assert.Equal(t, graph.SourceDataset, resp.Source)
}

func TestHandlers_HandlePaths(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/v1/graph/paths?start=a&end=c&dist=2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[PathsResponse](t, w)
	assert.Equal(t, "in-memory", resp.DataSource)
	assert.Equal(t, "Find path between a and c with distance = 2", resp.SearchDetails)
	assert.True(t, strings.HasPrefix(resp.SearchPerformance, "Search completed in "))
	assert.True(t, strings.HasSuffix(resp.SearchPerformance, " seconds."))
	assert.Equal(t, 1, resp.PathsFound)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, resp.ValidPaths)
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doGet(router, "/v1/graph/paths?start=A&end=C&dist=2")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[PathsResponse](t, w)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, resp.ValidPaths)
	assert.True(t, resp.Cached)
}

func TestHandlers_HandlePaths_EmptyResults(t *testing.T) {
	router := loadedRouter(t, chainRows)

	for _, target := range []string{
		"/v1/graph/paths?start=a&end=c&dist=0",
		"/v1/graph/paths?start=a&end=c&dist=1",
	} {
		w := doGet(router, target)
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Contains(t, w.Body.String(), `"valid_paths":[]`)
		assert.Equal(t, 0, decode[PathsResponse](t, w).PathsFound)
	}
}

func TestHandlers_HandlePaths_SimpleAndLimit(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/v1/graph/paths?start=a&end=b&dist=3")
	require.Equal(t, http.StatusOK, w.Code)
	walks := decode[PathsResponse](t, w)
	assert.Greater(t, walks.PathsFound, 1)

	w = doGet(router, "/v1/graph/paths?start=a&end=b&dist=3&simple=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]string{{"a", "b"}}, decode[PathsResponse](t, w).ValidPaths)

	w = doGet(router, "/v1/graph/paths?start=a&end=b&dist=3&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	limited := decode[PathsResponse](t, w)
	assert.Equal(t, 1, limited.PathsFound)
	assert.True(t, limited.Truncated)
}

func TestHandlers_HandlePaths_InvalidParameters(t *testing.T) {
	svc, _ := newLoadedService(t, chainRows)
	cfg := DefaultHandlerConfig()
	cfg.MaxPathDistance = 5
	router := setupTestRouter(NewHandlers(svc, cfg))

	tests := []struct {
		name   string
		target string
	}{
		{"missing start", "/v1/graph/paths?end=c&dist=2"},
		{"missing end", "/v1/graph/paths?start=a&dist=2"},
		{"missing dist", "/v1/graph/paths?start=a&end=c"},
		{"negative dist", "/v1/graph/paths?start=a&end=c&dist=-1"},
		{"non-numeric dist", "/v1/graph/paths?start=a&end=c&dist=two"},
		{"dist above maximum", "/v1/graph/paths?start=a&end=c&dist=6"},
		{"blank start", "/v1/graph/paths?start=%20&end=c&dist=2"},
		{"whitespace in id", "/v1/graph/paths?start=a%20b&end=c&dist=2"},
		{"negative limit", "/v1/graph/paths?start=a&end=c&dist=2&limit=-3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doGet(router, tc.target)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, CodeInvalidParameter, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandlers_HandlePaths_UnknownNode(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/v1/graph/paths?start=a&end=zz&dist=2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, CodeUnknownNode, resp.Code)
	assert.Contains(t, resp.Details, "zz")
}

func TestHandlers_HandlePaths_NotReady(t *testing.T) {
	svc := NewService(testServiceConfig(writeDataset(t, chainRows)))
	defer svc.Close()
	router := setupTestRouter(NewHandlers(svc, DefaultHandlerConfig()))

	w := doGet(router, "/v1/graph/paths?start=a&end=c&dist=2")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, CodeGraphNotReady, decode[ErrorResponse](t, w).Code)
}

func TestHandlers_HandleRadial(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/v1/graph/radial?node=a&degree=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[RadialResponse](t, w)
	assert.Equal(t, "in-memory", resp.DataSource)
	assert.Equal(t, "Find node a neighborhood within 1 degree(s)", resp.SearchDetails)
	assert.Equal(t, "Constructed a graph with a total of 1 paths", resp.SearchResult)
	assert.Equal(t, 1, resp.EdgeCount)
	assert.Nil(t, resp.NodeRadial)
	assert.NotContains(t, w.Body.String(), "node_radial")

	w = doGet(router, "/v1/graph/radial?node=a&degree=2&mode=ShowData")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[RadialResponse](t, w)
	assert.Equal(t, 3, resp.EdgeCount)
	require.NotNil(t, resp.NodeRadial)
	require.Len(t, *resp.NodeRadial, 3)
	assert.Equal(t, graph.EdgeTuple{Source: "a", Destination: "b", Relation: "next", RelationshipID: "r1"}, (*resp.NodeRadial)[0])
}

func TestHandlers_HandleRadial_EmptyShowData(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/v1/graph/radial?node=a&degree=0&mode=showdata")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"node_radial":[]`)
	assert.Equal(t, 0, decode[RadialResponse](t, w).EdgeCount)
}

func TestHandlers_HandleRadial_Errors(t *testing.T) {
	svc, _ := newLoadedService(t, chainRows)
	cfg := DefaultHandlerConfig()
	cfg.MaxRadialDegree = 3
	router := setupTestRouter(NewHandlers(svc, cfg))

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/v1/graph/radial?degree=1", http.StatusBadRequest, CodeInvalidParameter},
		{"/v1/graph/radial?node=a", http.StatusBadRequest, CodeInvalidParameter},
		{"/v1/graph/radial?node=a&degree=-2", http.StatusBadRequest, CodeInvalidParameter},
		{"/v1/graph/radial?node=a&degree=4", http.StatusBadRequest, CodeInvalidParameter},
		{"/v1/graph/radial?node=nobody&degree=1", http.StatusNotFound, CodeUnknownNode},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			w := doGet(router, tc.target)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandlers_RootAliases(t *testing.T) {
	router := loadedRouter(t, chainRows)

	w := doGet(router, "/paths?start=a&end=c&dist=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[PathsResponse](t, w).PathsFound)

	w = doGet(router, "/radial?node=b&degree=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[RadialResponse](t, w).EdgeCount)
}

func TestHandlers_HandleStats(t *testing.T) {
	router := loadedRouter(t, chainRows)

	doGet(router, "/v1/graph/paths?start=a&end=c&dist=2")
	doGet(router, "/v1/graph/paths?start=a&end=c&dist=2")

	w := doGet(router, "/v1/graph/stats")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[StatsResponse](t, w)
	assert.Equal(t, 3, resp.Nodes)
	assert.Equal(t, 4, resp.Edges)
	assert.Equal(t, graph.BackendMemory, resp.Backend)
	assert.Equal(t, uint64(1), resp.Generation)
	assert.Equal(t, int64(1), resp.CacheHits)
}

func TestHandlers_RateLimit(t *testing.T) {
	svc, _ := newLoadedService(t, chainRows)
	h := NewHandlers(svc, DefaultHandlerConfig()).WithRateLimit(0.001, 1)
	router := setupTestRouter(h)

	w := doGet(router, "/v1/graph/paths?start=a&end=c&dist=2")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doGet(router, "/radial?node=a&degree=1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, CodeRateLimited, decode[ErrorResponse](t, w).Code)

	w = doGet(router, "/v1/graph/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandlers_WriteQueryError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrap: %w", graph.ErrUnknownID), http.StatusNotFound, CodeUnknownNode},
		{graph.ErrInvalidBound, http.StatusBadRequest, CodeInvalidParameter},
		{ErrNotReady, http.StatusServiceUnavailable, CodeGraphNotReady},
		{fmt.Errorf("%w: %w", graph.ErrQueryCancelled, context.DeadlineExceeded), http.StatusGatewayTimeout, CodeQueryCancelled},
		{context.Canceled, http.StatusGatewayTimeout, CodeQueryCancelled},
		{errors.New("disk on fire"), http.StatusInternalServerError, CodeQueryFailed},
	}
	h := &Handlers{}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.writeQueryError(c, discardLogger(), tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestHandlers_QueryTimeout(t *testing.T) {
	h := &Handlers{cfg: HandlerConfig{QueryTimeout: time.Minute}}
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ctx, cancel := h.queryContext(c)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	h.cfg.QueryTimeout = 0
	ctx2, cancel2 := h.queryContext(c)
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok)
}

func TestSearchPerformance(t *testing.T) {
	assert.Equal(t, "Search completed in 1.5 seconds.", searchPerformance(1500*time.Millisecond))
	assert.Equal(t, "in-memory", dataSourceName(graph.BackendMemory))
	assert.Equal(t, "badger", dataSourceName(graph.BackendBadger))
}
