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
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter(t *testing.T) {
	svc, _ := newLoadedService(t, chainRows)
	router := NewRouter(NewHandlers(svc, DefaultHandlerConfig()), RouterOptions{})

	w := doGet(router, "/v1/graph/paths?start=a&end=c&dist=2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doGet(router, "/paths?start=a&end=c&dist=2")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doGet(router, "/")
	assert.Equal(t, Banner, w.Body.String())

	w = doGet(router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graphsearch_http_requests_total")
	assert.Contains(t, w.Body.String(), "graphsearch_query_duration_seconds")
}

func TestNewRouter_PropagatesRequestID(t *testing.T) {
	svc, _ := newLoadedService(t, chainRows)
	router := NewRouter(NewHandlers(svc, DefaultHandlerConfig()), RouterOptions{ServiceName: "graphsearch-test"})

	req := httptest.NewRequest(http.MethodGet, "/v1/graph/paths?start=a&end=zz&dist=2", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestServer_RunAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	svc, _ := newLoadedService(t, chainRows)
	srv := NewServer(addr, NewRouter(NewHandlers(svc, DefaultHandlerConfig()), RouterOptions{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	url := fmt.Sprintf("http://%s/v1/graph/health", addr)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer(ln.Addr().String(), http.NotFoundHandler())
	err = srv.Run(context.Background())
	assert.Error(t, err)
}
