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
	"time"

	"github.com/AleutianAI/graphsearch/services/graphsearch/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// ServiceName names the otelgin server spans.
	ServiceName string

	// Debug enables gin's request logger.
	Debug bool

	// Metrics records HTTP metrics. Nil uses DefaultMetrics.
	Metrics *HTTPMetrics
}

// NewRouter builds the gin engine serving handlers.
//
// Description:
//
//	Middleware order: recovery, request id, otelgin tracing, request
//	metrics. Routes: the /v1/graph group, the root banner and aliases, and
//	/metrics for Prometheus.
func NewRouter(handlers *Handlers, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "graphsearch"
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = DefaultMetrics
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Debug {
		router.Use(gin.Logger())
	}
	router.Use(RequestIDMiddleware())
	router.Use(otelgin.Middleware(opts.ServiceName))
	router.Use(metrics.Middleware())

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	RegisterRootRoutes(&router.RouterGroup, handlers)

	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	return router
}

// Server is the HTTP server of the graph search service.
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: 15 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
//
// Outputs:
//
//	error - Non-nil if the listener fails or shutdown times out.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting graph search server", slog.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down graph search server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
