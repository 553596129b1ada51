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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "graphsearch"

// HTTPMetrics holds the Prometheus metrics of the HTTP layer.
//
// # Fields
//
//   - RequestsTotal: Counter of requests by route and status code
//   - QueryDurationSeconds: Histogram of graph query latency by query type
//   - RateLimitedTotal: Counter of requests rejected by the rate limiter
//
// # Thread Safety
//
// All operations are thread-safe.
type HTTPMetrics struct {
	// RequestsTotal counts HTTP requests.
	// Labels: endpoint (route pattern), status (HTTP status code)
	RequestsTotal *prometheus.CounterVec

	// QueryDurationSeconds measures graph query latency, including cache hits.
	// Labels: query (paths, radial)
	QueryDurationSeconds *prometheus.HistogramVec

	// RateLimitedTotal counts requests answered with 429.
	RateLimitedTotal prometheus.Counter
}

// DefaultMetrics is the process-wide HTTPMetrics, registered with the default
// Prometheus registry on package init.
var DefaultMetrics = newHTTPMetrics()

func newHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),
		QueryDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "query_duration_seconds",
				Help:      "Graph query latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"query"},
		),
		RateLimitedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveQuery records the latency of one graph query.
func (m *HTTPMetrics) ObserveQuery(query string, d time.Duration) {
	m.QueryDurationSeconds.WithLabelValues(query).Observe(d.Seconds())
}

// Middleware counts every request by route pattern and status.
// Unmatched routes are counted under "unmatched".
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
