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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("graphsearch.graph")
	meter  = otel.Meter("graphsearch.graph")
)

// Metrics for graph loading and queries.
var (
	loadLatency     metric.Float64Histogram
	loadTotal       metric.Int64Counter
	queryLatency    metric.Float64Histogram
	queryResults    metric.Int64Histogram
	pathCacheLookup metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		loadLatency, err = meter.Float64Histogram(
			"graph_load_duration_seconds",
			metric.WithDescription("Duration of graph load operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadTotal, err = meter.Int64Counter(
			"graph_load_total",
			metric.WithDescription("Total number of graph load operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryLatency, err = meter.Float64Histogram(
			"graph_query_duration_seconds",
			metric.WithDescription("Duration of graph query operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryResults, err = meter.Int64Histogram(
			"graph_query_results",
			metric.WithDescription("Number of paths or edges returned per query"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pathCacheLookup, err = meter.Int64Counter(
			"graph_path_cache_lookups_total",
			metric.WithDescription("Path cache lookups by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordLoadMetrics records metrics for a load operation.
func recordLoadMetrics(ctx context.Context, source string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("success", success),
	)
	loadLatency.Record(ctx, duration.Seconds(), attrs)
	loadTotal.Add(ctx, 1, attrs)
}

// recordQueryMetrics records metrics for a query operation.
func recordQueryMetrics(ctx context.Context, queryType string, duration time.Duration, resultCount int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("query_type", queryType))
	queryLatency.Record(ctx, duration.Seconds(), attrs)
	queryResults.Record(ctx, int64(resultCount), attrs)
}

// recordCacheLookup records a path cache hit or miss.
func recordCacheLookup(ctx context.Context, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	pathCacheLookup.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// startLoadSpan creates a span for a load operation.
func startLoadSpan(ctx context.Context, name, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Graph."+name,
		trace.WithAttributes(attribute.String("graph.path", path)),
	)
}

// setLoadSpanResult sets the result attributes on a load span.
func setLoadSpanResult(span trace.Span, nodeCount, edgeCount, idCount int) {
	span.SetAttributes(
		attribute.Int("graph.node_count", nodeCount),
		attribute.Int("graph.edge_count", edgeCount),
		attribute.Int("graph.id_count", idCount),
	)
}

// startQuerySpan creates a span for a query operation.
func startQuerySpan(ctx context.Context, queryType, nodeID string, bound int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Graph."+queryType,
		trace.WithAttributes(
			attribute.String("graph.query_type", queryType),
			attribute.String("graph.node_id", nodeID),
			attribute.Int("graph.bound", bound),
		),
	)
}
