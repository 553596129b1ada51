// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry initializes OpenTelemetry for the graph search service.
//
// The graph engine and the HTTP layer use otel.Tracer() and otel.Meter()
// directly. This package only decides where spans and metrics go.
//
// # Trace Backend (default: none)
//
// "otlp" exports over gRPC to an OTLP receiver (Jaeger 1.35+, Tempo, vendors).
// "stdout" pretty-prints spans, which is useful while debugging a query.
//
// # Metrics Backend (default: Prometheus)
//
// The OTel Prometheus exporter registers with the default Prometheus registry,
// so graph metrics and the service's promauto HTTP metrics share one
// /metrics endpoint served by MetricsHandler.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig())
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// # Environment Variables
//
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: prometheus)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - GRAPHSEARCH_ENV: environment name (default: development)
//
// # Thread Safety
//
// All exported functions are safe for concurrent use after Init() returns.
package telemetry
