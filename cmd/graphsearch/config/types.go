// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/graphsearch/pkg/logging"
	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/AleutianAI/graphsearch/services/graphsearch/telemetry"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Log output formats.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

type GraphSearchConfig struct {
	// Server: HTTP listener, rate limiting, query timeout
	Server ServerConfig `yaml:"server"`

	// Graph: dataset location, edge direction, snapshots, hot reload
	Graph GraphConfig `yaml:"graph"`

	// Store: adjacency backend
	Store StoreConfig `yaml:"store"`

	// Query: bounds and path cache
	Query QueryConfig `yaml:"query"`

	// Logging: level, directory, format
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: trace and metric exporters
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`             // e.g. 5001
	Debug          bool          `yaml:"debug"`            // gin debug mode and request log
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`   // 0 disables limiting
	RateLimitBurst int           `yaml:"rate_limit_burst"` // bucket size
	QueryTimeout   time.Duration `yaml:"query_timeout"`    // e.g. 30s, 0 disables
}

type GraphConfig struct {
	Dataset       string        `yaml:"dataset"`        // relationship CSV
	Bidirectional bool          `yaml:"bidirectional"`  // index a reverse edge per row
	SnapshotDir   string        `yaml:"snapshot_dir"`   // "" disables snapshots
	UseSnapshot   bool          `yaml:"use_snapshot"`   // try the snapshot before the dataset
	WatchDataset  bool          `yaml:"watch_dataset"`  // rebuild when the dataset changes
	WatchDebounce time.Duration `yaml:"watch_debounce"` // quiet period before a rebuild
}

type StoreConfig struct {
	Backend            string `yaml:"backend"`              // memory or badger
	BadgerPath         string `yaml:"badger_path"`          // "" runs badger in memory
	AdjacencyCacheSize int    `yaml:"adjacency_cache_size"` // badger decoded-edge cache
}

type QueryConfig struct {
	MaxPathDistance int           `yaml:"max_path_distance"`
	MaxRadialDegree int           `yaml:"max_radial_degree"`
	PathCacheSize   int           `yaml:"path_cache_size"`
	PathCacheTTL    time.Duration `yaml:"path_cache_ttl"` // 0 never expires
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Dir    string `yaml:"dir"`    // "" disables file logging
	Format string `yaml:"format"` // auto, text, json
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() GraphSearchConfig {
	return GraphSearchConfig{
		Server: ServerConfig{
			Port:           5001,
			RateLimitRPS:   0,
			RateLimitBurst: 50,
			QueryTimeout:   30 * time.Second,
		},
		Graph: GraphConfig{
			Bidirectional: true,
			SnapshotDir:   ".",
			UseSnapshot:   true,
			WatchDebounce: 500 * time.Millisecond,
		},
		Store: StoreConfig{
			Backend:            graph.BackendMemory,
			AdjacencyCacheSize: graph.DefaultAdjacencyCacheSize,
		},
		Query: QueryConfig{
			MaxPathDistance: 6,
			MaxRadialDegree: 6,
			PathCacheSize:   graph.DefaultCacheCapacity,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Dir:    "./log",
			Format: LogFormatAuto,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Validate reports every invalid field at once.
func (c GraphSearchConfig) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		invalid("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.RateLimitRPS < 0 {
		invalid("server.rate_limit_rps must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		invalid("server.rate_limit_burst must be positive when rate limiting is enabled")
	}
	if c.Server.QueryTimeout < 0 {
		invalid("server.query_timeout must not be negative")
	}
	if c.Graph.WatchDebounce < 0 {
		invalid("graph.watch_debounce must not be negative")
	}

	switch c.Store.Backend {
	case graph.BackendMemory, graph.BackendBadger:
	default:
		invalid("store.backend %q must be %s or %s", c.Store.Backend, graph.BackendMemory, graph.BackendBadger)
	}
	if c.Store.AdjacencyCacheSize < 0 {
		invalid("store.adjacency_cache_size must not be negative")
	}

	if c.Query.MaxPathDistance < 1 {
		invalid("query.max_path_distance must be positive")
	}
	if c.Query.MaxRadialDegree < 1 {
		invalid("query.max_radial_degree must be positive")
	}
	if c.Query.PathCacheSize < 0 {
		invalid("query.path_cache_size must not be negative")
	}
	if c.Query.PathCacheTTL < 0 {
		invalid("query.path_cache_ttl must not be negative")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		invalid("logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", LogFormatAuto, LogFormatText, LogFormatJSON:
	default:
		invalid("logging.format %q must be auto, text or json", c.Logging.Format)
	}

	return errors.Join(errs...)
}
