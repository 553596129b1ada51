// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/AleutianAI/graphsearch/cmd/graphsearch/config"
	"github.com/AleutianAI/graphsearch/pkg/logging"
	"github.com/AleutianAI/graphsearch/services/graphsearch"
	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/spf13/cobra"
)

// loadConfig reads the config file and applies the persistent flags.
func loadConfig() (config.GraphSearchConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if datasetArg != "" {
		cfg.Graph.Dataset = datasetArg
	}
	return cfg, nil
}

// newLogger builds the process logger. One-shot commands pass fileLogging
// false so they do not write into the service's log directory.
func newLogger(cfg config.LoggingConfig, stderr io.Writer, fileLogging bool) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Level)

	var jsonOut bool
	switch strings.ToLower(cfg.Format) {
	case config.LogFormatJSON:
		jsonOut = true
	case config.LogFormatText:
		jsonOut = false
	default:
		jsonOut = !logging.StderrIsTerminal()
	}

	logCfg := logging.Config{
		Level:   level,
		Service: "graphsearch",
		JSON:    jsonOut,
		Stderr:  stderr,
	}
	if fileLogging {
		logCfg.LogDir = cfg.Dir
	}
	logger := logging.New(logCfg)
	if err != nil {
		logger.Slog().Warn("Unknown log level, using info", slog.String("level", cfg.Level))
	}
	return logger
}

// graphConfig maps the file configuration onto the engine configuration.
func graphConfig(cfg config.GraphSearchConfig, logger *slog.Logger) graph.Config {
	return graph.Config{
		DatasetPath:        cfg.Graph.Dataset,
		Bidirectional:      cfg.Graph.Bidirectional,
		SnapshotDir:        cfg.Graph.SnapshotDir,
		UseSnapshot:        cfg.Graph.UseSnapshot,
		Backend:            cfg.Store.Backend,
		BadgerPath:         cfg.Store.BadgerPath,
		AdjacencyCacheSize: cfg.Store.AdjacencyCacheSize,
		PathCacheSize:      cfg.Query.PathCacheSize,
		PathCacheTTL:       cfg.Query.PathCacheTTL,
		Logger:             logger,
	}
}

func serviceConfig(cfg config.GraphSearchConfig, logger *slog.Logger) graphsearch.ServiceConfig {
	return graphsearch.ServiceConfig{
		Graph:         graphConfig(cfg, logger),
		WatchDataset:  cfg.Graph.WatchDataset,
		WatchDebounce: cfg.Graph.WatchDebounce,
		Logger:        logger,
	}
}

func handlerConfig(cfg config.GraphSearchConfig) graphsearch.HandlerConfig {
	return graphsearch.HandlerConfig{
		MaxPathDistance: cfg.Query.MaxPathDistance,
		MaxRadialDegree: cfg.Query.MaxRadialDegree,
		QueryTimeout:    cfg.Server.QueryTimeout,
	}
}

// printJSON writes v to the command's stdout, indented.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
