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
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/spf13/cobra"
)

// buildResult is printed by the build command.
type buildResult struct {
	SnapshotDir string        `json:"snapshot_dir"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	IDs         int           `json:"ids"`
	Duration    time.Duration `json:"duration_ns"`
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if snapshotDirArg != "" {
		cfg.Graph.SnapshotDir = snapshotDirArg
	}
	if cfg.Graph.Dataset == "" {
		return errNoDataset
	}
	if cfg.Graph.SnapshotDir == "" {
		return errors.New("no snapshot directory: set graph.snapshot_dir or --snapshot-dir")
	}

	logger := newLogger(cfg.Logging, cmd.ErrOrStderr(), false)
	defer logger.Close()

	gcfg := graphConfig(cfg, logger.Slog())
	gcfg.UseSnapshot = false
	// The snapshot always holds the full adjacency; the memory store is the
	// fastest way to produce it.
	gcfg.Backend = graph.BackendMemory

	start := time.Now()
	g, err := graph.Open(cmd.Context(), gcfg)
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}
	defer g.Close()

	if _, err := graph.LoadSnapshot(cmd.Context(), graph.DefaultSnapshotPaths(cfg.Graph.SnapshotDir), graph.NewMemoryStore()); err != nil {
		return fmt.Errorf("verify snapshot: %w", err)
	}

	stats := g.Stats()
	return printJSON(cmd, buildResult{
		SnapshotDir: cfg.Graph.SnapshotDir,
		Nodes:       stats.Nodes,
		Edges:       stats.Edges,
		IDs:         stats.IDs,
		Duration:    time.Since(start),
	})
}
