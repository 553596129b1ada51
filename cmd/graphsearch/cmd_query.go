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
	"fmt"

	"github.com/AleutianAI/graphsearch/services/graphsearch"
	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/spf13/cobra"
)

// openGraph loads the graph for a one-shot query, preferring the snapshot.
// The dataset is only needed when no snapshot is configured; graph.Open
// falls back to it when the snapshot cannot be read.
func openGraph(cmd *cobra.Command) (*graph.Graph, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	snapshotOnly := cfg.Graph.Dataset == ""
	if snapshotOnly && (cfg.Graph.SnapshotDir == "" || !cfg.Graph.UseSnapshot) {
		return nil, errNoDataset
	}
	logger := newLogger(cfg.Logging, cmd.ErrOrStderr(), false)
	g, err := graph.Open(cmd.Context(), graphConfig(cfg, logger.Slog()))
	if err != nil {
		if snapshotOnly {
			return nil, fmt.Errorf("no usable snapshot in %s and %w", cfg.Graph.SnapshotDir, errNoDataset)
		}
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return g, nil
}

func runPaths(cmd *cobra.Command, args []string) error {
	g, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer g.Close()

	var opts []graph.QueryOption
	if pathsSimple {
		opts = append(opts, graph.WithSimplePaths())
	}
	if pathsLimit > 0 {
		opts = append(opts, graph.WithLimit(pathsLimit))
	}

	res, err := g.FindAllPaths(cmd.Context(), args[0], args[1], pathsDist, opts...)
	if err != nil {
		return err
	}
	return printJSON(cmd, graphsearch.NewPathsResponse(g.Store().Backend(), args[0], args[1], pathsDist, res))
}

func runRadial(cmd *cobra.Command, args []string) error {
	g, err := openGraph(cmd)
	if err != nil {
		return err
	}
	defer g.Close()

	res, elapsed, err := g.GetRadialData(cmd.Context(), args[0], radialDegree)
	if err != nil {
		return err
	}
	return printJSON(cmd, graphsearch.NewRadialResponse(g.Store().Backend(), args[0], radialDegree, res, elapsed, radialShowData))
}
