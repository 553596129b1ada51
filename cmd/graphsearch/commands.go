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
	"github.com/spf13/cobra"
)

var (
	// Persistent flags
	configPath string
	datasetArg string

	// serve
	servePort  int
	serveDebug bool

	// build
	snapshotDirArg string

	// paths
	pathsDist   int
	pathsSimple bool
	pathsLimit  int

	// radial
	radialDegree   int
	radialShowData bool

	rootCmd = &cobra.Command{
		Use:   "graphsearch",
		Short: "Bounded path and radial neighborhood search over a relationship graph",
		Long: `graphsearch loads a CSV of relationships into an in-memory (or Badger)
adjacency store and answers two queries: every walk between two nodes
within a hop bound, and every edge within a hop radius of a node.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Load the graph and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Parse the dataset and write the graph snapshot",
		Args:  cobra.NoArgs,
		RunE:  runBuild, // Defined in cmd_build.go
	}

	pathsCmd = &cobra.Command{
		Use:   "paths <start> <end>",
		Short: "Print every walk from start to end within --dist edges as JSON",
		Args:  cobra.ExactArgs(2),
		RunE:  runPaths, // Defined in cmd_query.go
	}

	radialCmd = &cobra.Command{
		Use:   "radial <node>",
		Short: "Print the radial neighborhood of a node within --degree hops as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runRadial, // Defined in cmd_query.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./graphsearch.yaml, created if missing)")
	rootCmd.PersistentFlags().StringVar(&datasetArg, "dataset", "", "relationship CSV (overrides graph.dataset)")

	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable gin debug mode and request logging")

	buildCmd.Flags().StringVar(&snapshotDirArg, "snapshot-dir", "", "snapshot directory (overrides graph.snapshot_dir)")

	pathsCmd.Flags().IntVar(&pathsDist, "dist", 0, "maximum number of edges per path")
	pathsCmd.Flags().BoolVar(&pathsSimple, "simple", false, "exclude walks that revisit a node")
	pathsCmd.Flags().IntVar(&pathsLimit, "limit", 0, "stop after this many paths (0 = unlimited)")
	_ = pathsCmd.MarkFlagRequired("dist")

	radialCmd.Flags().IntVar(&radialDegree, "degree", 0, "maximum hop count")
	radialCmd.Flags().BoolVar(&radialShowData, "show-data", false, "include the edge list (showdata mode)")
	_ = radialCmd.MarkFlagRequired("degree")

	rootCmd.AddCommand(serveCmd, buildCmd, pathsCmd, radialCmd)
}
