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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/graphsearch/cmd/graphsearch/config"
	"github.com/AleutianAI/graphsearch/services/graphsearch/graph"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `entity_from_guid,entity_to_guid,relationship_type,relationship_id
a,b,next,r1
b,c,next,r2
`

// setupWorkspace writes a dataset and a config file into a temp directory
// and returns their paths.
func setupWorkspace(t *testing.T) (dataset, cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	dataset = filepath.Join(dir, "rels.csv")
	require.NoError(t, os.WriteFile(dataset, []byte(testDataset), 0644))

	cfgPath = filepath.Join(dir, "graphsearch.yaml")
	yaml := "graph:\n  snapshot_dir: " + dir + "\nlogging:\n  format: text\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))
	return dataset, cfgPath, dir
}

// resetFlags clears flag values left over from a previous Execute.
func resetFlags() {
	configPath, datasetArg = "", ""
	servePort, serveDebug = 0, false
	snapshotDirArg = ""
	pathsDist, pathsSimple, pathsLimit = 0, false, 0
	radialDegree, radialShowData = 0, false

	reset := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range []*cobra.Command{serveCmd, buildCmd, pathsCmd, radialCmd} {
		c.Flags().VisitAll(reset)
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestPathsCommand(t *testing.T) {
	dataset, cfgPath, _ := setupWorkspace(t)

	out, err := execute(t, "paths", "A", "c", "--dist", "2", "--config", cfgPath, "--dataset", dataset)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "in-memory", got["_data_source"])
	assert.EqualValues(t, 1, got["paths_found"])
	assert.Equal(t, []any{[]any{"a", "b", "c"}}, got["valid_paths"])
}

func TestPathsCommand_SimpleAndLimit(t *testing.T) {
	dataset, cfgPath, _ := setupWorkspace(t)

	t.Run("simple", func(t *testing.T) {
		out, err := execute(t, "paths", "a", "c", "--dist", "4", "--simple",
			"--config", cfgPath, "--dataset", dataset)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.EqualValues(t, 1, got["paths_found"])
		assert.Equal(t, []any{[]any{"a", "b", "c"}}, got["valid_paths"])
	})

	t.Run("limit", func(t *testing.T) {
		out, err := execute(t, "paths", "a", "c", "--dist", "4", "--limit", "1",
			"--config", cfgPath, "--dataset", dataset)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.EqualValues(t, 1, got["paths_found"])
		assert.Equal(t, true, got["truncated"])
	})
}

func TestPathsCommand_UnknownNode(t *testing.T) {
	dataset, cfgPath, _ := setupWorkspace(t)

	_, err := execute(t, "paths", "a", "zz", "--dist", "2", "--config", cfgPath, "--dataset", dataset)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnknownID)
}

func TestPathsCommand_RequiresDist(t *testing.T) {
	dataset, cfgPath, _ := setupWorkspace(t)

	_, err := execute(t, "paths", "a", "c", "--config", cfgPath, "--dataset", dataset)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dist")
}

func TestRadialCommand(t *testing.T) {
	dataset, cfgPath, _ := setupWorkspace(t)

	t.Run("benchmark", func(t *testing.T) {
		out, err := execute(t, "radial", "b", "--degree", "1", "--config", cfgPath, "--dataset", dataset)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Contains(t, got, "_search_result")
		assert.NotContains(t, got, "node_radial")
		assert.Greater(t, got["edge_count"], float64(0))
	})

	t.Run("show data", func(t *testing.T) {
		out, err := execute(t, "radial", "b", "--degree", "1", "--show-data",
			"--config", cfgPath, "--dataset", dataset)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		edges, ok := got["node_radial"].([]any)
		require.True(t, ok)
		assert.Len(t, edges, int(got["edge_count"].(float64)))
	})
}

func TestBuildCommand(t *testing.T) {
	dataset, cfgPath, _ := setupWorkspace(t)
	snapDir := t.TempDir()

	out, err := execute(t, "build", "--config", cfgPath, "--dataset", dataset, "--snapshot-dir", snapDir)
	require.NoError(t, err)

	var got buildResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, snapDir, got.SnapshotDir)
	assert.Equal(t, 3, got.IDs)
	assert.Equal(t, 3, got.Nodes)

	paths := graph.DefaultSnapshotPaths(snapDir)
	ids, err := graph.LoadSnapshot(t.Context(), paths, graph.NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, 3, ids.Len())
}

func TestBuildCommand_MissingDataset(t *testing.T) {
	_, cfgPath, dir := setupWorkspace(t)

	_, err := execute(t, "build", "--config", cfgPath, "--dataset", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrDatasetNotFound)
}

func TestQueryCommands_SnapshotWithoutDataset(t *testing.T) {
	dataset, cfgPath, dir := setupWorkspace(t)
	t.Setenv(config.EnvDataset, "")

	_, err := execute(t, "build", "--config", cfgPath, "--dataset", dataset, "--snapshot-dir", dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(dataset))

	out, err := execute(t, "paths", "a", "c", "--dist", "2", "--config", cfgPath)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []any{[]any{"a", "b", "c"}}, got["valid_paths"])

	out, err = execute(t, "radial", "b", "--degree", "1", "--config", cfgPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Greater(t, got["edge_count"], float64(0))
}

func TestQueryCommands_NoDatasetNoSnapshot(t *testing.T) {
	_, cfgPath, _ := setupWorkspace(t)
	t.Setenv(config.EnvDataset, "")

	// The config names a snapshot dir, but nothing was built into it.
	_, err := execute(t, "paths", "a", "c", "--dist", "2", "--config", cfgPath)
	assert.ErrorIs(t, err, errNoDataset)
}

func TestServeCommand_RequiresDataset(t *testing.T) {
	_, cfgPath, _ := setupWorkspace(t)
	t.Setenv(config.EnvDataset, "")

	_, err := execute(t, "serve", "--config", cfgPath)
	assert.ErrorIs(t, err, errNoDataset)
}

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"json", config.LogFormatJSON, `"msg":"hello"`},
		{"text", config.LogFormatText, `msg=hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(config.LoggingConfig{Level: "info", Format: tt.format}, &buf, false)
			defer logger.Close()

			logger.Slog().Info("hello")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestWiring_MapsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Graph.Dataset = "rels.csv"
	cfg.Store.Backend = graph.BackendBadger
	cfg.Query.MaxPathDistance = 4

	gcfg := graphConfig(cfg, nil)
	assert.Equal(t, "rels.csv", gcfg.DatasetPath)
	assert.Equal(t, graph.BackendBadger, gcfg.Backend)
	assert.True(t, gcfg.Bidirectional)

	scfg := serviceConfig(cfg, nil)
	assert.Equal(t, cfg.Graph.WatchDebounce, scfg.WatchDebounce)

	hcfg := handlerConfig(cfg)
	assert.Equal(t, 4, hcfg.MaxPathDistance)
	assert.Equal(t, cfg.Server.QueryTimeout, hcfg.QueryTimeout)
}
