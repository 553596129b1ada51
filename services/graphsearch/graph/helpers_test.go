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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// rel is one dataset row.
type rel struct {
	from, to, relation, id string
}

const datasetHeader = "entity_from_guid,entity_to_guid,relationship_type,relationship_id"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeDataset writes rows under the standard header and returns the file path.
func writeDataset(t *testing.T, rows ...rel) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(datasetHeader)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join([]string{r.from, r.to, r.relation, r.id}, ","))
		b.WriteByte('\n')
	}
	return writeFile(t, "rels.csv", b.String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// buildGraph loads rows into an in-memory graph.
func buildGraph(t *testing.T, bidirectional bool, rows ...rel) *Graph {
	t.Helper()

	ids := NewIDTable()
	store := NewMemoryStore()
	opts := LoadOptions{Bidirectional: bidirectional, Logger: discardLogger()}
	_, err := LoadDataset(context.Background(), writeDataset(t, rows...), ids, store, opts)
	require.NoError(t, err)

	g := New(ids, store, Config{Logger: discardLogger()})
	t.Cleanup(func() { g.Close() })
	return g
}

// edgesOf returns the adjacency of an external id.
func edgesOf(t *testing.T, ids *IDTable, store AdjacencyStore, external string) []Edge {
	t.Helper()
	id, ok := ids.Lookup(external)
	require.True(t, ok, "id %q not mapped", external)
	edges, err := store.Get(id)
	require.NoError(t, err)
	return edges
}

func mustCompress(t *testing.T, ids *IDTable, external string) NodeID {
	t.Helper()
	id, err := ids.Compress(external)
	require.NoError(t, err)
	return id
}
