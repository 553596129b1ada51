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
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const datasetHeader = "entity_from_guid,entity_to_guid,relationship_type,relationship_id"

// chainRows is a -> b -> c.
var chainRows = [][4]string{
	{"a", "b", "next", "r1"},
	{"b", "c", "next", "r2"},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func datasetContent(rows [][4]string) string {
	var b strings.Builder
	b.WriteString(datasetHeader)
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r[:], ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// writeDataset writes rows to rels.csv in a fresh directory.
func writeDataset(t *testing.T, rows [][4]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rels.csv")
	rewriteDataset(t, path, rows)
	return path
}

// rewriteDataset replaces the dataset at path by renaming a temp file over it.
func rewriteDataset(t *testing.T, path string, rows [][4]string) {
	t.Helper()
	rewriteFile(t, path, datasetContent(rows))
}

func rewriteFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0600))
	require.NoError(t, os.Rename(tmp, path))
}

func testServiceConfig(datasetPath string) ServiceConfig {
	cfg := DefaultServiceConfig(datasetPath)
	cfg.Logger = discardLogger()
	return cfg
}

// newLoadedService returns a service with rows loaded into its first generation.
func newLoadedService(t *testing.T, rows [][4]string) (*Service, string) {
	t.Helper()
	path := writeDataset(t, rows)
	svc := NewService(testServiceConfig(path))
	require.NoError(t, svc.Load(context.Background()))
	t.Cleanup(func() { svc.Close() })
	return svc, path
}
