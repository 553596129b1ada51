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
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
)

// DefaultProgressInterval is how many rows the loader processes between progress logs.
const DefaultProgressInterval = 10000

// utf8BOM is stripped from the start of the dataset if present.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadOptions configures LoadDataset.
type LoadOptions struct {
	// Bidirectional indexes a reverse edge for every row.
	Bidirectional bool

	// ProgressInterval is the number of rows between progress logs.
	// Zero uses DefaultProgressInterval.
	ProgressInterval int

	// Logger receives progress logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultLoadOptions returns options with bidirectional loading enabled.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Bidirectional: true}
}

// LoadStats summarizes a completed load.
type LoadStats struct {
	Rows         int
	EdgesIndexed int
	Nodes        int
	IDs          int
	Duration     time.Duration
}

// LoadDataset parses a relationship CSV file into ids and store.
//
// Description:
//
//	Reads the header, locates the four required columns (any order, extra
//	columns ignored), then for every row lower-cases both endpoints,
//	compresses them and indexes the forward edge on the source. With
//	Bidirectional set, the reverse edge (relation and relationship id
//	prefixed with "-") is indexed on the destination.
//
// Inputs:
//
//	ctx - Context for cancellation, checked between rows.
//	path - Path of the CSV file (UTF-8, optional BOM).
//	ids - Table receiving id mappings. Must not be frozen.
//	store - Store receiving edges.
//	opts - Load options.
//
// Outputs:
//
//	LoadStats - Row and edge counts.
//	error - ErrDatasetNotFound, ErrDatasetMalformed, or a store/context error.
//	        The caller discards ids and store on failure.
//
// Thread Safety: Must be called by a single goroutine per ids/store pair.
func LoadDataset(ctx context.Context, path string, ids *IDTable, store AdjacencyStore, opts LoadOptions) (LoadStats, error) {
	ctx, span := startLoadSpan(ctx, "Load", path)
	defer span.End()

	start := time.Now()
	stats, err := loadDataset(ctx, path, ids, store, opts)
	stats.Duration = time.Since(start)

	recordLoadMetrics(ctx, SourceDataset, stats.Duration, err == nil)
	if err != nil {
		span.RecordError(err)
		return stats, err
	}
	setLoadSpanResult(span, stats.Nodes, stats.EdgesIndexed, stats.IDs)
	return stats, nil
}

func loadDataset(ctx context.Context, path string, ids *IDTable, store AdjacencyStore, opts LoadOptions) (LoadStats, error) {
	var stats LoadStats

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return stats, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return stats, fmt.Errorf("read dataset %s: %w", path, err)
		}
	}

	r := csv.NewReader(br)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("%w: %s: missing header", ErrDatasetMalformed, path)
		}
		return stats, fmt.Errorf("%w: %s: header: %w", ErrDatasetMalformed, path, err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return stats, fmt.Errorf("%w: %s: %w", ErrDatasetMalformed, path, err)
	}

	logger.Info("Loading relationships",
		slog.String("path", path),
		slog.Bool("bidirectional", opts.Bidirectional),
	)

	start := time.Now()
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row := stats.Rows + 1
		if err != nil {
			return stats, fmt.Errorf("%w: %s: row %d: %w", ErrDatasetMalformed, path, row, err)
		}

		if row%interval == 0 {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("load cancelled at row %d: %w", row, err)
			}
		}

		from := normalizeExternalID(record[cols.from])
		to := normalizeExternalID(record[cols.to])
		if from == "" || to == "" {
			return stats, fmt.Errorf("%w: %s: row %d: empty node id", ErrDatasetMalformed, path, row)
		}

		u, err := ids.Compress(from)
		if err != nil {
			return stats, fmt.Errorf("row %d: %w", row, err)
		}
		v, err := ids.Compress(to)
		if err != nil {
			return stats, fmt.Errorf("row %d: %w", row, err)
		}

		edge := Edge{To: v, Relation: record[cols.relation], RelationshipID: record[cols.relationshipID]}
		if err := store.Index(u, edge); err != nil {
			return stats, fmt.Errorf("row %d: index edge: %w", row, err)
		}
		stats.EdgesIndexed++

		if opts.Bidirectional {
			if err := store.Index(v, edge.Reverse(u)); err != nil {
				return stats, fmt.Errorf("row %d: index reverse edge: %w", row, err)
			}
			stats.EdgesIndexed++
		}

		stats.Rows = row
		if row%interval == 0 {
			logger.Info("Processed rels",
				slog.Int("rows", row),
				slog.Duration("elapsed", time.Since(start)),
			)
		}
	}

	stats.Nodes = store.Len()
	stats.IDs = ids.Len()
	logger.Info("Relationships loaded",
		slog.Int("rows", stats.Rows),
		slog.Int("edges", stats.EdgesIndexed),
		slog.Int("nodes", stats.Nodes),
		slog.Int("ids", stats.IDs),
		slog.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

// columnIndex holds the positions of the required columns in a header.
type columnIndex struct {
	from, to, relation, relationshipID int
}

// resolveColumns finds the required columns in a header row.
func resolveColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var missing []string
	lookup := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
		}
		return i
	}

	cols := columnIndex{
		from:           lookup(ColumnFrom),
		to:             lookup(ColumnTo),
		relation:       lookup(ColumnRelationType),
		relationshipID: lookup(ColumnRelationshipID),
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}
