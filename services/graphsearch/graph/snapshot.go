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
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"
)

// Snapshot file names inside a snapshot directory.
const (
	AdjacencySnapshotFile          = "graph.snapshot"
	ExternalToInternalSnapshotFile = "graph_uuid_to_compressed.snapshot"
	InternalToExternalSnapshotFile = "graph_compressed_to_uuid.snapshot"
)

// Snapshot header layout:
//
//	[4-byte magic "GSNP"][2-byte version][1-byte kind][4-byte CRC32 of payload][gob payload]
//
// All integers are big-endian.
const (
	snapshotMagic      = "GSNP"
	snapshotVersion    = uint16(1)
	snapshotHeaderSize = 4 + 2 + 1 + 4
)

// snapshotKind tags which artifact a file holds so a swapped file is rejected.
type snapshotKind byte

const (
	kindAdjacency snapshotKind = iota + 1
	kindExternalToInternal
	kindInternalToExternal
)

func (k snapshotKind) String() string {
	switch k {
	case kindAdjacency:
		return "adjacency"
	case kindExternalToInternal:
		return "external_to_internal"
	case kindInternalToExternal:
		return "internal_to_external"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// SnapshotPaths locates the three snapshot artifacts. They are read and
// written as a matched set.
type SnapshotPaths struct {
	Adjacency          string
	ExternalToInternal string
	InternalToExternal string
}

// DefaultSnapshotPaths returns the artifact paths inside dir.
func DefaultSnapshotPaths(dir string) SnapshotPaths {
	return SnapshotPaths{
		Adjacency:          filepath.Join(dir, AdjacencySnapshotFile),
		ExternalToInternal: filepath.Join(dir, ExternalToInternalSnapshotFile),
		InternalToExternal: filepath.Join(dir, InternalToExternalSnapshotFile),
	}
}

// adjacencyEntry is one source node and its edges in a snapshot.
type adjacencyEntry struct {
	Node  NodeID
	Edges []Edge
}

// SaveSnapshot writes ids and store to the three artifacts.
//
// Description:
//
//	Each file is written to a temporary file in the same directory and
//	renamed into place, so a reader never sees a partially written file.
//	Adjacency is stored as an ordered list so node and edge order survive
//	the round trip.
//
// Inputs:
//
//	ctx - Context for tracing.
//	paths - Artifact locations. Parent directories are created.
//	ids - The id table to persist.
//	store - The adjacency store to persist.
//
// Outputs:
//
//	error - Non-nil if any artifact could not be written.
func SaveSnapshot(ctx context.Context, paths SnapshotPaths, ids *IDTable, store AdjacencyStore) error {
	_, span := startLoadSpan(ctx, "Snapshot", paths.Adjacency)
	defer span.End()

	entries := make([]adjacencyEntry, 0, store.Len())
	err := store.Range(func(id NodeID, edges []Edge) error {
		entries = append(entries, adjacencyEntry{Node: id, Edges: edges})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("read adjacency store: %w", err)
	}

	toInternal, toExternal := ids.maps()

	writes := []struct {
		path    string
		kind    snapshotKind
		payload any
	}{
		{paths.Adjacency, kindAdjacency, entries},
		{paths.ExternalToInternal, kindExternalToInternal, toInternal},
		{paths.InternalToExternal, kindInternalToExternal, toExternal},
	}
	for _, w := range writes {
		if err := writeSnapshotFile(w.path, w.kind, w.payload); err != nil {
			span.RecordError(err)
			return err
		}
	}

	setLoadSpanResult(span, len(entries), store.EdgeCount(), len(toInternal))
	return nil
}

// LoadSnapshot reads the three artifacts into store and returns the id table.
//
// Description:
//
//	All three files must be present, carry the expected magic, version and
//	kind, match their checksum, decode cleanly, and describe the same id
//	bijection. Any failure is reported as ErrSnapshotUnavailable; callers
//	treat it as a cache miss and discard store.
//
// Inputs:
//
//	ctx - Context for tracing.
//	paths - Artifact locations.
//	store - An empty store receiving the adjacency.
//
// Outputs:
//
//	*IDTable - The restored, unfrozen table.
//	error - ErrSnapshotUnavailable wrapping the cause.
func LoadSnapshot(ctx context.Context, paths SnapshotPaths, store AdjacencyStore) (*IDTable, error) {
	ctx, span := startLoadSpan(ctx, "Snapshot", paths.Adjacency)
	defer span.End()

	start := time.Now()
	ids, err := loadSnapshot(paths, store)
	recordLoadMetrics(ctx, SourceSnapshot, time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	setLoadSpanResult(span, store.Len(), store.EdgeCount(), ids.Len())
	return ids, nil
}

func loadSnapshot(paths SnapshotPaths, store AdjacencyStore) (*IDTable, error) {
	var toInternal map[string]NodeID
	if err := readSnapshotFile(paths.ExternalToInternal, kindExternalToInternal, &toInternal); err != nil {
		return nil, err
	}
	var toExternal map[NodeID]string
	if err := readSnapshotFile(paths.InternalToExternal, kindInternalToExternal, &toExternal); err != nil {
		return nil, err
	}
	ids, err := restoreIDTable(toInternal, toExternal)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}

	var entries []adjacencyEntry
	if err := readSnapshotFile(paths.Adjacency, kindAdjacency, &entries); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if _, err := ids.Decompress(entry.Node); err != nil {
			return nil, fmt.Errorf("%w: adjacency references %w", ErrSnapshotUnavailable, err)
		}
		for _, edge := range entry.Edges {
			if err := store.Index(entry.Node, edge); err != nil {
				return nil, fmt.Errorf("%w: index %s: %w", ErrSnapshotUnavailable, entry.Node, err)
			}
		}
	}
	return ids, nil
}

// encodeSnapshot frames a gob payload with the snapshot header.
func encodeSnapshot(kind snapshotKind, payload any) ([]byte, error) {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode %s snapshot: %w", kind, err)
	}

	buf := make([]byte, snapshotHeaderSize, snapshotHeaderSize+body.Len())
	copy(buf[0:4], snapshotMagic)
	binary.BigEndian.PutUint16(buf[4:6], snapshotVersion)
	buf[6] = byte(kind)
	binary.BigEndian.PutUint32(buf[7:11], crc32.ChecksumIEEE(body.Bytes()))
	return append(buf, body.Bytes()...), nil
}

// decodeSnapshot validates the header of data and decodes its payload into out.
func decodeSnapshot(data []byte, kind snapshotKind, out any) error {
	if len(data) < snapshotHeaderSize {
		return fmt.Errorf("%w: %s snapshot truncated (%d bytes)", ErrSnapshotUnavailable, kind, len(data))
	}
	if string(data[0:4]) != snapshotMagic {
		return fmt.Errorf("%w: %s snapshot has bad magic", ErrSnapshotUnavailable, kind)
	}
	if v := binary.BigEndian.Uint16(data[4:6]); v != snapshotVersion {
		return fmt.Errorf("%w: %s snapshot version %d, want %d", ErrSnapshotUnavailable, kind, v, snapshotVersion)
	}
	if got := snapshotKind(data[6]); got != kind {
		return fmt.Errorf("%w: expected %s snapshot, found %s", ErrSnapshotUnavailable, kind, got)
	}

	payload := data[snapshotHeaderSize:]
	if want, got := binary.BigEndian.Uint32(data[7:11]), crc32.ChecksumIEEE(payload); want != got {
		return fmt.Errorf("%w: %s snapshot checksum mismatch: expected %08x, got %08x",
			ErrSnapshotUnavailable, kind, want, got)
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s snapshot: %w", ErrSnapshotUnavailable, kind, err)
	}
	return nil
}

func writeSnapshotFile(path string, kind snapshotKind, payload any) error {
	data, err := encodeSnapshot(kind, payload)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create snapshot directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s snapshot: %w", kind, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s snapshot: %w", kind, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s snapshot: %w", kind, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("install %s snapshot: %w", kind, err)
	}
	return nil
}

func readSnapshotFile(path string, kind snapshotKind, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s snapshot: %w", ErrSnapshotUnavailable, kind, err)
	}
	return decodeSnapshot(data, kind, out)
}
