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
	"fmt"
	"strconv"
	"sync"
)

// IDRadix is the radix internal ids are rendered in.
const IDRadix = 36

// IDTable is a bijective mapping between external node ids and compact
// internal ids.
//
// Description:
//
//	The first time an external id is compressed it is assigned the next
//	value of a monotonically increasing counter (starting at 1), rendered in
//	base 36. Assigned ids are never reassigned or reused, and there is no
//	removal operation.
//
// Thread Safety:
//
//	The counter and both maps are guarded as one unit by a single RWMutex, so
//	concurrent allocations of the same new id always agree. After Freeze()
//	the table only answers lookups: Compress of an unseen id fails with
//	ErrUnknownID instead of allocating.
type IDTable struct {
	mu         sync.RWMutex
	toInternal map[string]NodeID
	toExternal map[NodeID]string
	counter    uint64
	frozen     bool
}

// NewIDTable creates an empty, unfrozen table.
func NewIDTable() *IDTable {
	return &IDTable{
		toInternal: make(map[string]NodeID),
		toExternal: make(map[NodeID]string),
	}
}

// Compress returns the internal id for an external id, allocating one if needed.
//
// Inputs:
//
//	external - The external id, used as-is (callers normalize case).
//
// Outputs:
//
//	NodeID - The existing or newly allocated internal id.
//	error - ErrUnknownID (wrapping ErrIDTableFrozen) if the id is unseen and the table is frozen.
//
// Thread Safety: Safe for concurrent use.
func (t *IDTable) Compress(external string) (NodeID, error) {
	t.mu.RLock()
	id, ok := t.toInternal[external]
	t.mu.RUnlock()
	if ok {
		return id, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Another writer may have allocated it between the two locks.
	if id, ok := t.toInternal[external]; ok {
		return id, nil
	}
	if t.frozen {
		return "", fmt.Errorf("%w: %q: %w", ErrUnknownID, external, ErrIDTableFrozen)
	}

	t.counter++
	id = NodeID(strconv.FormatUint(t.counter, IDRadix))
	t.toInternal[external] = id
	t.toExternal[id] = external
	return id, nil
}

// Lookup returns the internal id for an external id without allocating.
//
// Thread Safety: Safe for concurrent use.
func (t *IDTable) Lookup(external string) (NodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.toInternal[external]
	return id, ok
}

// Decompress returns the external id for an internal id.
//
// Outputs:
//
//	string - The external id.
//	error - ErrUnknownID if the internal id was never assigned.
//
// Thread Safety: Safe for concurrent use.
func (t *IDTable) Decompress(id NodeID) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	external, ok := t.toExternal[id]
	if !ok {
		return "", fmt.Errorf("%w: internal id %q", ErrUnknownID, id)
	}
	return external, nil
}

// Freeze stops further id allocation.
func (t *IDTable) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (t *IDTable) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Len returns the number of mapped ids.
func (t *IDTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.toInternal)
}

// Counter returns the last allocated counter value.
func (t *IDTable) Counter() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counter
}

// maps returns copies of both directions, used by snapshots.
func (t *IDTable) maps() (map[string]NodeID, map[NodeID]string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	toInternal := make(map[string]NodeID, len(t.toInternal))
	for k, v := range t.toInternal {
		toInternal[k] = v
	}
	toExternal := make(map[NodeID]string, len(t.toExternal))
	for k, v := range t.toExternal {
		toExternal[k] = v
	}
	return toInternal, toExternal
}

// restoreIDTable rebuilds a table from its two persisted directions.
//
// Description:
//
//	Verifies that both maps describe the same bijection and that every
//	internal id is a valid base-36 counter value. The counter resumes at the
//	largest restored value, so later allocations never reuse an id.
//
// Outputs:
//
//	*IDTable - The restored, unfrozen table.
//	error - Non-nil if the maps disagree or an internal id is malformed.
func restoreIDTable(toInternal map[string]NodeID, toExternal map[NodeID]string) (*IDTable, error) {
	if len(toInternal) != len(toExternal) {
		return nil, fmt.Errorf("id maps differ in size: %d external, %d internal",
			len(toInternal), len(toExternal))
	}

	var maxCounter uint64
	for external, id := range toInternal {
		back, ok := toExternal[id]
		if !ok || back != external {
			return nil, fmt.Errorf("id maps disagree on %q -> %q", external, id)
		}
		n, err := strconv.ParseUint(string(id), IDRadix, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("malformed internal id %q", id)
		}
		if n > maxCounter {
			maxCounter = n
		}
	}

	if toInternal == nil {
		toInternal = make(map[string]NodeID)
	}
	if toExternal == nil {
		toExternal = make(map[NodeID]string)
	}
	return &IDTable{
		toInternal: toInternal,
		toExternal: toExternal,
		counter:    maxCounter,
	}, nil
}
