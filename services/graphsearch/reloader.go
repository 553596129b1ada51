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
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DatasetChange is a debounced change to the watched dataset file.
type DatasetChange struct {
	// Path is the absolute path of the dataset.
	Path string

	// Op is the type of change.
	Op FileOp

	// Time is when the change was detected.
	Time time.Time
}

// FileOp represents the type of file operation.
type FileOp int

const (
	// FileOpCreate indicates the file was created, or renamed into place.
	FileOpCreate FileOp = iota

	// FileOpWrite indicates the file was modified.
	FileOpWrite
)

// String returns the string representation of the operation.
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "create"
	case FileOpWrite:
		return "write"
	default:
		return "unknown"
	}
}

// DatasetChangeHandler is called once per debounce window with the
// changes collected in it. It runs on the watcher's goroutine.
type DatasetChangeHandler func(ctx context.Context, changes []DatasetChange)

// DatasetWatcherOptions configures the DatasetWatcher.
type DatasetWatcherOptions struct {
	// DebounceWindow is how long to wait for more changes before triggering.
	// Default: 500ms
	DebounceWindow time.Duration

	// BufferSize is the size of the change buffer channel.
	// Default: 64
	BufferSize int

	// Logger receives watcher errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultDatasetWatcherOptions returns sensible defaults.
func DefaultDatasetWatcherOptions() DatasetWatcherOptions {
	return DatasetWatcherOptions{
		DebounceWindow: 500 * time.Millisecond,
		BufferSize:     64,
	}
}

// DatasetWatcher watches a single dataset file and reports debounced changes.
//
// # Description
//
// The parent directory is watched rather than the file itself, because
// tools that replace a file by renaming a temporary over it would otherwise
// detach the watch. Events for other files in the directory are ignored.
// Removal of the dataset is ignored too: the running graph stays in place
// until a new file appears.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type DatasetWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handler  DatasetChangeHandler
	debounce time.Duration
	logger   *slog.Logger

	changes  chan DatasetChange
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewDatasetWatcher creates a watcher for the dataset at path.
//
// # Inputs
//
//   - path: Dataset file. Need not exist yet; its directory must.
//   - handler: Function called with batched changes after debounce.
//   - opts: Optional configuration (nil uses defaults).
//
// # Outputs
//
//   - *DatasetWatcher: Ready-to-use watcher (call Start to begin watching).
//   - error: Non-nil if the path cannot be resolved or fsnotify fails.
func NewDatasetWatcher(path string, handler DatasetChangeHandler, opts *DatasetWatcherOptions) (*DatasetWatcher, error) {
	if opts == nil {
		defaults := DefaultDatasetWatcherOptions()
		opts = &defaults
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDatasetWatcherOptions().DebounceWindow
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultDatasetWatcherOptions().BufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve dataset path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &DatasetWatcher{
		path:     abs,
		watcher:  watcher,
		handler:  handler,
		debounce: opts.DebounceWindow,
		logger:   logger.With(slog.String("component", "dataset_watcher")),
		changes:  make(chan DatasetChange, opts.BufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched dataset.
func (w *DatasetWatcher) Path() string {
	return w.path
}

// Start begins watching.
//
// # Description
//
// Spawns two goroutines: the event processor, which filters fsnotify events
// down to the dataset file, and the debouncer, which batches them and calls
// the handler. Both exit when Stop is called or ctx is cancelled.
//
// # Outputs
//
//   - error: Non-nil if the dataset directory cannot be watched.
func (w *DatasetWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("Watching dataset", slog.String("path", w.path), slog.Duration("debounce", w.debounce))
	return nil
}

// Stop stops the watcher. A handler call already in progress finishes first.
func (w *DatasetWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		started := w.watching
		w.watching = false
		w.mu.Unlock()

		if started {
			<-w.stopped
		}
	})
}

// IsWatching returns true if the watcher is currently active.
func (w *DatasetWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// processEvents converts fsnotify events for the dataset into DatasetChange.
func (w *DatasetWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			op, relevant := convertOp(event.Op)
			if !relevant {
				continue
			}

			select {
			case w.changes <- DatasetChange{Path: w.path, Op: op, Time: time.Now()}:
			default:
				// Buffer full; a flush is already pending.
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Dataset watcher error", slog.String("error", err.Error()))
		}
	}
}

// convertOp maps fsnotify ops to FileOp. Remove, rename-away and chmod are
// not relevant.
func convertOp(op fsnotify.Op) (FileOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return FileOpCreate, true
	case op.Has(fsnotify.Write):
		return FileOpWrite, true
	default:
		return 0, false
	}
}

// debounceLoop batches changes and calls handler after the debounce window.
// Pending changes are dropped on shutdown.
func (w *DatasetWatcher) debounceLoop(ctx context.Context) {
	defer close(w.stopped)

	var batch []DatasetChange
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-w.done:
			stopTimer()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			if len(batch) > 0 && w.handler != nil {
				w.handler(ctx, batch)
			}
			batch = nil
		}
	}
}
