// Package watch implements "are update --watch" (Supplemented Feature S1):
// a debounced filesystem watcher that re-runs the update operation once a
// burst of edits settles. Grounded on index/watcher.go's
// fsnotify-plus-debounce-ticker shape, reworked from per-file reindexing
// into a single coalesced trigger, since the update operation already
// re-walks and re-classifies every source itself.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"
)

// defaultSkipDirs mirrors internal/discovery's walk skip-list, so the
// watcher never reacts to edits under directories that were never
// documented in the first place.
var defaultSkipDirs = map[string]bool{".git": true, "vendor": true, "node_modules": true, ".are": true}

// Options configures a Watcher.
type Options struct {
	Root          string
	DebounceMs    int
	ExtraSkipDirs []string
	Logger        arbor.ILogger
}

// OnChange is invoked once a burst of filesystem edits has settled. It
// should run the update operation; any error it returns is logged, not
// propagated, since a single failed re-run must not kill the watch loop.
type OnChange func(ctx context.Context) error

// Watcher recursively watches Root for file changes and coalesces bursts of
// edits into a single OnChange call after DebounceMs of quiet.
type Watcher struct {
	root     string
	debounce time.Duration
	skipDirs map[string]bool
	fsw      *fsnotify.Watcher
	logger   arbor.ILogger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	pendingMu sync.Mutex
	pending   map[string]time.Time
}

// New creates a Watcher bound to one project root. The underlying fsnotify
// watcher is opened but directories are not added until Run.
func New(opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	debounce := time.Duration(opts.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	skip := make(map[string]bool, len(defaultSkipDirs)+len(opts.ExtraSkipDirs))
	for d := range defaultSkipDirs {
		skip[d] = true
	}
	for _, d := range opts.ExtraSkipDirs {
		skip[d] = true
	}

	log := opts.Logger
	if log == nil {
		log = arbor.NewLogger()
	}

	return &Watcher{
		root:     opts.Root,
		debounce: debounce,
		skipDirs: skip,
		fsw:      fsw,
		logger:   log,
		stopCh:   make(chan struct{}),
		pending:  make(map[string]time.Time),
	}, nil
}

// Run watches the project root until ctx is cancelled or Stop is called,
// invoking onChange each time a debounced burst of edits settles. Run
// blocks; call it from its own goroutine.
func (w *Watcher) Run(ctx context.Context, onChange OnChange) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addDirectories(); err != nil {
		return fmt.Errorf("add directories: %w", err)
	}

	go w.processEvents()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			if w.drainSettled() {
				if err := onChange(ctx); err != nil {
					w.logger.Warn().Err(err).Msg("watch-triggered update failed")
				}
			}
		}
	}
}

// Stop halts the watch loop and closes the underlying fsnotify watcher.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	_ = w.fsw.Close()
}

// addDirectories recursively registers every non-skipped directory under
// root with fsnotify. fsnotify has no recursive-watch mode, so every
// directory needs its own explicit Add.
func (w *Watcher) addDirectories() error {
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // an unreadable entry is skipped, not fatal
		}
		if !info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && w.skipDirs[filepath.Base(rel)] {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn().Err(err).Str("dir", path).Msg("cannot watch directory")
		}
		return nil
	})
}

// processEvents records every write/create/remove/rename event's timestamp
// into the pending set, overwriting any earlier timestamp for the same
// path so a steady stream of edits keeps pushing its settle time out.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMu.Unlock()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// drainSettled clears every pending path whose last edit is at least
// debounce old, reporting whether any were cleared. The update operation
// re-walks the whole project itself, so the watcher only needs to know
// "something settled", not which path.
func (w *Watcher) drainSettled() bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if len(w.pending) == 0 {
		return false
	}
	now := time.Now()
	settled := false
	for path, ts := range w.pending {
		if now.Sub(ts) >= w.debounce {
			delete(w.pending, path)
			settled = true
		}
	}
	return settled
}
