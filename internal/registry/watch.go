package registry

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
)

// Watcher watches a worker-capability manifest file for dev-mode edits and
// invokes onReload with a freshly built Registry each time the file changes.
// It never mutates a Registry already in use by a running turn — callers
// swap in the Registry passed to onReload, matching the process-wide,
// read-only-after-startup contract in spec §4.2.
type Watcher struct {
	path     string
	onReload func(*Registry)
	logger   telemetry.Logger
}

// NewWatcher constructs a Watcher for the manifest at path. onReload is
// invoked with a freshly loaded Registry whenever the file is written.
func NewWatcher(path string, onReload func(*Registry), logger telemetry.Logger) *Watcher {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Watcher{path: path, onReload: onReload, logger: logger}
}

// Run blocks, watching the manifest until ctx is cancelled. Callers typically
// invoke this from a background goroutine during startup.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fresh := New()
			if err := LoadFile(fresh, w.path); err != nil {
				w.logger.Warn(ctx, "registry manifest reload failed", "path", w.path, "error", err.Error())
				continue
			}
			w.onReload(fresh)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "registry manifest watch error", "error", err.Error())
		}
	}
}
