// Package watch re-triggers indexing when documents or scripts change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of events, such as an editor's
// write-rename-chmod sequence, into one change.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches a set of directories, non-recursively.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	dirs     map[string]bool

	// OnError receives watcher errors; nil drops them.
	OnError func(error)
	// Skip drops events for paths it reports true for, such as files the
	// onChange callback writes itself. Nil keeps every event.
	Skip func(path string) bool
}

// New creates a Watcher. A debounce of zero means DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{watcher: w, debounce: debounce, dirs: make(map[string]bool)}, nil
}

// Add watches dir. Adding the same directory twice is a no-op.
func (w *Watcher) Add(dir string) error {
	dir = filepath.Clean(dir)
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Dirs returns the watched directories, sorted.
func (w *Watcher) Dirs() []string {
	out := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Run blocks until ctx is done, calling onChange with the sorted, unique
// paths touched during each quiet period. Chmod-only events and skipped
// paths are ignored.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || (w.Skip != nil && w.Skip(event.Name)) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			onChange(paths)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
