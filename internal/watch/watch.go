// Package watch re-runs a verification whenever a captured log file is
// rewritten. It is a trigger only: every run reads a complete snapshot.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"logcontract/internal/logging"
)

// DefaultDebounce is how long a path must be quiet before the callback runs.
const DefaultDebounce = 500 * time.Millisecond

// tick is the resolution of the debounce scan.
const tick = 50 * time.Millisecond

// Callback runs one verification for the changed path.
type Callback func(ctx context.Context, path string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// Watcher watches one or more files through their parent directories.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	targets     map[string]bool
	pending     map[string]time.Time
	debounceDur time.Duration
	onChange    Callback
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceDur = d
		}
	}
}

// New creates a watcher for paths. onChange is called once per settled burst
// of writes to a path, never concurrently with itself.
func New(paths []string, onChange Callback, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths to watch")
	}
	if onChange == nil {
		return nil, errors.New("nil callback")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		targets:     make(map[string]bool),
		pending:     make(map[string]time.Time),
		debounceDur: DefaultDebounce,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		w.targets[abs] = true
	}
	return w, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for p := range w.targets {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.WatchWarn("failed to create %s: %v", dir, err)
		}
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			w.watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logging.Watch("watching directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name, err := filepath.Abs(event.Name)
	if err != nil || !w.targets[name] {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	default:
		// Removal and rename leave nothing to read; the next create re-arms.
		return
	}
	logging.Get(logging.CategoryWatch).Debug("%s event for %s", eventType, name)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventType = eventType
	w.pending[name] = time.Now()
	w.mu.Unlock()
}

// flush runs the callback for every path quiet for the debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		if ctx.Err() != nil {
			return
		}
		logging.Watch("re-running verification for %s", path)
		w.onChange(ctx, path)
		w.mu.Lock()
		w.stats.Runs++
		w.mu.Unlock()
	}
}

// GetStats returns a snapshot of the watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching reports whether the event loop is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
