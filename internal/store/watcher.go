package store

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"wikai/internal/logging"
)

// Watcher watches the patterns directory for out-of-band file changes
// (external tools adding or deleting pattern files) and triggers a
// library rescan, keeping the cache and the ID high-water mark fresh.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	library  *Library
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Events   int
	Rescans  int
	Errors   int
	LastPath string
}

// NewWatcher creates a Watcher for the library's patterns directory.
func NewWatcher(library *Library, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  fsw,
		library:  library,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watcher runs in a goroutine
// until Stop is called or the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.library.Dir()); err != nil {
		return err
	}
	logging.Store("Watching patterns directory: %s", w.library.Dir())

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the run loop to exit.
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
	w.watcher.Close()
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	// Rapid external writes collapse into one rescan per debounce window.
	var timer *time.Timer
	var timerC <-chan time.Time

	scheduleRescan := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isPatternFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			w.stats.Events++
			w.stats.LastPath = event.Name
			w.mu.Unlock()

			logging.StoreDebug("Watcher event: %s %s", event.Op, event.Name)
			scheduleRescan()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			logging.StoreWarn("Watcher error: %v", err)

		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.library.Rescan(); err != nil {
				logging.StoreWarn("Watcher rescan failed: %v", err)
				continue
			}
			w.mu.Lock()
			w.stats.Rescans++
			w.mu.Unlock()
		}
	}
}

// isPatternFile filters watcher events down to committed pattern files,
// ignoring temp files from in-flight atomic writes.
func isPatternFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
