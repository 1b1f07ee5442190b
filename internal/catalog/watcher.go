package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads the Store whenever the configuration file changes.
// Editors often write a file in several steps, so events are debounced.
type Watcher struct {
	store    *Store
	path     string
	load     Loader
	debounce time.Duration
	logger   infralogger.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher watches path and reloads through load. A nil load reads path.
func NewWatcher(store *Store, path string, load Loader, log infralogger.Logger) *Watcher {
	if load == nil {
		load = FileLoader(path)
	}
	if log == nil {
		log = infralogger.NewNop()
	}
	return &Watcher{
		store:    store,
		path:     filepath.Clean(path),
		load:     load,
		debounce: defaultDebounce,
		logger:   log,
	}
}

// WithDebounce overrides the quiet period before reloading.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Start begins watching in the background. It is a no-op when already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	// Watch the directory: atomic saves replace the file inode.
	if err = fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	go w.run(ctx)

	w.logger.Info("Watching configuration file", infralogger.String("path", w.path))
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	fw := w.watcher
	w.mu.Unlock()

	<-done
	if err := fw.Close(); err != nil {
		w.logger.Warn("Closing file watcher failed", infralogger.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

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
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", infralogger.Error(err))
		case <-timer.C:
			if _, err := w.store.ReloadFrom(ctx, w.load); err != nil {
				w.logger.Warn("Keeping previous configuration", infralogger.Error(err))
			}
		}
	}
}
