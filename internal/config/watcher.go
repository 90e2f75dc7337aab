package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arcnova-labs/arcnova/internal/log"
)

// Watcher reloads a Store when its config file changes on disk, so keys
// edited externally (or via the API) take effect without a restart.
// Events are debounced because editors commonly emit several write events
// for a single save.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher

	debounce time.Duration
	timerMu  sync.Mutex
	timer    *time.Timer

	stop chan struct{}
}

// Watch starts watching the store's config file directory.
func Watch(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		store:    store,
		watcher:  fw,
		debounce: 100 * time.Millisecond,
		stop:     make(chan struct{}),
	}

	// Watch the directory, not the file: the file may not exist yet, and
	// atomic saves replace it.
	dir := filepath.Dir(store.Path())
	if dir == "" {
		dir = "."
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.timerMu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, func() {
				log.Info("user config changed, reloading", "path", w.store.Path())
				if err := w.store.Reload(); err != nil {
					log.Warn("config reload failed", "error", err)
				}
			})
			w.timerMu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}
