// Package watcher reports changes to a small set of files, such as the
// config file, with debouncing so an editor's save burst yields a single
// notification.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/gerritnav/internal/log"
)

// Watcher monitors files for changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]struct{}
	dirs      []string
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Paths are the files to watch. Their directories are watched so that
	// files replaced by rename are still seen.
	Paths       []string
	DebounceDur time.Duration
}

// DefaultConfig watches path with a 300ms debounce.
func DefaultConfig(path string) Config {
	return Config{
		Paths:       []string{path},
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a watcher. Call Start to begin receiving notifications.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("watcher needs at least one path")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		files:     make(map[string]struct{}, len(cfg.Paths)),
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	seen := map[string]bool{}
	for _, p := range cfg.Paths {
		p = filepath.Clean(p)
		w.files[p] = struct{}{}
		if dir := filepath.Dir(p); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start begins watching. The returned channel receives one signal per
// debounced burst of changes; signals are dropped while one is pending.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, dir := range w.dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			log.Debug(log.CatWatcher, "file changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}
