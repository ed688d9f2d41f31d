// Package watch monitors a directory tree and notifies subscribers with
// debounced batches of changed files.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

// DefaultDebounce is the quiet period after the last event before a batch is delivered.
const DefaultDebounce = 500 * time.Millisecond

// ChangeHandler is invoked with the sorted, de-duplicated paths that changed
// during one debounce window.
type ChangeHandler func(ctx context.Context, paths []string)

// Filter reports whether a file path is of interest.
type Filter func(path string) bool

// Watcher watches a directory tree with fsnotify. Newly created
// subdirectories are added to the watch list as they appear.
type Watcher struct {
	root     string
	debounce time.Duration
	filter   Filter
	fsw      *fsnotify.Watcher

	mu       sync.RWMutex
	handlers map[string]ChangeHandler
}

// New creates a watcher for root and all of its subdirectories.
// A nil filter accepts every file; a non-positive debounce uses DefaultDebounce.
func New(root string, debounce time.Duration, filter Filter) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		debounce: debounce,
		filter:   filter,
		fsw:      fsw,
		handlers: make(map[string]ChangeHandler),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Subscribe registers a change handler under id, replacing any previous one.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Infof("Watcher: subscribed handler '%s'", id)
}

// Unsubscribe removes the handler registered under id.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.handlers[id]; exists {
		delete(w.handlers, id)
		logger.Infof("Watcher: unsubscribed handler '%s'", id)
	}
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// Run delivers batches until ctx is done, then closes the underlying watcher.
// Handlers run on the Run goroutine, so a slow handler delays the next batch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	logger.Infow("Watcher: started", "root", w.root, "debounce", w.debounce.String())

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Watcher: stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event, pending) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("Watcher: fsnotify error", "error", err.Error())

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
			w.notify(ctx, paths)
		}
	}
}

// handleEvent records interesting events and reports whether the batch changed.
func (w *Watcher) handleEvent(event fsnotify.Event, pending map[string]struct{}) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(event.Name); err != nil {
				logger.Warnw("Watcher: failed to watch directory", "path", event.Name, "error", err.Error())
			}
		}
		return false
	}
	if !w.filter(event.Name) {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}

func (w *Watcher) notify(ctx context.Context, paths []string) {
	w.mu.RLock()
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	logger.Infow("Watcher: files changed", "count", len(paths))
	for _, h := range handlers {
		h(ctx, paths)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}
