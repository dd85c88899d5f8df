// Package confwatch reloads the engine configuration when cel.conf changes on
// disk.
package confwatch

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reloader is what the watcher drives on a config change.
type Reloader interface {
	Reload(path string) error
}

// Watcher monitors one config file and reloads it after changes settle.
// Editors often replace the file (write temp + rename), so the parent
// directory is watched and events are filtered by name.
type Watcher struct {
	target   Reloader
	path     string
	log      zerolog.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	reloads  atomic.Int64
	failures atomic.Int64

	// Debounce: coalesce rapid Create+Write events on the file.
	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

func New(target Reloader, path string, log zerolog.Logger) *Watcher {
	return &Watcher{
		target: target,
		path:   path,
		log:    log.With().Str("component", "confwatch").Str("path", path).Logger(),
	}
}

// Start begins watching. Stop or parent context cancellation ends it.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	go w.watchLoop(ctx)

	w.log.Info().Msg("config watcher started")
	return nil
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.log.Info().
		Int64("reloads", w.reloads.Load()).
		Int64("failures", w.failures.Load()).
		Msg("config watcher stopped")
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleReload debounces by 500ms so a temp-write-rename sequence triggers
// one reload after the file is fully in place.
func (w *Watcher) scheduleReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		w.debounceTimer = nil
		w.debounceMu.Unlock()

		if err := w.target.Reload(w.path); err != nil {
			w.failures.Add(1)
			return
		}
		w.reloads.Add(1)
		w.log.Info().Msg("configuration reloaded")
	})
}
