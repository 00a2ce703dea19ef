package ruleconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last file event before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Reloader is called after rule files change. *Source implements it.
type Reloader interface {
	Reload() (int, error)
}

// Watcher reloads rules when files under a path change.
//
// A single file is watched through its parent directory so editors that
// replace files by rename keep triggering reloads.
type Watcher struct {
	path     string
	target   string // base name when path is a file, empty for directories
	debounce time.Duration
	reloader Reloader
	logger   zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher returns a watcher for path. A non-positive debounce uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, reloader Reloader, logger zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		reloader: reloader,
		logger:   logger,
	}
}

// Run watches until ctx is cancelled. Reload errors are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("failed to stat rule path: %w", err)
	}
	dir := w.path
	if !info.IsDir() {
		dir = filepath.Dir(w.path)
		w.target = filepath.Base(w.path)
	}
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Info().
		Str("path", w.path).
		Dur("debounce", w.debounce).
		Msg("rule watcher started")

	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("rule watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Stringer("op", event.Op).Msg("rule file event")
			w.trigger()

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error().Err(err).Msg("rule watcher error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if w.target != "" {
		return name == w.target
	}
	return isRuleFile(name)
}

// trigger restarts the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if _, err := w.reloader.Reload(); err != nil {
		w.logger.Warn().Err(err).Msg("rule reload after file change failed")
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
