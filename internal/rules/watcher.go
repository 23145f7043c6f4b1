package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
)

const defaultSettle = 150 * time.Millisecond

// Watcher reloads an Engine whenever its rules file changes on disk.
type Watcher struct {
	engine *Engine
	log    *slog.Logger
	clock  clockwork.Clock
	settle time.Duration

	// reloaded is called after every reload attempt; tests hook it.
	reloaded func(err error)
}

func NewWatcher(engine *Engine, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		engine: engine,
		log:    logger.With("component", "rules.Watcher"),
		clock:  clockwork.NewRealClock(),
		settle: defaultSettle,
	}
}

// Run watches the directory holding the rules file until ctx is done.
// Editors often save by replacing the file, so the directory is watched and
// events are filtered by name. Bursts of events collapse into one reload.
func (w *Watcher) Run(ctx context.Context) error {
	path := w.engine.Path()
	if path == "" {
		return errors.New("rules engine has no file to watch")
	}
	target := filepath.Clean(path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rules watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			w.log.Warn("failed to close rules watcher", "error", err)
		}
	}()

	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}
	w.log.Info("watching rules file", "path", target)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			settle = w.clock.After(w.settle)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("rules watcher error", "error", err)
		case <-settle:
			settle = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	err := w.engine.Reload()
	if err != nil {
		w.log.Warn("keeping previous rules", "error", err)
	} else {
		w.log.Info("rules reloaded", "count", w.engine.Len())
	}
	if w.reloaded != nil {
		w.reloaded(err)
	}
}
