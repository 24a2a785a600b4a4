package raster

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	logAdapter "github.com/bft-labs/scanwave/internal/adapters/log"
	"github.com/bft-labs/scanwave/internal/ports"
)

// DefaultDebounce is the quiet period after the last mask change before the
// change callback fires. Slicers write many files in a burst.
const DefaultDebounce = 250 * time.Millisecond

// Watcher monitors a mask directory and fires a callback after changes settle.
type Watcher struct {
	dir      string
	loader   *Loader
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   ports.Logger
}

// NewWatcher creates a watcher for dir. Only files the loader treats as
// candidates trigger onChange.
func NewWatcher(dir string, loader *Loader, debounce time.Duration, onChange func(ctx context.Context), logger ports.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logAdapter.Discard
	}
	return &Watcher{
		dir:      dir,
		loader:   loader,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is canceled. onChange runs on the Run goroutine, so
// callbacks never overlap and none is in flight after Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching mask directory", ports.String("dir", w.dir))

	var (
		timer   *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.loader.IsCandidate(filepath.Base(event.Name)) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("mask changed",
				ports.String("file", event.Name),
				ports.String("op", event.Op.String()),
			)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			settled = timer.C

		case <-settled:
			settled = nil
			w.onChange(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("mask watcher error", ports.Err(err))
		}
	}
}
