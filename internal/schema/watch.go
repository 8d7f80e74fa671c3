package schema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the store whenever its backing file changes, until ctx is
// cancelled. The parent directory is watched because editors often replace
// files by rename. onReload, if non-nil, is called after each successful
// reload.
func Watch(ctx context.Context, s *Store, logger *slog.Logger, onReload func(*Catalog)) error {
	if s.Path() == "" {
		return fmt.Errorf("schema: watch: catalog has no backing file")
	}
	target, err := filepath.Abs(s.Path())
	if err != nil {
		return fmt.Errorf("schema: watch: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schema: watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("schema: watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("schema watcher: started", slog.String("path", target))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("schema watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			c, err := s.Reload()
			if err != nil {
				logger.Warn("schema watcher: reload rejected, keeping previous catalog",
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("schema watcher: catalog reloaded",
				slog.String("version", c.Version()),
				slog.Int("templates", len(c.Types())))
			if onReload != nil {
				onReload(c)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			timerCh = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("schema watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
