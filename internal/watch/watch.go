// Package watch regenerates notes while source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notegen/internal/batch"
	"github.com/starford/notegen/internal/checksum"
	"github.com/starford/notegen/internal/models"
)

// DefaultDebounce coalesces the burst of events a save produces.
const DefaultDebounce = 500 * time.Millisecond

// Runner processes a mini-batch. *batch.Orchestrator implements it.
type Runner interface {
	RunFiles(ctx context.Context, paths []string, opts batch.Options) *models.BatchProcessResult
}

// Config describes what to watch.
type Config struct {
	// Root is the vault directory watched recursively.
	Root string
	// NoteRoot is skipped so written notes never feed back into the watcher.
	NoteRoot string
	// Supports filters the files worth processing.
	Supports func(path string) bool
	Debounce time.Duration
	// Options are passed to every mini-batch. Force is always set: a changed
	// source regenerates its note.
	Options batch.Options
}

// Watcher turns file events into mini-batches.
type Watcher struct {
	cfg    Config
	run    Runner
	logger *slog.Logger
	// OnBatch, if non-nil, is called after each mini-batch.
	OnBatch func(*models.BatchProcessResult)

	seen map[string]string
}

// New returns a Watcher. Supports defaults to accepting every file.
func New(cfg Config, run Runner, logger *slog.Logger) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("watch: root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	cfg.Root = root
	if cfg.NoteRoot != "" {
		cfg.NoteRoot = filepath.Clean(cfg.NoteRoot)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Supports == nil {
		cfg.Supports = func(string) bool { return true }
	}
	cfg.Options.Pipeline.Force = true
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:    cfg,
		run:    run,
		logger: logger.With(slog.String("component", "watch")),
		seen:   make(map[string]string),
	}, nil
}

// Run watches until ctx is cancelled. New directories are added as they
// appear. A file whose content did not change since its last mini-batch is
// not dispatched again.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := w.addDirs(fw, w.cfg.Root); err != nil {
		return fmt.Errorf("watch: add %s: %w", w.cfg.Root, err)
	}
	w.logger.Info("watch: started", slog.String("root", w.cfg.Root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.cfg.Debounce)
		} else {
			timer.Reset(w.cfg.Debounce)
		}
		timerCh = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watch: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			w.flush(ctx, pending)
			clear(pending)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.addDirs(fw, ev.Name); addErr != nil {
						w.logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// Files may have landed before the directory was watched.
					for _, p := range w.filesUnder(ev.Name) {
						pending[p] = struct{}{}
					}
					schedule()
					continue
				}
			}
			// Rename reports the old name; the new one arrives as Create.
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					delete(w.seen, ev.Name)
				}
				continue
			}
			if !w.cfg.Supports(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush dispatches the pending files whose content changed.
func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	var paths []string
	sums := make(map[string]string, len(pending))
	for p := range pending {
		sum, err := checksum.File(p)
		if err != nil {
			// Gone again before the debounce fired.
			continue
		}
		if w.seen[p] == sum {
			continue
		}
		sums[p] = sum
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return
	}
	slices.Sort(paths)

	w.logger.Info("watch: dispatching", slog.Int("files", len(paths)))
	res := w.run.RunFiles(ctx, paths, w.cfg.Options)
	failed := make(map[string]bool, len(res.FailedPaths))
	for _, p := range res.FailedPaths {
		failed[p] = true
	}
	for _, p := range paths {
		// Failed files stay eligible so the next save retries them.
		if !failed[p] {
			w.seen[p] = sums[p]
		}
	}
	if w.OnBatch != nil {
		w.OnBatch(res)
	}
}

// ignored reports whether path lies in a hidden entry or the note root.
func (w *Watcher) ignored(path string) bool {
	clean := filepath.Clean(path)
	if w.cfg.NoteRoot != "" && (clean == w.cfg.NoteRoot || strings.HasPrefix(clean, w.cfg.NoteRoot+string(filepath.Separator))) {
		return true
	}
	rel, err := filepath.Rel(w.cfg.Root, clean)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// addDirs adds root and all its visible subdirectories to fw.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.cfg.Root && w.ignored(p) {
			return fs.SkipDir
		}
		return fw.Add(p)
	})
}

func (w *Watcher) filesUnder(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.ignored(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.cfg.Supports(p) {
			out = append(out, p)
		}
		return nil
	})
	return out
}
