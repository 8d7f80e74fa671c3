// Package batch runs the document pipeline over many files with bounded
// concurrency and aggregates the outcome of a run.
package batch

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/ledger"
	"github.com/starford/notegen/internal/metrics"
	"github.com/starford/notegen/internal/models"
	"github.com/starford/notegen/internal/pipeline"
	"github.com/starford/notegen/internal/progress"
)

// Defaults applied when Config leaves a bound at zero.
const (
	DefaultMaxFileParallelism = 2
	DefaultFileRateLimit      = 200 * time.Millisecond
)

// Config bounds a run.
type Config struct {
	MaxFileParallelism int
	// FileRateLimit is the minimum spacing between file starts. Negative
	// disables staggering.
	FileRateLimit time.Duration
	// FailedListPath is where failed source paths are persisted, one per
	// line. Empty disables persistence and retry.
	FailedListPath string
}

// Options are the per-run switches.
type Options struct {
	// Input is a directory to walk or a single file.
	Input       string
	DryRun      bool
	RetryFailed bool
	Pipeline    pipeline.Options
}

// Ledger is the part of the run ledger the orchestrator uses.
type Ledger interface {
	ledger.Recorder
	FailuresByStage(ctx context.Context, runID string) (map[string]int, error)
}

// Orchestrator dispatches files to a pipeline.Processor.
type Orchestrator struct {
	proc     *pipeline.Processor
	cfg      Config
	reporter progress.Reporter
	ledger   Ledger
	metrics  *metrics.Run
	logger   *slog.Logger
	newID    func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter sets the progress event sink.
func WithReporter(r progress.Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithLedger records every finished item in l.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// WithMetrics records every finished item in m.
func WithMetrics(m *metrics.Run) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New returns an Orchestrator over proc.
func New(proc *pipeline.Processor, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxFileParallelism <= 0 {
		cfg.MaxFileParallelism = DefaultMaxFileParallelism
	}
	if cfg.FileRateLimit == 0 {
		cfg.FileRateLimit = DefaultFileRateLimit
	}
	o := &Orchestrator{
		proc:     proc,
		cfg:      cfg,
		reporter: progress.Discard,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("component", "batch"))
	return o
}

// Run enumerates opts.Input (or the persisted failed list in retry mode),
// processes every file and persists the new failed list.
//
// Per-file failures are counted, never returned. A non-nil error means the
// run could not start or its failed list could not be saved.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*models.BatchProcessResult, error) {
	start := time.Now()
	runID := o.newID()

	var (
		paths []string
		err   error
	)
	if opts.RetryFailed {
		paths, err = o.loadFailed()
	} else {
		paths, err = o.enumerate(opts.Input)
	}
	if err != nil {
		if !apperr.Is(err, apperr.ErrInputNotFound) {
			return nil, err
		}
		o.logger.Error("batch: input not found", slog.String("input", opts.Input), slog.String("error", err.Error()))
		r := &models.BatchProcessResult{
			RunID:              runID,
			Failed:             1,
			FailedPaths:        []string{opts.Input},
			TotalBatchDuration: time.Since(start),
		}
		r.ComputeAverages()
		if !opts.DryRun {
			if err := o.saveFailed(r.FailedPaths); err != nil {
				return r, err
			}
		}
		return r, nil
	}

	result := o.run(ctx, runID, opts, paths, start)

	if !opts.DryRun {
		if err := o.saveFailed(result.FailedPaths); err != nil {
			return result, err
		}
	}
	return result, nil
}

// RunFiles processes an explicit list of files as one mini-batch. The failed
// list is left untouched. Watch mode uses it for changed files.
func (o *Orchestrator) RunFiles(ctx context.Context, paths []string, opts Options) *models.BatchProcessResult {
	return o.run(ctx, o.newID(), opts, paths, time.Now())
}

// FailureBreakdown returns failed items of a run per failing stage. Without
// a ledger it returns nil.
func (o *Orchestrator) FailureBreakdown(ctx context.Context, runID string) map[string]int {
	if o.ledger == nil {
		return nil
	}
	m, err := o.ledger.FailuresByStage(ctx, runID)
	if err != nil {
		o.logger.Warn("batch: failure breakdown", slog.String("error", err.Error()))
		return nil
	}
	return m
}

// accumulator aggregates finished items. Workers share one instance.
type accumulator struct {
	mu sync.Mutex
	r  models.BatchProcessResult
}

func (a *accumulator) add(item *models.QueueItem) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case item.Status == models.StatusFailed:
		a.r.Failed++
		a.r.FailedPaths = append(a.r.FailedPaths, item.Path)
	case item.Skipped:
		a.r.Skipped++
	default:
		a.r.Processed++
	}
	if item.Summarized {
		a.r.TotalSummaryDuration += item.SummaryDuration
		a.r.SummaryCount++
	}
	a.r.TotalTokens += item.Tokens
}

func (o *Orchestrator) run(ctx context.Context, runID string, opts Options, paths []string, start time.Time) *models.BatchProcessResult {
	total := len(paths)
	popts := opts.Pipeline
	popts.DryRun = popts.DryRun || opts.DryRun
	logger := o.logger.With(slog.String("run_id", runID))
	logger.Info("batch: started",
		slog.Int("files", total),
		slog.Bool("dry_run", popts.DryRun),
		slog.Int("parallelism", o.cfg.MaxFileParallelism))

	if o.ledger != nil {
		if err := o.ledger.StartRun(ctx, ledger.RunRow{ID: runID, Input: opts.Input, DryRun: popts.DryRun, StartedAt: start}); err != nil {
			logger.Warn("batch: ledger start", slog.String("error", err.Error()))
		}
	}

	limit := rate.Inf
	if o.cfg.FileRateLimit > 0 {
		limit = rate.Every(o.cfg.FileRateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	acc := &accumulator{}
	// Workers never return errors, so the group context only ends with ctx.
	var g errgroup.Group
	// A slot is taken before the limiter token so the spacing applies to
	// actual starts, not to queueing.
	sem := semaphore.NewWeighted(int64(o.cfg.MaxFileParallelism))

	cancelled := false
	for i, p := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			cancelled = true
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			sem.Release(1)
			cancelled = true
			break
		}
		item := models.NewQueueItem(i+1, p)
		g.Go(func() error {
			defer sem.Release(1)
			res, _ := o.proc.Process(ctx, item, total, popts, o.reporter)
			acc.add(item)
			o.record(ctx, logger, runID, item, res)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		cancelled = true
	}

	result := acc.r
	result.RunID = runID
	result.Cancelled = cancelled
	slices.Sort(result.FailedPaths)
	result.TotalBatchDuration = time.Since(start)
	result.ComputeAverages()

	if o.metrics != nil {
		o.metrics.BatchDone()
	}
	logger.Info("batch: finished",
		slog.Int("processed", result.Processed),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Bool("cancelled", result.Cancelled),
		slog.Duration("duration", result.TotalBatchDuration))
	return &result
}

func (o *Orchestrator) record(ctx context.Context, logger *slog.Logger, runID string, item *models.QueueItem, res *pipeline.Result) {
	if o.metrics != nil {
		o.metrics.ObserveItem(item, apperr.KindOf(item.Err))
	}
	if o.ledger == nil {
		return
	}
	sum := ""
	if res != nil {
		sum = res.Checksum
	}
	// The run context may already be cancelled; the row is still wanted.
	if err := o.ledger.Record(context.WithoutCancel(ctx), ledger.RowFromItem(runID, item, sum)); err != nil {
		logger.Warn("batch: ledger record", slog.String("path", item.Path), slog.String("error", err.Error()))
	}
}
