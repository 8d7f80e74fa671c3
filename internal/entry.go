// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/batch"
	"github.com/starford/notegen/internal/extract"
	"github.com/starford/notegen/internal/ledger"
	"github.com/starford/notegen/internal/metrics"
	"github.com/starford/notegen/internal/models"
	"github.com/starford/notegen/internal/note"
	"github.com/starford/notegen/internal/pipeline"
	"github.com/starford/notegen/internal/progress"
	"github.com/starford/notegen/internal/resolver"
	"github.com/starford/notegen/internal/schema"
	"github.com/starford/notegen/internal/sharelink"
	"github.com/starford/notegen/internal/storage"
	"github.com/starford/notegen/internal/summarize"
	"github.com/starford/notegen/internal/watch"
)

// ErrFilesFailed is returned when the run finished but some files failed.
var ErrFilesFailed = errors.New("one or more files failed")

// Run builds every component from the configuration, processes the input
// and, in watch mode, keeps processing changed files until interrupted.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	run := app.run

	logger := app.logger
	if logger == nil {
		logger = newLogger(cfg.App)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output_path", cfg.Vault.NotesPath()),
		slog.String("schema_path", cfg.Schema.Path),
		slog.Bool("summary", cfg.Summary.Enabled && !run.NoSummary),
		slog.String("log_level", cfg.App.LogLevel.String()))

	vault, err := filepath.Abs(cfg.Vault.Path)
	if err != nil {
		return apperr.Mark(err, apperr.ErrSetup, "vault path")
	}
	if info, err := os.Stat(vault); err != nil || !info.IsDir() {
		return apperr.Mark(err, apperr.ErrSetup, "vault %s is not a directory", vault)
	}

	catalog, err := schema.Open(cfg.Schema.Path)
	if err != nil {
		return apperr.Mark(err, apperr.ErrSetup, "load template catalog")
	}
	if run.Template != "" && !slices.Contains(catalog.Current().Types(), run.Template) {
		return apperr.Mark(nil, apperr.ErrSetup, "unknown template type %q", run.Template)
	}

	proc, err := newProcessor(cfg, run, vault, catalog, logger)
	if err != nil {
		return err
	}
	logger.Info("Pipeline ready", slog.String("layout", proc.Describe()))

	db, err := ledger.Open()
	if err != nil {
		return apperr.Mark(err, apperr.ErrSetup, "open run ledger")
	}
	defer db.Close()

	m := metrics.New()

	broker := progress.NewBroker(256)
	sub := broker.Subscribe()
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		progress.NewConsole(run.Verbose).Run(sub)
	}()

	orch := batch.New(proc, batch.Config{
		MaxFileParallelism: cfg.Batch.MaxFileParallelism,
		FileRateLimit:      cfg.Batch.FileRateLimit(),
		FailedListPath:     cfg.Batch.FailedList(vault),
	},
		batch.WithReporter(broker),
		batch.WithLedger(db),
		batch.WithMetrics(m),
		batch.WithLogger(logger),
	)

	input := run.Input
	if input == "" {
		input = vault
	}
	bopts := batch.Options{
		Input:       input,
		DryRun:      run.DryRun,
		RetryFailed: run.RetryFailed,
		Pipeline: pipeline.Options{
			DryRun:           run.DryRun,
			Force:            run.Force,
			NoSummary:        run.NoSummary || !cfg.Summary.Enabled,
			TemplateOverride: run.Template,
			BannerOverride:   run.Banner,
			SummaryTimeout:   cfg.Summary.Timeout(),
			SummaryPrompt:    cfg.Summary.Prompt,
		},
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if cfg.Schema.Watch && catalog.Path() != "" {
		g.Go(func() error {
			if err := schema.Watch(gCtx, catalog, logger, nil); err != nil {
				logger.Warn("schema watch unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	var result *models.BatchProcessResult
	g.Go(func() error {
		// Ends the signal and schema goroutines once processing is over.
		defer cancel()

		r, err := orch.Run(gCtx, bopts)
		if err != nil {
			return err
		}
		result = r
		if !run.Watch || r.Cancelled {
			return nil
		}
		return watchVault(gCtx, vault, proc, orch, bopts, logger)
	})

	runErr := g.Wait()

	m.SetDroppedEvents(broker.Stats().Dropped)
	broker.Close()
	<-consoleDone

	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics textfile", slog.String("path", cfg.Metrics.Textfile), slog.String("error", err.Error()))
	}

	if runErr != nil {
		logger.Error("Application error", slog.String("error", runErr.Error()))
		return runErr
	}

	progress.Summary(result, orch.FailureBreakdown(ctx, result.RunID))
	if result.Failed > 0 {
		return ErrFilesFailed
	}
	return nil
}

func newLogger(cfg ApplicationConfig) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	// Stdout carries the progress console.
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(os.Stderr, hopts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, hopts))
}

// newProcessor builds the per-document pipeline and its collaborators.
func newProcessor(cfg *Config, run RunOptions, vault string, catalog *schema.Store, logger *slog.Logger) (*pipeline.Processor, error) {
	extractors := extract.NewDefault()
	extractors.Restrict(cfg.Batch.Extensions)
	if len(extractors.Extensions()) == 0 {
		return nil, apperr.Mark(nil, apperr.ErrSetup, "no supported extension in %v", cfg.Batch.Extensions)
	}

	resolvers := resolver.NewDefault(resolver.TagOptions{
		PipeAsSeparator: cfg.Tags.PipeAsSeparator,
		Suggest:         cfg.Tags.Suggest,
		MaxSuggestions:  cfg.Tags.MaxSuggestions,
	})

	var summarizer summarize.Summarizer
	if cfg.Summary.Enabled && !run.NoSummary {
		prompts, err := summarize.LoadPrompts(cfg.Summary.PromptsDir)
		if err != nil {
			return nil, apperr.Mark(err, apperr.ErrSetup, "load prompts")
		}
		summarizer = summarize.NewChunked(
			summarize.NewOpenAI(summarize.OpenAIConfig{
				BaseURL: cfg.Summary.BaseURL,
				APIKey:  cfg.Summary.APIKey,
				Model:   cfg.Summary.Model,
			}),
			prompts,
			summarize.ChunkedConfig{
				MaxChunkChars:  cfg.Summary.MaxChunkChars,
				OverlapChars:   cfg.Summary.OverlapChars,
				MaxParallelism: cfg.Batch.MaxChunkParallelism,
				RateLimit:      cfg.Batch.ChunkRateLimit(),
			},
		)
	}

	links, err := sharelink.NewStatic(cfg.ShareLink.BaseURL, vault)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "share links")
	}

	banners, err := note.NewBannerResolver(cfg.Banners.Patterns, cfg.Banners.Templates, cfg.Banners.Default)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "banners")
	}

	// Created on first write so dry runs leave no trace.
	store, err := storage.NewLazyFS(cfg.Vault.NotesPath())
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "note store")
	}

	return pipeline.New(pipeline.Deps{
		VaultRoot:  vault,
		Catalog:    catalog,
		Resolvers:  resolvers,
		Extractors: extractors,
		Summarizer: summarizer,
		ShareLinks: links,
		Banners:    banners,
		Store:      store,
		Flags:      map[string]bool{resolver.FlagSuggestTags: cfg.Tags.Suggest},
		Logger:     logger,
	})
}

// watchVault processes changed files until ctx is cancelled.
func watchVault(ctx context.Context, vault string, proc *pipeline.Processor, orch *batch.Orchestrator, bopts batch.Options, logger *slog.Logger) error {
	bopts.RetryFailed = false
	w, err := watch.New(watch.Config{
		Root:     vault,
		NoteRoot: proc.NoteRoot(),
		Supports: proc.Supports,
		Options:  bopts,
	}, orch, logger)
	if err != nil {
		return apperr.Mark(err, apperr.ErrSetup, "watch %s", vault)
	}
	w.OnBatch = func(r *models.BatchProcessResult) {
		logger.Info("watch batch finished",
			slog.Int("processed", r.Processed),
			slog.Int("skipped", r.Skipped),
			slog.Int("failed", r.Failed))
	}
	return w.Run(ctx)
}
