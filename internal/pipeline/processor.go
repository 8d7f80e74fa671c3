// Package pipeline turns one source file into one note.
//
// A Processor walks a QueueItem through extraction, summarization, assembly
// and share-link generation, publishing a progress event on every
// transition. Failures of one document never escape as panics; they end the
// item in the Failed status with a classified error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/checksum"
	"github.com/starford/notegen/internal/extract"
	"github.com/starford/notegen/internal/models"
	"github.com/starford/notegen/internal/note"
	"github.com/starford/notegen/internal/progress"
	"github.com/starford/notegen/internal/resolver"
	"github.com/starford/notegen/internal/schema"
	"github.com/starford/notegen/internal/sharelink"
	"github.com/starford/notegen/internal/storage"
	"github.com/starford/notegen/internal/summarize"
)

// Options are the per-run switches of a Processor.
type Options struct {
	DryRun    bool
	Force     bool
	NoSummary bool

	TemplateOverride string
	BannerOverride   string

	// SummaryTimeout bounds one summarization call. Zero means no limit.
	SummaryTimeout time.Duration
	// SummaryPrompt replaces the summary prompt template when non-empty.
	SummaryPrompt string
}

// Deps are the collaborators of a Processor. Summarizer and ShareLinks may
// be nil.
type Deps struct {
	VaultRoot  string
	Catalog    *schema.Store
	Resolvers  *resolver.Registry
	Extractors *extract.Registry
	Summarizer summarize.Summarizer
	ShareLinks sharelink.Provider
	Banners    *note.BannerResolver
	Store      storage.Provider
	// Flags are handed to every resolver call.
	Flags  map[string]bool
	Logger *slog.Logger
	// Now is the clock used for item timings.
	Now func() time.Time
}

// Processor runs the per-document state machine. It is safe for concurrent
// use by many workers; all per-document state lives on the stack.
type Processor struct {
	deps   Deps
	vault  string
	logger *slog.Logger
}

// Result is what Process reports beyond the item itself.
type Result struct {
	// Note holds the rendered bytes, also in dry-run mode. Nil when skipped
	// or failed.
	Note []byte
	// Checksum is the digest of Note.
	Checksum string
	// Unchanged is set when a forced rewrite found identical content on disk.
	Unchanged bool
}

// New validates deps and returns a Processor.
func New(deps Deps) (*Processor, error) {
	if deps.Catalog == nil || deps.Resolvers == nil || deps.Extractors == nil || deps.Store == nil {
		return nil, apperr.Mark(nil, apperr.ErrSetup, "pipeline: catalog, resolvers, extractors and store are required")
	}
	vault, err := filepath.Abs(deps.VaultRoot)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "pipeline: vault root")
	}
	if deps.ShareLinks == nil {
		deps.ShareLinks = sharelink.None{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Processor{
		deps:   deps,
		vault:  vault,
		logger: deps.Logger.With(slog.String("component", "pipeline")),
	}, nil
}

// Supports reports whether an extractor is registered for path.
func (p *Processor) Supports(path string) bool {
	return p.deps.Extractors.Supports(path)
}

// NoteRoot returns the absolute output root.
func (p *Processor) NoteRoot() string {
	return p.deps.Store.Root()
}

// tracker publishes item transitions.
type tracker struct {
	item  *models.QueueItem
	total int
	rep   progress.Reporter
}

func (t tracker) publish(msg string) {
	t.rep.Publish(progress.Event{
		Index:   t.item.Index,
		Total:   t.total,
		Path:    t.item.Path,
		Status:  t.item.Status,
		Stage:   t.item.Stage,
		Message: msg,
	})
}

func (t tracker) advance(stage models.Stage, msg string) {
	// Advance only fails on programming errors: stages are called in order.
	if err := t.item.Advance(stage); err == nil {
		t.publish(msg)
	}
}

// Process runs item to a terminal status. The returned error equals item.Err.
func (p *Processor) Process(ctx context.Context, item *models.QueueItem, total int, opts Options, rep progress.Reporter) (*Result, error) {
	if rep == nil {
		rep = progress.Discard
	}
	t := tracker{item: item, total: total, rep: rep}
	if err := item.Start(p.deps.Now()); err != nil {
		return nil, err
	}

	res, err := p.run(ctx, t, opts)
	if err != nil {
		if ctx.Err() != nil && !apperr.Is(err, apperr.ErrSummarizationTimeout) {
			err = apperr.Mark(err, apperr.ErrCancelled, "%s", item.Path)
		}
		item.Fail(err, p.deps.Now())
		t.publish(err.Error())
		p.logger.Warn("pipeline: failed",
			slog.String("path", item.Path),
			slog.String("stage", item.Stage.String()),
			slog.String("kind", apperr.KindOf(err)),
			slog.String("error", err.Error()))
		return nil, err
	}

	msg := ""
	switch {
	case item.Skipped:
		msg = "note exists, skipped"
	case res.Unchanged:
		msg = "note unchanged"
	case opts.DryRun:
		msg = "dry run, not written"
	}
	if err := item.Complete(p.deps.Now()); err != nil {
		return nil, err
	}
	t.publish(msg)
	p.logger.Debug("pipeline: completed",
		slog.String("path", item.Path),
		slog.String("note", item.NotePath),
		slog.Bool("skipped", item.Skipped),
		slog.Duration("duration", item.Duration()))
	return res, nil
}

func (p *Processor) run(ctx context.Context, t tracker, opts Options) (*Result, error) {
	item := t.item
	src, err := filepath.Abs(item.Path)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrInputNotFound, "resolve %s", item.Path)
	}

	dest, rel, err := p.destination(src)
	if err != nil {
		return nil, err
	}
	item.NotePath = rel

	exists, err := p.deps.Store.Exists(rel)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrWrite, "check %s", dest)
	}
	if exists && !opts.Force {
		item.Skipped = true
		return &Result{}, nil
	}

	t.advance(models.StageContentExtraction, "")
	fileType, ex, ok := p.deps.Extractors.Lookup(src)
	if !ok {
		return nil, apperr.Mark(nil, apperr.ErrUnsupportedFile, "no extractor for %s", filepath.Ext(src))
	}
	content, err := ex.Extract(ctx, src)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrExtraction, "extract %s", item.Path)
	}

	summary := ""
	if opts.NoSummary || p.deps.Summarizer == nil {
		t.advance(models.StageSummaryGeneration, "summary skipped")
	} else {
		t.advance(models.StageSummaryGeneration, "")
		summary, err = p.summarize(ctx, item, src, content, opts)
		if err != nil {
			return nil, err
		}
	}

	t.advance(models.StageNoteAssembly, "")
	doc, err := p.assemble(ctx, src, fileType, content, summary, opts)
	if err != nil {
		return nil, err
	}

	if _, none := p.deps.ShareLinks.(sharelink.None); !none {
		t.advance(models.StageShareLinkGeneration, "")
		link, ok, err := p.deps.ShareLinks.CreateShareLink(ctx, src)
		if err != nil {
			return nil, apperr.Mark(err, apperr.ErrShareLink, "share link for %s", item.Path)
		}
		if ok {
			doc.meta.Set("share_link", link)
			doc.body.ShareURL = link
		}
	}

	out, err := note.Render(doc.meta, doc.order, doc.body)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrWrite, "render %s", item.Path)
	}
	// Nothing is written once cancellation has been observed.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Note: out, Checksum: checksum.Sum(out)}
	if opts.DryRun {
		return res, nil
	}
	if exists {
		if old, err := p.deps.Store.Read(rel); err == nil && checksum.Sum(old) == res.Checksum {
			res.Unchanged = true
			return res, nil
		}
	}
	if err := p.deps.Store.Write(rel, out); err != nil {
		return nil, apperr.Mark(err, apperr.ErrWrite, "write %s", dest)
	}
	return res, nil
}

// destination maps src to its note path. The note must never replace its
// own source.
func (p *Processor) destination(src string) (abs, rel string, err error) {
	root := p.deps.Store.Root()
	abs, err = note.OutputPath(p.vault, root, src)
	if err != nil {
		return "", "", apperr.Mark(err, apperr.ErrWrite, "note path for %s", src)
	}
	if filepath.Clean(abs) == filepath.Clean(src) {
		return "", "", apperr.Mark(nil, apperr.ErrWrite, "note would overwrite its source %s", src)
	}
	rel, err = filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", apperr.Mark(err, apperr.ErrWrite, "note path %s escapes output root", abs)
	}
	return abs, filepath.ToSlash(rel), nil
}

func (p *Processor) summarize(ctx context.Context, item *models.QueueItem, src string, content *extract.Content, opts Options) (string, error) {
	if strings.TrimSpace(content.Text) == "" {
		return "", nil
	}
	sctx := ctx
	if opts.SummaryTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, opts.SummaryTimeout)
		defer cancel()
	}

	title := content.Title
	if title == "" {
		title = note.TitleFromPath(src)
	}
	start := time.Now()
	resp, err := p.deps.Summarizer.Summarize(sctx, summarize.Request{
		Text:   content.Text,
		Prompt: opts.SummaryPrompt,
		Variables: map[string]string{
			"title":     title,
			"file_type": content.FileType,
			"path":      item.Path,
		},
	})
	item.SummaryDuration = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", apperr.Timeout(err, item.Path)
		}
		return "", apperr.Mark(err, apperr.ErrSummarization, "summarize %s", item.Path)
	}
	item.Summarized = true
	item.Tokens = resp.Tokens
	return strings.TrimSpace(resp.Text), nil
}

// Describe is a short human label of a processor's output layout, used in
// startup logs.
func (p *Processor) Describe() string {
	return fmt.Sprintf("%s -> %s", p.vault, p.deps.Store.Root())
}
