package summarize

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/starford/notegen/internal/chunker"
)

// ChunkedConfig bounds the chunk fan-out.
type ChunkedConfig struct {
	MaxChunkChars int
	OverlapChars  int
	// MaxParallelism caps concurrent chunk calls. Zero means 1.
	MaxParallelism int
	// RateLimit staggers chunk call starts. Zero disables staggering.
	RateLimit time.Duration
}

// Chunked renders the prompt templates and, for text longer than one chunk,
// summarizes each chunk and then combines the partial summaries in a second
// call.
type Chunked struct {
	inner   Summarizer
	prompts *Prompts
	cfg     ChunkedConfig
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewChunked wraps inner.
func NewChunked(inner Summarizer, prompts *Prompts, cfg ChunkedConfig) *Chunked {
	if cfg.MaxParallelism <= 0 {
		cfg.MaxParallelism = 1
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}
	return &Chunked{
		inner:   inner,
		prompts: prompts,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxParallelism)),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Chunked) Summarize(ctx context.Context, req Request) (*Response, error) {
	chunks := chunker.Split(req.Text, c.cfg.MaxChunkChars, c.cfg.OverlapChars)
	if len(chunks) == 0 {
		return &Response{}, nil
	}
	if len(chunks) == 1 {
		prompt, err := c.summaryPrompt(req)
		if err != nil {
			return nil, err
		}
		return c.call(ctx, chunks[0], prompt, req.Variables)
	}

	partials := make([]string, len(chunks))
	tokens := make([]int, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := c.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer c.sem.Release(1)
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}

			vars := maps.Clone(req.Variables)
			if vars == nil {
				vars = map[string]string{}
			}
			vars["chunk_index"] = strconv.Itoa(i + 1)
			vars["chunk_total"] = strconv.Itoa(len(chunks))
			prompt, err := c.prompts.Render(PromptChunk, vars)
			if err != nil {
				return err
			}
			resp, err := c.call(gctx, chunk, prompt, vars)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			partials[i] = resp.Text
			tokens[i] = resp.Tokens
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prompt, err := c.prompts.Render(PromptCombine, req.Variables)
	if err != nil {
		return nil, err
	}
	combined, err := c.call(ctx, strings.Join(partials, "\n\n"), prompt, req.Variables)
	if err != nil {
		return nil, fmt.Errorf("combine: %w", err)
	}
	for _, t := range tokens {
		combined.Tokens += t
	}
	return combined, nil
}

func (c *Chunked) summaryPrompt(req Request) (string, error) {
	if req.Prompt != "" {
		return RenderText(req.Prompt, req.Variables)
	}
	return c.prompts.Render(PromptSummary, req.Variables)
}

func (c *Chunked) call(ctx context.Context, text, prompt string, vars map[string]string) (*Response, error) {
	resp, err := c.inner.Summarize(ctx, Request{Text: text, Prompt: prompt, Variables: vars})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &Response{}, nil
	}
	return resp, nil
}
