// Package summarize produces the note body of long documents through an
// OpenAI-compatible chat completion API.
package summarize

import (
	"context"
)

// Request is one summarization call.
type Request struct {
	Text string
	// Prompt replaces the instruction template when non-empty. It is still
	// rendered with Variables.
	Prompt string
	// Variables fill the prompt templates: title, file_type and path.
	Variables map[string]string
}

// Response carries the summary and the tokens spent producing it.
type Response struct {
	Text   string
	Tokens int
}

// Summarizer turns text into a summary. Implementations must honor ctx
// cancellation and deadlines.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to Summarizer.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Summarize(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
