// Package apperr defines the error taxonomy of the note pipeline.
//
// Every classified error carries one of the sentinel markers below, so callers
// test with errors.Is regardless of how much context was wrapped on top.
package apperr

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrPathOutsideVault     = errors.New("path outside vault")
	ErrResolverExecution    = errors.New("resolver execution failed")
	ErrExtraction           = errors.New("content extraction failed")
	ErrSummarizationTimeout = errors.New("summarization timed out")
	ErrSummarization        = errors.New("summarization failed")
	ErrShareLink            = errors.New("share link generation failed")
	ErrWrite                = errors.New("note write failed")
	ErrCancelled            = errors.New("cancelled")
	ErrInputNotFound        = errors.New("input not found")
	ErrUnsupportedFile      = errors.New("unsupported file type")
	ErrSetup                = errors.New("setup failed")
)

var kinds = []struct {
	name string
	err  error
}{
	// Cancellation is checked first: it explains whatever stage it interrupted.
	{"cancelled", ErrCancelled},
	{"path_outside_vault", ErrPathOutsideVault},
	{"resolver_execution", ErrResolverExecution},
	{"extraction", ErrExtraction},
	{"summarization_timeout", ErrSummarizationTimeout},
	{"summarization", ErrSummarization},
	{"share_link", ErrShareLink},
	{"write", ErrWrite},
	{"input_not_found", ErrInputNotFound},
	{"unsupported_file", ErrUnsupportedFile},
	{"setup", ErrSetup},
}

// Mark wraps err with a formatted message and tags it with kind.
// A nil err produces a fresh error carrying the message.
func Mark(err error, kind error, format string, args ...any) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, kind)
}

// Timeout classifies err as a summarization timeout and attaches a hint.
func Timeout(err error, path string) error {
	err = Mark(err, ErrSummarizationTimeout, "summarize %s", path)
	return errors.WithHint(err, "raise summary.timeout_seconds or lower summary.max_chunk_chars")
}

// KindOf names the taxonomy entry err belongs to, or "unknown".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "unknown"
}

// Hints returns the user-facing hints attached anywhere in the chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}

// Is re-exports errors.Is so callers need a single errors import.
var Is = errors.Is
