// Package resolver computes derived metadata for one category of file.
//
// Resolvers are registered in a Registry during setup and then queried
// concurrently by document pipelines. A resolver never swallows its own
// errors; callers decide how a failure affects the document.
package resolver

import (
	"context"
	"fmt"
	"os"
	"slices"
)

// Kind names a built-in resolver. Plugins may register under any other name.
type Kind string

const (
	KindMarkdown   Kind = "markdown"
	KindResource   Kind = "resource"
	KindTags       Kind = "tags"
	KindTranscript Kind = "transcript"
)

// Flags understood by the built-in resolvers.
const (
	FlagSuggestTags = "suggest_tags"
)

// Context is the per-call input of a resolver. It is built for one resolve
// call and discarded afterwards.
type Context struct {
	FilePath string
	Content  string
	Tags     []string
	// Reserved lists metadata keys the active template enforces. The tag
	// resolver reports tags that collide with them.
	Reserved []string
	Flags    map[string]bool
	Extra    map[string]any
}

// Flag reports whether name is set.
func (c *Context) Flag(name string) bool {
	return c.Flags[name]
}

// Resolver computes metadata fields for one file type.
type Resolver interface {
	// FileType names the category of file this resolver understands.
	FileType() string
	// CanResolve reports whether field is one this resolver produces.
	CanResolve(field string, rc *Context) bool
	// Resolve computes a single field. A nil value means "no value".
	Resolve(ctx context.Context, field string, rc *Context) (any, error)
	// ExtractMetadata computes every field this resolver knows.
	ExtractMetadata(ctx context.Context, rc *Context) (map[string]any, error)
}

// resolveFrom implements Resolve on top of ExtractMetadata.
func resolveFrom(ctx context.Context, r Resolver, fields []string, field string, rc *Context) (any, error) {
	if !slices.Contains(fields, field) {
		return nil, nil
	}
	m, err := r.ExtractMetadata(ctx, rc)
	if err != nil {
		return nil, err
	}
	return m[field], nil
}

// content returns rc.Content, reading rc.FilePath when no content was given.
func content(rc *Context) (string, error) {
	if rc.Content != "" || rc.FilePath == "" {
		return rc.Content, nil
	}
	data, err := os.ReadFile(rc.FilePath)
	if err != nil {
		return "", fmt.Errorf("resolver: read %s: %w", rc.FilePath, err)
	}
	return string(data), nil
}

// Strings converts a decoded list value to []string, skipping non-strings.
// A single string becomes a one-element list.
func Strings(v any) []string {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
