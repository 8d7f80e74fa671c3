package resolver

import (
	"context"

	"github.com/starford/notegen/internal/frontmatter"
)

var markdownFields = []string{"title", "word_count", "heading_count"}

// Markdown derives metadata from a Markdown document: its frontmatter keys,
// a title and word/heading counts of the body.
type Markdown struct{}

// NewMarkdown returns a Markdown resolver.
func NewMarkdown() *Markdown { return &Markdown{} }

// FileType returns the markdown kind.
func (*Markdown) FileType() string { return string(KindMarkdown) }

// CanResolve reports whether field is a derived markdown field or a key of
// the document's own frontmatter.
func (m *Markdown) CanResolve(field string, rc *Context) bool {
	for _, f := range markdownFields {
		if f == field {
			return true
		}
	}
	if rc == nil {
		return false
	}
	c, err := content(rc)
	if err != nil {
		return false
	}
	meta, _ := frontmatter.Split([]byte(c))
	return meta.Has(field)
}

// Resolve returns one field of ExtractMetadata, or nil when field is not
// resolvable.
func (m *Markdown) Resolve(ctx context.Context, field string, rc *Context) (any, error) {
	if !m.CanResolve(field, rc) {
		return nil, nil
	}
	out, err := m.ExtractMetadata(ctx, rc)
	if err != nil {
		return nil, err
	}
	return out[field], nil
}

// ExtractMetadata returns the document frontmatter plus title, word_count
// and heading_count derived from the body.
func (*Markdown) ExtractMetadata(ctx context.Context, rc *Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := content(rc)
	if err != nil {
		return nil, err
	}
	meta, body := frontmatter.Split([]byte(c))

	out := meta.Map()
	if title := frontmatter.Title(meta, body); title != "" {
		out["title"] = title
	}
	out["word_count"] = frontmatter.WordCount(body)
	out["heading_count"] = frontmatter.HeadingCount(body)
	return out, nil
}
