// Package extract turns source files into plain text for note assembly.
package extract

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
)

// File types produced by the built-in extractors. They double as keys into
// the catalog's file_type_templates and the resolver registry.
const (
	TypeMarkdown = "markdown"
	TypeText     = "text"
	TypeHTML     = "html"
	TypePDF      = "pdf"
	TypeVideo    = "video"
)

// Content is what an extractor returns for one file.
type Content struct {
	FileType string
	// Text is the body used for summarization and the note.
	Text string
	// Title is a title found inside the document, if any.
	Title string
	// Source is the raw text a resolver should see: the Markdown source
	// including frontmatter, or the raw subtitle file of a video.
	Source string
	// SidecarPath is the subtitle file found next to a video.
	SidecarPath string
	Pages       int
}

// Extractor reads one file. Implementations must observe ctx between
// sub-steps such as pages.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Content, error)
}

type registration struct {
	fileType  string
	extractor Extractor
}

// Registry maps file extensions to extractors. Like the resolver registry it
// is filled during setup and only read afterwards.
type Registry struct {
	byExt map[string]registration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]registration)}
}

// Register binds extensions (with or without the leading dot) to e.
func (r *Registry) Register(fileType string, e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[normExt(ext)] = registration{fileType: fileType, extractor: e}
	}
}

// Lookup returns the file type and extractor for path.
func (r *Registry) Lookup(path string) (string, Extractor, bool) {
	reg, ok := r.byExt[normExt(filepath.Ext(path))]
	if !ok {
		return "", nil, false
	}
	return reg.fileType, reg.extractor, true
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[normExt(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions, sorted, with leading dots.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Restrict drops every extension not in allowed. An empty allowed list
// keeps everything.
func (r *Registry) Restrict(allowed []string) {
	if len(allowed) == 0 {
		return
	}
	keep := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		keep[normExt(a)] = struct{}{}
	}
	for ext := range r.byExt {
		if _, ok := keep[ext]; !ok {
			delete(r.byExt, ext)
		}
	}
}

// NewDefault returns a Registry with the built-in extractors.
func NewDefault() *Registry {
	r := NewRegistry()
	r.Register(TypeMarkdown, NewMarkdown(), ".md", ".markdown")
	r.Register(TypeText, NewText(), ".txt")
	r.Register(TypeHTML, NewHTML(), ".html", ".htm")
	r.Register(TypePDF, NewPDF(), ".pdf")
	r.Register(TypeVideo, NewVideo(), ".mp4", ".m4v", ".mkv", ".mov", ".webm")
	return r
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
