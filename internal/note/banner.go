package note

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// BannerPattern assigns a banner to files matching a glob. Patterns without
// a "/" match the file name; others match the vault-relative path.
type BannerPattern struct {
	Glob   string `yaml:"glob" toml:"glob"`
	Banner string `yaml:"banner" toml:"banner"`
}

// BannerResolver picks the banner of a note.
type BannerResolver struct {
	patterns  []BannerPattern
	templates map[string]string
	fallback  string
}

// NewBannerResolver validates the patterns and returns a resolver. fallback
// applies to template types without their own default and may be empty.
func NewBannerResolver(patterns []BannerPattern, templates map[string]string, fallback string) (*BannerResolver, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p.Glob) {
			return nil, fmt.Errorf("note: invalid banner pattern %q", p.Glob)
		}
	}
	return &BannerResolver{patterns: patterns, templates: templates, fallback: fallback}, nil
}

// Resolve returns the banner by precedence: explicit override, first
// matching pattern, template default, fallback. An empty result means no
// banner.
func (b *BannerResolver) Resolve(override, relPath, templateType string) string {
	if override != "" {
		return override
	}
	if b == nil {
		return ""
	}
	rel := strings.TrimPrefix(path.Clean(strings.ReplaceAll(relPath, `\`, "/")), "/")
	name := path.Base(rel)
	for _, p := range b.patterns {
		target := name
		if strings.Contains(p.Glob, "/") {
			target = rel
		}
		if ok, _ := doublestar.Match(p.Glob, target); ok {
			return p.Banner
		}
	}
	if v, ok := b.templates[templateType]; ok && v != "" {
		return v
	}
	return b.fallback
}
