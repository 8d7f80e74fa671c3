package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/starford/notegen/internal/frontmatter"
)

// Markdown reads a Markdown file, keeping its frontmatter in Source.
type Markdown struct{}

func NewMarkdown() *Markdown { return &Markdown{} }

func (*Markdown) Extract(ctx context.Context, path string) (*Content, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	meta, body := frontmatter.Split(data)
	return &Content{
		FileType: TypeMarkdown,
		Text:     body,
		Title:    frontmatter.Title(meta, body),
		Source:   string(data),
	}, nil
}

// Text reads a plain-text file.
type Text struct{}

func NewText() *Text { return &Text{} }

func (*Text) Extract(ctx context.Context, path string) (*Content, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	return &Content{FileType: TypeText, Text: s, Source: s}, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", path, err)
	}
	return data, nil
}
