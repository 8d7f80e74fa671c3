package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/starford/notegen/internal/frontmatter"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// HTML extracts the readable part of a saved web page as Markdown.
type HTML struct {
	converter *md.Converter
}

func NewHTML() *HTML {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &HTML{converter: conv}
}

func (h *HTML) Extract(ctx context.Context, path string) (*Content, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html %s: %w", path, err)
	}
	title := htmlTitle(doc)

	article := h.readable(data, path)
	if article == nil {
		article = findElement(doc, "body")
	}
	if article == nil {
		article = doc
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := html.Render(&sb, article); err != nil {
		return nil, fmt.Errorf("extract: render html %s: %w", path, err)
	}
	markdown, err := h.converter.ConvertString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("extract: convert html %s: %w", path, err)
	}
	markdown = cleanMarkdown(markdown)
	if title == "" {
		title = frontmatter.Title(nil, markdown)
	}

	return &Content{
		FileType: TypeHTML,
		Text:     markdown,
		Title:    title,
		Source:   string(data),
	}, nil
}

// readable runs the readability heuristics and returns the article node, or
// nil when nothing article-like was found.
func (h *HTML) readable(data []byte, path string) *html.Node {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return nil
	}
	return article.Node
}

func htmlTitle(n *html.Node) string {
	if t := findElement(n, "title"); t != nil && t.FirstChild != nil {
		return strings.TrimSpace(t.FirstChild.Data)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func cleanMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	s = excessiveLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
