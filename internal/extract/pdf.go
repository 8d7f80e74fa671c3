package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the plain text of every page.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

// Extract returns the text of every decodable page. Malformed documents
// that make the reader panic are reported as errors.
func (*PDF) Extract(ctx context.Context, path string) (c *Content, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("extract: malformed pdf %s: %v", path, r)
		}
	}()

	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract: open pdf %s: %w", path, err)
	}

	var sb strings.Builder
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages use fonts the reader cannot decode.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return &Content{
		FileType: TypePDF,
		Text:     sb.String(),
		Pages:    pages,
	}, nil
}
