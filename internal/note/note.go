// Package note assembles the final Markdown note from finalized metadata and
// body text.
package note

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/starford/notegen/internal/frontmatter"
	"github.com/starford/notegen/internal/models"
)

// Document is the rendered part of a note below the frontmatter.
type Document struct {
	Title    string
	Body     string
	ShareURL string
}

// Render produces the complete note. The output depends only on its inputs,
// so identical inputs render identical bytes.
func Render(meta *models.Metadata, order []string, doc Document) ([]byte, error) {
	head, err := frontmatter.Render(meta, order)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(head)
	buf.WriteString("\n# ")
	buf.WriteString(strings.TrimSpace(doc.Title))
	buf.WriteString("\n\n## Note\n\n")
	if body := strings.TrimSpace(doc.Body); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	if doc.ShareURL != "" {
		buf.WriteString("\n## References\n\n- [Source](")
		buf.WriteString(doc.ShareURL)
		buf.WriteString(")\n")
	}
	return buf.Bytes(), nil
}

// TitleFromPath derives a display title from a file name: the extension is
// dropped and "_"/"-" runs become spaces.
func TitleFromPath(p string) string {
	stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(words) == 0 {
		return stem
	}
	return strings.Join(words, " ")
}

// OutputPath maps a source file to its note path under outRoot, mirroring
// the source's directory relative to vaultRoot.
func OutputPath(vaultRoot, outRoot, src string) (string, error) {
	rel, err := filepath.Rel(vaultRoot, src)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		rel = filepath.Base(src)
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(outRoot, stem+".md"), nil
}
