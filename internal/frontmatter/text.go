package frontmatter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/notegen/internal/models"
)

var (
	tagRe     = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	headingRe = regexp.MustCompile(`^#{1,6}\s+\S`)
)

// Title returns the frontmatter "title" if present, otherwise the first H1
// heading, otherwise empty string.
func Title(meta *models.Metadata, body string) string {
	if meta != nil {
		if s := strings.TrimSpace(meta.String("title")); s != "" {
			return s
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// HeadingCount counts ATX headings outside fenced code blocks.
func HeadingCount(body string) int {
	n := 0
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && headingRe.MatchString(trimmed) {
			n++
		}
	}
	return n
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}

// InlineTags collects deduplicated #tags from the body.
func InlineTags(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
