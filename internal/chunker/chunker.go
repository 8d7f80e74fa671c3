// Package chunker splits long text into overlapping pieces small enough for
// a single summarization call.
package chunker

import (
	"strings"
	"unicode"
)

// Split breaks text into chunks of at most maxChars runes. Consecutive
// chunks share up to overlap runes. Breaks prefer paragraph boundaries, then
// line ends, then sentence ends, then whitespace, and never split a rune.
//
// maxChars <= 0 returns the whole text as one chunk. Empty or whitespace-only
// text returns nil.
func Split(text string, maxChars, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return []string{strings.TrimSpace(text)}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars/2 {
		overlap = maxChars / 2
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint returns the best cut in runes[start:end], searching only the
// second half of the window so chunks stay reasonably full.
func breakPoint(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	for _, prefer := range []func(i int) bool{
		func(i int) bool { return runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' },
		func(i int) bool { return runes[i-1] == '\n' },
		func(i int) bool {
			return (runes[i-1] == '.' || runes[i-1] == '!' || runes[i-1] == '?') && unicode.IsSpace(runes[i])
		},
		func(i int) bool { return unicode.IsSpace(runes[i-1]) },
	} {
		for i := end; i > floor; i-- {
			if prefer(i) {
				return i
			}
		}
	}
	return end
}
