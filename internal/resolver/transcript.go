package resolver

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/notegen/internal/frontmatter"
)

// Transcript formats.
const (
	FormatSRT = "srt"
	FormatVTT = "vtt"
)

var transcriptFields = []string{"duration", "word_count", "segment_count", "transcript_format"}

var cueTagRe = regexp.MustCompile(`<[^>]*>`)

// Segment is one timed cue.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcript is a parsed subtitle file.
type Transcript struct {
	Format   string
	Segments []Segment
}

// Duration returns the end time of the final segment.
func (t *Transcript) Duration() time.Duration {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Text joins the segment texts with newlines.
func (t *Transcript) Text() string {
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n")
}

// WordCount sums the words of every segment.
func (t *Transcript) WordCount() int {
	n := 0
	for _, s := range t.Segments {
		n += frontmatter.WordCount(s.Text)
	}
	return n
}

// DetectFormat picks the transcript format from the file extension, falling
// back to sniffing the WEBVTT header.
func DetectFormat(path, data string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	}
	if strings.HasPrefix(strings.TrimPrefix(data, "\ufeff"), "WEBVTT") {
		return FormatVTT
	}
	return FormatSRT
}

// ParseTranscript parses SRT or WebVTT cues. Cue identifiers, the WEBVTT
// header, NOTE/STYLE/REGION blocks and inline markup are skipped.
func ParseTranscript(data, format string) (*Transcript, error) {
	t := &Transcript{Format: format}
	sc := bufio.NewScanner(strings.NewReader(strings.TrimPrefix(data, "\ufeff")))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cur    *Segment
		text   []string
		skip   bool
		lineNo int
	)
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(strings.Join(text, " "))
			t.Segments = append(t.Segments, *cur)
		}
		cur, text, skip = nil, nil, false
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}
		if skip {
			continue
		}
		if cur == nil {
			if strings.Contains(trimmed, "-->") {
				start, end, err := parseTiming(trimmed)
				if err != nil {
					return nil, fmt.Errorf("resolver: transcript line %d: %w", lineNo, err)
				}
				cur = &Segment{Start: start, End: end}
				continue
			}
			if strings.HasPrefix(trimmed, "WEBVTT") || strings.HasPrefix(trimmed, "NOTE") ||
				strings.HasPrefix(trimmed, "STYLE") || strings.HasPrefix(trimmed, "REGION") {
				skip = true
			}
			// Cue identifier or header line.
			continue
		}
		if s := strings.TrimSpace(cueTagRe.ReplaceAllString(trimmed, "")); s != "" {
			text = append(text, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("resolver: transcript: %w", err)
	}
	flush()
	return t, nil
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	left, right, _ := strings.Cut(line, "-->")
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("missing end time in %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp accepts HH:MM:SS,mmm, HH:MM:SS.mmm and MM:SS.mmm.
func parseTimestamp(s string) (time.Duration, error) {
	s = strings.Replace(s, ",", ".", 1)
	clock, frac, _ := strings.Cut(s, ".")
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	var total time.Duration
	units := []time.Duration{time.Second, time.Minute, time.Hour}
	for i := range parts {
		p := parts[len(parts)-1-i]
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad timestamp %q", s)
		}
		total += time.Duration(n) * units[i]
	}
	if frac != "" {
		if len(frac) > 3 {
			frac = frac[:3]
		}
		for len(frac) < 3 {
			frac += "0"
		}
		ms, err := strconv.Atoi(frac)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q", s)
		}
		total += time.Duration(ms) * time.Millisecond
	}
	return total, nil
}

// TranscriptResolver derives duration, word and segment counts from a
// subtitle file.
type TranscriptResolver struct{}

// NewTranscript returns a TranscriptResolver.
func NewTranscript() *TranscriptResolver { return &TranscriptResolver{} }

// FileType returns the transcript kind.
func (*TranscriptResolver) FileType() string { return string(KindTranscript) }

// CanResolve reports whether field is one of the transcript fields.
func (*TranscriptResolver) CanResolve(field string, _ *Context) bool {
	for _, f := range transcriptFields {
		if f == field {
			return true
		}
	}
	return false
}

// Resolve returns a single transcript field.
func (r *TranscriptResolver) Resolve(ctx context.Context, field string, rc *Context) (any, error) {
	return resolveFrom(ctx, r, transcriptFields, field, rc)
}

// ExtractMetadata parses the transcript in its detected format and reports
// duration in seconds, word and segment counts, and the format.
func (*TranscriptResolver) ExtractMetadata(ctx context.Context, rc *Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := content(rc)
	if err != nil {
		return nil, err
	}
	t, err := ParseTranscript(data, DetectFormat(rc.FilePath, data))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"duration":          t.Duration().Seconds(),
		"word_count":        t.WordCount(),
		"segment_count":     len(t.Segments),
		"transcript_format": t.Format,
	}, nil
}
