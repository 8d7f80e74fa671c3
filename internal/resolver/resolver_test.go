package resolver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	ft  string
	err error
}

func (s *stubResolver) FileType() string { return s.ft }
func (s *stubResolver) CanResolve(field string, _ *Context) bool { return field == "x" }
func (s *stubResolver) Resolve(ctx context.Context, field string, rc *Context) (any, error) {
	return resolveFrom(ctx, s, []string{"x"}, field, rc)
}
func (s *stubResolver) ExtractMetadata(context.Context, *Context) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"x": s.ft}, nil
}

func TestRegistry_ReplaceSemantics(t *testing.T) {
	r := NewRegistry()
	first := &stubResolver{ft: "first"}
	second := &stubResolver{ft: "second"}

	r.RegisterFileTypeResolver("pdf", first)
	before := r.Count()
	r.RegisterFileTypeResolver("pdf", second)

	assert.Equal(t, before, r.Count())
	got, ok := r.GetFileTypeResolver("pdf")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistry_LookupsAndOrdering(t *testing.T) {
	r := NewDefault(TagOptions{})

	for _, k := range []Kind{KindMarkdown, KindResource, KindTags, KindTranscript} {
		res, ok := r.GetKind(k)
		require.True(t, ok, k)
		assert.Equal(t, string(k), res.FileType())
	}

	plugin := &stubResolver{ft: "epub"}
	r.Register("epub-plugin", plugin)
	got, ok := r.Get("epub-plugin")
	require.True(t, ok)
	assert.Same(t, plugin, got)

	_, ok = r.GetFileTypeResolver("nope")
	assert.False(t, ok)

	var keys []string
	for _, e := range r.GetAllFileTypeResolvers() {
		keys = append(keys, e.FileType)
	}
	assert.Equal(t, []string{"markdown", "resource", "transcript", "video"}, keys)
}

func TestRegistry_ErrorsPropagateUnmodified(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register("bad", &stubResolver{err: boom})

	res, _ := r.Get("bad")
	_, err := res.Resolve(context.Background(), "x", &Context{})
	assert.Equal(t, boom, err)

	v, err := res.Resolve(context.Background(), "other", &Context{})
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestTags_NormalizeExample(t *testing.T) {
	tr := NewTags(TagOptions{})
	got := tr.Normalize([]string{"Machine Learning", "AI/Deep Learning", "machine learning"})
	assert.Equal(t, []string{"machine-learning", "ai/deep-learning"}, got)
}

func TestTags_NormalizeEdgeCases(t *testing.T) {
	tr := NewTags(TagOptions{})
	got := tr.Normalize([]string{"  #Go  ", "a//b/", "  ", "A / B", "x|y", "X|Y"})
	assert.Equal(t, []string{"go", "a/b", "x|y"}, got)

	pipe := NewTags(TagOptions{PipeAsSeparator: true})
	assert.Equal(t, []string{"x/y"}, pipe.Normalize([]string{"x|y", "X/Y"}))
}

func TestTags_ExtractMetadata(t *testing.T) {
	tr := NewTags(TagOptions{Suggest: true, MaxSuggestions: 2})
	rc := &Context{
		Tags:     []string{"Go", "Program/Intro", "lesson"},
		Reserved: []string{"program", "lesson"},
		Content:  "Notes on #concurrency. Goroutines goroutines channels channels channels and the scheduler.",
	}
	m, err := tr.ExtractMetadata(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "concurrency"}, m["tags"])
	assert.Equal(t, []string{"channels", "goroutines"}, m["suggested_tags"])
	assert.Equal(t, []string{"program/intro", "lesson"}, m[ConflictsKey])

	assert.Equal(t, []string{"program/intro", "lesson"},
		Conflicts([]string{"go", "program/intro", "lesson"}, []string{"program", "lesson"}))
}

func TestTags_NoConflictsKeyWhenClean(t *testing.T) {
	m, err := NewTags(TagOptions{}).ExtractMetadata(context.Background(), &Context{
		Tags:     []string{"go"},
		Reserved: []string{"status"},
	})
	require.NoError(t, err)
	assert.NotContains(t, m, ConflictsKey)
}

func TestTags_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTags(TagOptions{}).ExtractMetadata(ctx, &Context{})
	assert.ErrorIs(t, err, context.Canceled)
}

const srtTwoSegments = `1
00:00:01,000 --> 00:00:04,500
Hello there world

2
00:00:05,000 --> 00:00:10,000
<i>second</i> cue text here
`

func TestTranscript_SRTExample(t *testing.T) {
	rc := &Context{FilePath: "lesson.srt", Content: srtTwoSegments}
	m, err := NewTranscript().ExtractMetadata(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, 10.0, m["duration"])
	assert.Equal(t, 3+4, m["word_count"])
	assert.Equal(t, 2, m["segment_count"])
	assert.Equal(t, FormatSRT, m["transcript_format"])
}

func TestTranscript_VTT(t *testing.T) {
	data := "WEBVTT\nKind: captions\n\nNOTE this is ignored\nstill a note\n\ncue-1\n00:01.000 --> 00:03.250 align:start\nfirst line\nsecond line\n\n00:00:04.000 --> 00:01:02.5\nlast\n"
	tr, err := ParseTranscript(data, DetectFormat("x.bin", data))
	require.NoError(t, err)

	assert.Equal(t, FormatVTT, tr.Format)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "first line second line", tr.Segments[0].Text)
	assert.Equal(t, 62.5, tr.Duration().Seconds())
	assert.Equal(t, "first line second line\nlast", tr.Text())
}

func TestTranscript_BadTimestamp(t *testing.T) {
	_, err := ParseTranscript("1\nxx:00:01 --> 00:00:02,000\ntext\n", FormatSRT)
	assert.Error(t, err)
}

func TestMarkdown_ExtractMetadata(t *testing.T) {
	rc := &Context{Content: "---\ncustom: 1\n---\n# Heading One\n\nSome body words here.\n\n## Two\n"}
	m, err := NewMarkdown().ExtractMetadata(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, "Heading One", m["title"])
	assert.Equal(t, 1, m["custom"])
	assert.Equal(t, 2, m["heading_count"])
	assert.Equal(t, 9, m["word_count"])

	assert.True(t, NewMarkdown().CanResolve("custom", rc))
	v, err := NewMarkdown().Resolve(context.Background(), "custom", rc)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestResource_ExtractMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Slides.PDF")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	m, err := NewResource().ExtractMetadata(context.Background(), &Context{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, int64(5), m["file_size"])
	assert.Equal(t, "pdf", m["file_extension"])
	assert.Equal(t, "application/pdf", m["mime_type"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, m["modified"])

	_, err = NewResource().ExtractMetadata(context.Background(), &Context{FilePath: path + ".missing"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Strings([]any{"a", 1, "b"}))
	assert.Equal(t, []string{"solo"}, Strings("solo"))
	assert.Nil(t, Strings(""))
	assert.Nil(t, Strings(42))
}
