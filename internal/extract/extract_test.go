package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegen/internal/testutil"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewDefault()

	ft, e, ok := r.Lookup("/a/b/Slides.PDF")
	require.True(t, ok)
	assert.Equal(t, TypePDF, ft)
	assert.IsType(t, &PDF{}, e)

	_, _, ok = r.Lookup("/a/b/archive.zip")
	assert.False(t, ok)
	assert.True(t, r.Supports("x.md"))
	assert.Contains(t, r.Extensions(), ".mkv")

	r.Restrict([]string{"md", ".PDF"})
	assert.Equal(t, []string{".md", ".pdf"}, r.Extensions())
}

func TestMarkdown_Extract(t *testing.T) {
	p := write(t, t.TempDir(), "n.md", "---\ntitle: Front\n---\n# Heading\nbody\n")
	c, err := NewMarkdown().Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, TypeMarkdown, c.FileType)
	assert.Equal(t, "Front", c.Title)
	assert.Equal(t, "# Heading\nbody\n", c.Text)
	assert.True(t, strings.HasPrefix(c.Source, "---\ntitle: Front"))
}

func TestText_Extract(t *testing.T) {
	p := write(t, t.TempDir(), "n.txt", "line one\r\nline two\r\n")
	c, err := NewText().Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", c.Text)
}

func TestHTML_Extract(t *testing.T) {
	page := `<html><head><title>Page Title</title></head><body>
<nav><a href="/">Home</a></nav>
<article><h2>Section</h2>
<p>Goroutines are lightweight threads managed by the Go runtime, and channels let them communicate safely.</p>
<p>Select statements wait on several channel operations at once, which keeps concurrent code readable.</p>
</article></body></html>`
	p := write(t, t.TempDir(), "page.html", page)

	c, err := NewHTML().Extract(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, TypeHTML, c.FileType)
	assert.Equal(t, "Page Title", c.Title)
	assert.Contains(t, c.Text, "Goroutines are lightweight threads")
	assert.NotContains(t, c.Text, "<p>")
}

func TestPDF_InvalidFile(t *testing.T) {
	p := write(t, t.TempDir(), "bad.pdf", "this is not a pdf")
	_, err := NewPDF().Extract(context.Background(), p)
	assert.Error(t, err)
}

func TestPDF_MalformedPageTreeIsError(t *testing.T) {
	p := write(t, t.TempDir(), "broken.pdf", testutil.BrokenPagesPDF())

	var (
		c   *Content
		err error
	)
	require.NotPanics(t, func() {
		c, err = NewPDF().Extract(context.Background(), p)
	})
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestVideo_Sidecar(t *testing.T) {
	dir := t.TempDir()
	video := write(t, dir, "lecture.mp4", "binary")
	write(t, dir, "lecture.srt", "1\n00:00:01,000 --> 00:00:02,000\nhello world\n\n2\n00:00:03,000 --> 00:00:04,000\nbye\n")

	c, err := NewVideo().Extract(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, TypeVideo, c.FileType)
	assert.Equal(t, filepath.Join(dir, "lecture.srt"), c.SidecarPath)
	assert.Equal(t, "hello world\nbye", c.Text)

	lone := write(t, dir, "silent.mp4", "binary")
	c, err = NewVideo().Extract(context.Background(), lone)
	require.NoError(t, err)
	assert.Empty(t, c.SidecarPath)
	assert.Empty(t, c.Text)
}

func TestExtract_ObservesCancellation(t *testing.T) {
	p := write(t, t.TempDir(), "n.md", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, e := range []Extractor{NewMarkdown(), NewText(), NewHTML(), NewPDF(), NewVideo()} {
		_, err := e.Extract(ctx, p)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := NewText().Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
