package note

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegen/internal/models"
)

func TestRender_Layout(t *testing.T) {
	meta := models.NewMetadata()
	meta.Set("title", "Intro")
	meta.Set("tags", []string{"go"})

	out, err := Render(meta, []string{"title", "tags"}, Document{
		Title:    "Intro",
		Body:     "\nSummary text.\n\n",
		ShareURL: "https://share.example/x.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: Intro\ntags:\n  - go\n---\n\n# Intro\n\n## Note\n\nSummary text.\n\n## References\n\n- [Source](https://share.example/x.pdf)\n", string(out))
}

func TestRender_Deterministic(t *testing.T) {
	build := func() []byte {
		meta := models.NewMetadata()
		meta.Set("b", 1)
		meta.Set("a", map[string]any{"z": 1, "y": 2})
		out, err := Render(meta, nil, Document{Title: "T", Body: "x"})
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, build(), build())
}

func TestBannerResolver_Precedence(t *testing.T) {
	b, err := NewBannerResolver([]BannerPattern{
		{Glob: "*.pdf", Banner: "pdf.png"},
		{Glob: "courses/**/lab-*", Banner: "lab.png"},
	}, map[string]string{"lesson-note": "lesson.png"}, "default.png")
	require.NoError(t, err)

	assert.Equal(t, "override.png", b.Resolve("override.png", "a/b.pdf", "lesson-note"))
	assert.Equal(t, "pdf.png", b.Resolve("", `deep\dir\b.pdf`, "lesson-note"))
	assert.Equal(t, "lab.png", b.Resolve("", "courses/go/week1/lab-1.md", "lesson-note"))
	assert.Equal(t, "lesson.png", b.Resolve("", "courses/go/notes.md", "lesson-note"))
	assert.Equal(t, "default.png", b.Resolve("", "x.md", "module-note"))

	none, err := NewBannerResolver(nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "", none.Resolve("", "x.md", "module-note"))
}

func TestBannerResolver_InvalidPattern(t *testing.T) {
	_, err := NewBannerResolver([]BannerPattern{{Glob: "[", Banner: "x"}}, nil, "")
	assert.Error(t, err)
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "intro to go", TitleFromPath("/v/a/intro_to-go.pdf"))
	assert.Equal(t, "Lesson 1", TitleFromPath("Lesson 1.md"))
}

func TestOutputPath(t *testing.T) {
	vault := filepath.FromSlash("/vault")
	out := filepath.FromSlash("/vault/_notes")

	got, err := OutputPath(vault, out, filepath.FromSlash("/vault/prog/course/slides.pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/vault/_notes/prog/course/slides.md"), got)

	got, err = OutputPath(vault, out, filepath.FromSlash("/elsewhere/x.pdf"))
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/vault/_notes/x.md"), got)
}
