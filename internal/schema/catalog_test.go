package schema

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegen/internal/apperr"
)

func TestDefault_Loads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", c.Version())
	assert.Contains(t, c.Types(), "lesson-note")
	assert.Contains(t, c.Types(), "pdf-reference")
}

func TestResolveTemplate_UnknownIsPermissive(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, typ := range []string{"", "nope"} {
		tmpl := c.ResolveTemplate(typ)
		assert.Equal(t, DefaultTemplateType, tmpl.Type)
		assert.Equal(t, DefaultMaxLevel, tmpl.MaxLevel)
		assert.Equal(t, 4, c.MaxLevelFor(typ))
	}
	assert.Equal(t, 3, c.MaxLevelFor("class-note"))
	assert.Equal(t, 5, c.MaxLevelFor("lesson-note"))
}

func TestTemplate_FieldOrderAndReserved(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tmpl := c.ResolveTemplate("pdf-reference")
	assert.Equal(t, []string{
		"title", "template_type", "tags", "aliases", "status",
		"program", "course", "class", "module", "lesson",
		"banner", "pages", "file_size", "share_link",
	}, tmpl.FieldOrder())
	assert.Equal(t, []string{"aliases", "pages", "share_link", "tags"}, tmpl.ReservedKeys())
	assert.Equal(t, "unread", tmpl.UniversalDefaults["status"])

	f, ok := tmpl.Field("tags")
	require.True(t, ok)
	assert.Equal(t, []any{}, f.DefaultValue())
}

func TestFieldSpec_DefaultValueIsCopied(t *testing.T) {
	f := FieldSpec{Name: "tags", Type: FieldList, Default: []any{"a"}}
	v := f.DefaultValue().([]any)
	v[0] = "changed"
	assert.Equal(t, []any{"a"}, f.Default)

	assert.Equal(t, 0, FieldSpec{Type: FieldNumber}.DefaultValue())
	assert.Equal(t, "", FieldSpec{}.DefaultValue())
}

func TestSelect_Precedence(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "course-note", c.Select(Selection{Override: "course-note", Explicit: "lesson-note", FileType: "pdf"}).Type)
	assert.Equal(t, "lesson-note", c.Select(Selection{Explicit: "lesson-note", FileType: "pdf"}).Type)
	assert.Equal(t, "pdf-reference", c.Select(Selection{FileType: "pdf", Depth: 2}).Type)
	assert.Equal(t, "course-note", c.Select(Selection{FileType: "markdown", Depth: 2}).Type)
	assert.Equal(t, "resource-note", c.Select(Selection{FileType: "markdown", Depth: 0}).Type)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad version":     "version: 2.0.0\n",
		"not semver":      "version: latest\n",
		"unknown key":     "version: 1.0.0\nbogus: true\n",
		"bad level":       "version: 1.0.0\ntemplates:\n  x:\n    max_level: 9\n",
		"bad field type":  "version: 1.0.0\nuniversal_fields:\n  - name: a\n    type: blob\n",
		"missing name":    "version: 1.0.0\nuniversal_fields:\n  - type: list\n",
		"duplicate field": "version: 1.0.0\nuniversal_fields:\n  - name: a\n  - name: a\n",
		"depth unknown":   "version: 1.0.0\ndepth_templates:\n  \"1\": ghost\n",
		"depth range":     "version: 1.0.0\ntemplates:\n  x: {}\ndepth_templates:\n  \"7\": x\n",
		"default unknown": "version: 1.0.0\ndefault_template: ghost\n",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc), FormatYAML)
		assert.Error(t, err, name)
	}
}

func TestParse_TOML(t *testing.T) {
	doc := `
version = "1.2.0"
default_template = "note"

[[universal_fields]]
name = "title"
required = true

[templates.note]
max_level = 2

[[templates.note.fields]]
name = "tags"
type = "list"
reserved = true

[depth_templates]
"1" = "note"
`
	c, err := Parse([]byte(doc), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, 2, c.MaxLevelFor("note"))
	assert.True(t, c.ResolveTemplate("note").IsReserved("tags"))
	name, ok := c.TemplateForDepth(1)
	assert.True(t, ok)
	assert.Equal(t, "note", name)
}

func TestLoad_MissingFileIsSetupError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrSetup))
}

func writeCatalog(t *testing.T, path string, level int) {
	t.Helper()
	data := []byte("version: 1.0.0\ntemplates:\n  a:\n    max_level: " + strconv.Itoa(level) + "\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestStore_ReloadKeepsOldOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, 2)

	s, err := Open(path)
	require.NoError(t, err)
	snapshot := s.Current()
	assert.Equal(t, 2, s.MaxLevelFor("a"))

	writeCatalog(t, path, 3)
	_, err = s.Reload()
	require.NoError(t, err)
	assert.Equal(t, 3, s.MaxLevelFor("a"))
	assert.Equal(t, 2, snapshot.MaxLevelFor("a"), "snapshots are immutable")

	require.NoError(t, os.WriteFile(path, []byte("version: nope\n"), 0o644))
	_, err = s.Reload()
	assert.Error(t, err)
	assert.Equal(t, 3, s.MaxLevelFor("a"))
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, 1)
	s, err := Open(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reloaded := make(chan int, 4)
	go func() {
		_ = Watch(ctx, s, logger, func(c *Catalog) { reloaded <- c.MaxLevelFor("a") })
	}()
	time.Sleep(100 * time.Millisecond)

	writeCatalog(t, path, 4)

	select {
	case n := <-reloaded:
		assert.Equal(t, 4, n)
	case <-time.After(5 * time.Second):
		t.Fatal("catalog not reloaded")
	}
}

func TestWatch_RequiresBackingFile(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	assert.Error(t, Watch(context.Background(), s, slog.Default(), nil))
}
