package frontmatter

import (
	"reflect"
	"testing"

	"github.com/starford/notegen/internal/models"
)

func TestSplit_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\nlesson: Intro\n---\n# Hello\nBody text.\n")
	meta, body := Split(input)

	if got := meta.Keys(); !reflect.DeepEqual(got, []string{"title", "tags", "lesson"}) {
		t.Errorf("keys = %v, want source order", got)
	}
	if meta.String("title") != "Hello" {
		t.Errorf("title = %q", meta.String("title"))
	}
	tags, _ := meta.Get("tags")
	if !reflect.DeepEqual(tags, []any{"go", "notes"}) {
		t.Errorf("tags = %#v", tags)
	}
	if body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	meta, body := Split(input)
	if meta.Len() != 0 {
		t.Errorf("expected empty metadata, got %v", meta.Keys())
	}
	if body != string(input) {
		t.Errorf("body = %q", body)
	}
}

func TestSplit_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	meta, body := Split(input)
	if meta.Len() != 0 {
		t.Errorf("expected empty metadata on invalid yaml")
	}
	if body != string(input) {
		t.Errorf("body should be the whole input, got %q", body)
	}
}

func TestSplit_NonMappingHeaderFallback(t *testing.T) {
	input := []byte("---\n- a\n- b\n---\nBody\n")
	meta, body := Split(input)
	if meta.Len() != 0 || body != string(input) {
		t.Errorf("sequence header should fall back to body, got keys=%v", meta.Keys())
	}
}

func TestSplit_EmptyHeader(t *testing.T) {
	meta, body := Split([]byte("---\n---\n\nBody\n"))
	if meta.Len() != 0 {
		t.Errorf("keys = %v", meta.Keys())
	}
	if body != "Body\n" {
		t.Errorf("body = %q", body)
	}
}

func TestRender_DeclaredOrderThenInsertion(t *testing.T) {
	meta := models.NewMetadata()
	meta.Set("extra", "x")
	meta.Set("course", "Go")
	meta.Set("title", "Intro")
	meta.Set("tags", []any{})

	out, err := Render(meta, []string{"title", "tags", "program", "course"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "---\ntitle: Intro\ntags: []\ncourse: Go\nextra: x\n---\n"
	if string(out) != want {
		t.Errorf("render =\n%s\nwant\n%s", out, want)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	meta := models.NewMetadata()
	meta.Set("title", "Lesson: One")
	meta.Set("template_type", "lesson-note")
	meta.Set("tags", []any{"go", "ai/deep-learning"})
	meta.Set("duration", 12.5)
	meta.Set("pages", 3)
	meta.Set("draft", false)
	meta.Set("source", map[string]any{"kind": "pdf", "size": 10})
	meta.Set("modified", "2024-05-01")

	out, err := Render(meta, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	back, body := Split(append(out, []byte("\nBody\n")...))
	if body != "Body\n" {
		t.Errorf("body = %q", body)
	}
	if !reflect.DeepEqual(back.Keys(), meta.Keys()) {
		t.Errorf("keys = %v, want %v", back.Keys(), meta.Keys())
	}
	if !reflect.DeepEqual(back.Map(), meta.Map()) {
		t.Errorf("values = %#v, want %#v", back.Map(), meta.Map())
	}

	again, err := Render(back, nil)
	if err != nil {
		t.Fatalf("re-render: %v", err)
	}
	if string(again) != string(out) {
		t.Errorf("re-render differs:\n%s\nvs\n%s", again, out)
	}
}

func TestRender_NumericTypesRoundTripCanonical(t *testing.T) {
	meta := models.NewMetadata()
	meta.Set("duration", float64(10))
	meta.Set("ratio", 0.25)
	meta.Set("size", int64(4096))
	meta.Set("pages", uint16(3))
	meta.Set("huge", 1e20)
	meta.Set("nested", map[string]any{"count": int32(2), "list": []any{float32(1), 1.5}})

	out, err := Render(meta, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	back, _ := Split(out)

	want := map[string]any{
		"duration": 10,
		"ratio":    0.25,
		"size":     4096,
		"pages":    3,
		"huge":     1e20,
		"nested":   map[string]any{"count": 2, "list": []any{1, 1.5}},
	}
	if !reflect.DeepEqual(back.Map(), want) {
		t.Errorf("values = %#v, want %#v", back.Map(), want)
	}
	for k, v := range meta.Map() {
		if got := Canonical(v); !reflect.DeepEqual(got, want[k]) {
			t.Errorf("Canonical(%s) = %#v, want %#v", k, got, want[k])
		}
	}
}

func TestRender_Empty(t *testing.T) {
	out, err := Render(models.NewMetadata(), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "---\n---\n" {
		t.Errorf("render = %q", out)
	}
}

func TestTitleAndCounts(t *testing.T) {
	body := "intro line\n# First Heading\n\n## Sub\n```\n# not a heading\n```\ntext #go and #ml/nlp #go\n"
	if got := Title(nil, body); got != "First Heading" {
		t.Errorf("title = %q", got)
	}
	meta := models.NewMetadata()
	meta.Set("title", "From Meta")
	if got := Title(meta, body); got != "From Meta" {
		t.Errorf("title = %q", got)
	}
	if got := HeadingCount(body); got != 2 {
		t.Errorf("heading count = %d, want 2", got)
	}
	if got := WordCount("one  two\nthree\t four"); got != 4 {
		t.Errorf("word count = %d", got)
	}
	if got := InlineTags(body); !reflect.DeepEqual(got, []string{"go", "ml/nlp"}) {
		t.Errorf("inline tags = %v", got)
	}
}
