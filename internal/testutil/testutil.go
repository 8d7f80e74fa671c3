// Package testutil provides shared test helpers for building vault trees.
package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/starford/notegen/internal/storage"
)

// NotesDir is the output directory name used by tests, matching the
// default layout of <vault>/_notes.
const NotesDir = "_notes"

// Vault creates a temporary vault holding files (vault-relative path to
// content) and returns its absolute root.
func Vault(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		WriteFile(t, root, rel, content)
	}
	return root
}

// WriteFile writes content to root/rel, creating parent directories, and
// returns the absolute path.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// NoteStore returns a lazily created note store at root/_notes.
func NoteStore(t *testing.T, root string) storage.Provider {
	t.Helper()
	store, err := storage.NewLazyFS(filepath.Join(root, NotesDir))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// Files lists every regular file under dir as sorted "/"-separated
// relative paths. A missing dir yields nil.
func Files(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && os.IsNotExist(err) {
				return fs.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() {
			rel, _ := filepath.Rel(dir, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(out)
	return out
}

// BrokenPagesPDF returns a structurally valid PDF whose page tree holds a
// malformed /Count token. Readers that trust the xref table fail only once
// they walk the pages.
func BrokenPagesPDF() string {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Count ) >>",
	}
	var sb strings.Builder
	sb.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = sb.Len()
		fmt.Fprintf(&sb, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := sb.Len()
	fmt.Fprintf(&sb, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&sb, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&sb, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return sb.String()
}
