package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notegen/internal/apperr"
)

// enumerate lists the files of input. A directory is walked recursively,
// skipping hidden entries and the note output root; only files with a
// registered extractor are returned. A single file is returned as-is so an
// unsupported file fails visibly instead of vanishing.
func (o *Orchestrator) enumerate(input string) ([]string, error) {
	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrInputNotFound, "resolve %s", input)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrInputNotFound, "stat %s", input)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, apperr.Mark(nil, apperr.ErrInputNotFound, "%s is not a regular file", input)
		}
		return []string{abs}, nil
	}

	noteRoot := filepath.Clean(o.proc.NoteRoot())
	var out []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == abs {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if filepath.Clean(p) == noteRoot {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && o.proc.Supports(p) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "walk %s", input)
	}
	return out, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
