// Package hierarchy derives program/course/class/module/lesson labels from a
// file's folder position inside the vault and injects them into note metadata.
package hierarchy

import (
	"path"
	"strings"

	"github.com/starford/notegen/internal/apperr"
)

// Level names, in positional order.
const (
	LevelProgram = "program"
	LevelCourse  = "course"
	LevelClass   = "class"
	LevelModule  = "module"
	LevelLesson  = "lesson"
)

// Levels lists every hierarchy level from shallowest to deepest.
var Levels = []string{LevelProgram, LevelCourse, LevelClass, LevelModule, LevelLesson}

// MaxDepth is the number of hierarchy levels.
const MaxDepth = 5

// DiagnosticOutsideVault marks an Info computed for a path outside the vault.
const DiagnosticOutsideVault = "outside-vault"

// Label is one level assignment.
type Label struct {
	Level string
	Value string
}

// Info is the ordered set of hierarchy labels for one file. It only holds as
// many labels as there are real folders between the vault root and the file.
type Info struct {
	Labels []Label
	// Diagnostic is non-empty when resolution could not place the file.
	Diagnostic string
	// Path is the normalized vault-relative path of the file.
	Path string
}

// Depth returns the number of labels.
func (i Info) Depth() int {
	return len(i.Labels)
}

// Get returns the label at the named level.
func (i Info) Get(level string) (string, bool) {
	for _, l := range i.Labels {
		if l.Level == level {
			return l.Value, true
		}
	}
	return "", false
}

// At returns the label at 1-based position n.
func (i Info) At(n int) (Label, bool) {
	if n < 1 || n > len(i.Labels) {
		return Label{}, false
	}
	return i.Labels[n-1], true
}

// Map returns the labels keyed by level name.
func (i Info) Map() map[string]string {
	out := make(map[string]string, len(i.Labels))
	for _, l := range i.Labels {
		out[l.Level] = l.Value
	}
	return out
}

// Err returns a classified error when Diagnostic is set.
func (i Info) Err() error {
	if i.Diagnostic == "" {
		return nil
	}
	return apperr.Mark(nil, apperr.ErrPathOutsideVault, "%s: %s", i.Diagnostic, i.Path)
}

// Resolve computes the hierarchy of filePath relative to vaultRoot. It never
// fails: a path outside the vault yields an empty Info with a Diagnostic.
func Resolve(filePath, vaultRoot string) Info {
	file := normalize(filePath)
	root := normalize(vaultRoot)

	rel := file
	if root != "" {
		if !strings.HasPrefix(file, root+"/") {
			return Info{Diagnostic: DiagnosticOutsideVault, Path: file}
		}
		rel = strings.TrimPrefix(file, root+"/")
	}
	if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return Info{Diagnostic: DiagnosticOutsideVault, Path: file}
	}

	dir := path.Dir(rel)
	info := Info{Path: rel}
	if dir == "." {
		return info
	}
	for i, seg := range strings.Split(dir, "/") {
		if i >= MaxDepth {
			break
		}
		info.Labels = append(info.Labels, Label{Level: Levels[i], Value: seg})
	}
	return info
}

// normalize converts separators to '/', cleans the path and strips leading
// and trailing separators, so "C:\v\a\", "/v/a" and "v/a/" compare equal.
func normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}
