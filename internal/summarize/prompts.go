package summarize

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Prompt names.
const (
	PromptSummary = "summary"
	PromptChunk   = "chunk"
	PromptCombine = "combine"
)

//go:embed prompts/*.tmpl
var embeddedPrompts embed.FS

// Prompts holds the instruction templates.
type Prompts struct {
	tmpl map[string]*template.Template
}

// LoadPrompts parses the embedded templates, then overrides each one for
// which dir contains <name>.tmpl. dir may be empty.
func LoadPrompts(dir string) (*Prompts, error) {
	p := &Prompts{tmpl: make(map[string]*template.Template)}
	for _, name := range []string{PromptSummary, PromptChunk, PromptCombine} {
		file := name + ".tmpl"
		data, err := embeddedPrompts.ReadFile("prompts/" + file)
		if err != nil {
			return nil, fmt.Errorf("summarize: embedded prompt %s: %w", name, err)
		}
		if dir != "" {
			custom, err := os.ReadFile(filepath.Join(dir, file))
			switch {
			case err == nil:
				data = custom
			case !errors.Is(err, fs.ErrNotExist):
				return nil, fmt.Errorf("summarize: read prompt %s: %w", name, err)
			}
		}
		t, err := parsePrompt(name, string(data))
		if err != nil {
			return nil, err
		}
		p.tmpl[name] = t
	}
	return p, nil
}

func parsePrompt(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("summarize: parse prompt %s: %w", name, err)
	}
	return t, nil
}

// Render executes the named template with vars.
func (p *Prompts) Render(name string, vars map[string]string) (string, error) {
	t, ok := p.tmpl[name]
	if !ok {
		return "", fmt.Errorf("summarize: unknown prompt %q", name)
	}
	return execute(t, vars)
}

// RenderText renders an ad-hoc prompt with vars.
func RenderText(text string, vars map[string]string) (string, error) {
	t, err := parsePrompt("custom", text)
	if err != nil {
		return "", err
	}
	return execute(t, vars)
}

func execute(t *template.Template, vars map[string]string) (string, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("summarize: render prompt %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()), nil
}
