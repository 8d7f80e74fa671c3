package schema

import (
	"slices"

	"github.com/starford/notegen/internal/hierarchy"
)

// FieldType is the declared shape of a frontmatter field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldList   FieldType = "list"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldMap    FieldType = "map"
)

// FieldSpec declares one frontmatter field.
type FieldSpec struct {
	Name     string    `yaml:"name" toml:"name"`
	Type     FieldType `yaml:"type" toml:"type"`
	Required bool      `yaml:"required" toml:"required"`
	Reserved bool      `yaml:"reserved" toml:"reserved"`
	Default  any       `yaml:"default" toml:"default"`
}

// DefaultValue returns a fresh copy of the declared default, or the zero
// value of the field type when no default is declared.
func (f FieldSpec) DefaultValue() any {
	if f.Default != nil {
		return cloneValue(f.Default)
	}
	switch f.Type {
	case FieldList:
		return []any{}
	case FieldNumber:
		return 0
	case FieldBool:
		return false
	case FieldMap:
		return map[string]any{}
	}
	return ""
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		return slices.Clone(t)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	}
	return v
}

// Template describes the fields and hierarchy depth of one note type.
// A Template is immutable once its catalog is loaded.
type Template struct {
	Type     string
	MaxLevel int
	// Fields holds universal fields followed by template-specific ones.
	Fields []FieldSpec
	// ReservedTags holds the keys that must be present on every note.
	ReservedTags map[string]struct{}
	// UniversalDefaults maps universal field names to their defaults.
	UniversalDefaults map[string]any

	order []string
}

func newTemplate(typ string, maxLevel int, universal, own []FieldSpec) *Template {
	t := &Template{
		Type:              typ,
		MaxLevel:          maxLevel,
		ReservedTags:      make(map[string]struct{}),
		UniversalDefaults: make(map[string]any),
	}

	overridden := make(map[string]FieldSpec, len(own))
	for _, f := range own {
		overridden[f.Name] = f
	}
	for _, f := range universal {
		if o, ok := overridden[f.Name]; ok {
			f = o
		}
		t.Fields = append(t.Fields, f)
		t.order = append(t.order, f.Name)
		if f.Default != nil {
			t.UniversalDefaults[f.Name] = f.Default
		}
	}
	t.order = append(t.order, hierarchy.Levels[:min(maxLevel, hierarchy.MaxDepth)]...)
	for _, f := range own {
		if slices.Contains(t.order, f.Name) {
			continue
		}
		t.Fields = append(t.Fields, f)
		t.order = append(t.order, f.Name)
	}
	for _, f := range t.Fields {
		if f.Reserved {
			t.ReservedTags[f.Name] = struct{}{}
		}
	}
	return t
}

// FieldOrder returns the declared key order used when rendering frontmatter:
// universal fields, then hierarchy levels up to MaxLevel, then template fields.
func (t *Template) FieldOrder() []string {
	return slices.Clone(t.order)
}

// Field returns the spec for name.
func (t *Template) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// IsReserved reports whether name is a reserved key.
func (t *Template) IsReserved(name string) bool {
	_, ok := t.ReservedTags[name]
	return ok
}

// ReservedKeys returns the reserved keys sorted.
func (t *Template) ReservedKeys() []string {
	out := make([]string, 0, len(t.ReservedTags))
	for k := range t.ReservedTags {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
