// Package schema loads the template catalog that decides which frontmatter
// fields and how many hierarchy levels each kind of note carries.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/starford/notegen/internal/apperr"
	"github.com/starford/notegen/internal/hierarchy"
)

// DefaultTemplateType names the permissive template used for unknown types.
const DefaultTemplateType = "default"

// DefaultMaxLevel is the hierarchy depth of the permissive template
// (program through module).
const DefaultMaxLevel = 4

// supportedVersions gates catalog documents this build understands.
const supportedVersions = "^1"

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Format selects the catalog document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

type templateDoc struct {
	MaxLevel int         `yaml:"max_level" toml:"max_level"`
	Fields   []FieldSpec `yaml:"fields" toml:"fields"`
}

type catalogDoc struct {
	Version           string                 `yaml:"version" toml:"version"`
	DefaultTemplate   string                 `yaml:"default_template" toml:"default_template"`
	UniversalFields   []FieldSpec            `yaml:"universal_fields" toml:"universal_fields"`
	Templates         map[string]templateDoc `yaml:"templates" toml:"templates"`
	DepthTemplates    map[string]string      `yaml:"depth_templates" toml:"depth_templates"`
	FileTypeTemplates map[string]string      `yaml:"file_type_templates" toml:"file_type_templates"`
}

// Catalog is an immutable, loaded template catalog. It is safe for
// concurrent use.
type Catalog struct {
	version         *semver.Version
	defaultTemplate string
	templates       map[string]*Template
	fallback        *Template
	depth           map[int]string
	fileTypes       map[string]string
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatYAML)
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "schema: read %s", path)
	}
	c, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, apperr.Mark(err, apperr.ErrSetup, "schema: load %s", path)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc catalogDoc
	switch format {
	case FormatTOML:
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&doc); err != nil {
			return nil, fmt.Errorf("schema: decode toml: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("schema: decode yaml: %w", err)
		}
	}
	return build(doc)
}

func build(doc catalogDoc) (*Catalog, error) {
	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(doc.Version)
	if err != nil {
		return nil, fmt.Errorf("schema: version %q: %w", doc.Version, err)
	}
	if !constraint.Check(v) {
		return nil, fmt.Errorf("schema: version %s not supported (want %s)", v, supportedVersions)
	}

	if err := validateFields("universal_fields", doc.UniversalFields); err != nil {
		return nil, err
	}

	c := &Catalog{
		version:         v,
		defaultTemplate: doc.DefaultTemplate,
		templates:       make(map[string]*Template, len(doc.Templates)),
		depth:           make(map[int]string, len(doc.DepthTemplates)),
		fileTypes:       make(map[string]string, len(doc.FileTypeTemplates)),
		fallback:        newTemplate(DefaultTemplateType, DefaultMaxLevel, doc.UniversalFields, nil),
	}

	for name, td := range doc.Templates {
		if err := validation.Validate(td.MaxLevel, validation.Min(0), validation.Max(hierarchy.MaxDepth)); err != nil {
			return nil, fmt.Errorf("schema: template %s: max_level: %w", name, err)
		}
		if err := validateFields("template "+name, td.Fields); err != nil {
			return nil, err
		}
		c.templates[name] = newTemplate(name, td.MaxLevel, doc.UniversalFields, td.Fields)
	}

	for key, name := range doc.DepthTemplates {
		depth, err := strconv.Atoi(key)
		if err != nil || depth < 0 || depth > hierarchy.MaxDepth {
			return nil, fmt.Errorf("schema: depth_templates: invalid depth %q", key)
		}
		if _, ok := c.templates[name]; !ok {
			return nil, fmt.Errorf("schema: depth_templates[%d]: unknown template %q", depth, name)
		}
		c.depth[depth] = name
	}
	for ft, name := range doc.FileTypeTemplates {
		if _, ok := c.templates[name]; !ok {
			return nil, fmt.Errorf("schema: file_type_templates[%s]: unknown template %q", ft, name)
		}
		c.fileTypes[strings.ToLower(ft)] = name
	}
	if c.defaultTemplate != "" {
		if _, ok := c.templates[c.defaultTemplate]; !ok {
			return nil, fmt.Errorf("schema: default_template: unknown template %q", c.defaultTemplate)
		}
	}
	return c, nil
}

func validateFields(where string, fields []FieldSpec) error {
	seen := make(map[string]struct{}, len(fields))
	for i := range fields {
		f := &fields[i]
		if f.Type == "" {
			f.Type = FieldString
		}
		err := validation.ValidateStruct(f,
			validation.Field(&f.Name, validation.Required),
			validation.Field(&f.Type, validation.In(FieldString, FieldList, FieldNumber, FieldBool, FieldMap)),
		)
		if err != nil {
			return fmt.Errorf("schema: %s: field %d: %w", where, i, err)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: %s: duplicate field %q", where, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Version returns the catalog document version.
func (c *Catalog) Version() string {
	return c.version.String()
}

// Types returns the declared template types, sorted.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.templates))
	for k := range c.templates {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ResolveTemplate returns the template for explicitType. Unknown or empty
// types resolve to the permissive default so unrecognized files still get
// broad hierarchy context.
func (c *Catalog) ResolveTemplate(explicitType string) *Template {
	if t, ok := c.templates[explicitType]; ok {
		return t
	}
	return c.fallback
}

// MaxLevelFor returns the hierarchy depth declared for templateType.
func (c *Catalog) MaxLevelFor(templateType string) int {
	return c.ResolveTemplate(templateType).MaxLevel
}

// TemplateForDepth returns the template type mapped to a folder depth.
func (c *Catalog) TemplateForDepth(depth int) (string, bool) {
	name, ok := c.depth[depth]
	return name, ok
}

// TemplateForFileType returns the template type mapped to a file type.
func (c *Catalog) TemplateForFileType(fileType string) (string, bool) {
	name, ok := c.fileTypes[strings.ToLower(fileType)]
	return name, ok
}

// Selection carries the inputs of template selection, highest priority first.
type Selection struct {
	Override string
	Explicit string
	FileType string
	Depth    int
}

// Select picks the template for a document: override, then the explicit
// template named in its metadata, then the file-type mapping, then the depth
// mapping, then the catalog default.
func (c *Catalog) Select(s Selection) *Template {
	if s.Override != "" {
		return c.ResolveTemplate(s.Override)
	}
	if s.Explicit != "" {
		return c.ResolveTemplate(s.Explicit)
	}
	if name, ok := c.TemplateForFileType(s.FileType); ok {
		return c.templates[name]
	}
	if name, ok := c.TemplateForDepth(s.Depth); ok {
		return c.templates[name]
	}
	return c.ResolveTemplate(c.defaultTemplate)
}
