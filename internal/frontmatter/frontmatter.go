// Package frontmatter splits and renders the YAML header of Markdown notes,
// preserving key order in both directions.
package frontmatter

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/notegen/internal/models"
)

const delim = "---"

// Split separates YAML frontmatter (between leading --- delimiters) from the
// Markdown body. If no frontmatter is found, or the header is not a valid
// YAML mapping, the whole input is returned as body with empty metadata.
func Split(data []byte) (*models.Metadata, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return models.NewMetadata(), string(data)
	}

	rest := trimmed[len(delim):]
	var block []byte
	var after []byte
	switch {
	case bytes.HasPrefix(rest, []byte("\n"+delim)):
		// Empty header.
		after = rest[1+len(delim):]
	default:
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return models.NewMetadata(), string(data)
		}
		block = rest[:idx]
		after = rest[idx+1+len(delim):]
	}
	body := strings.TrimLeft(string(after), "\n\r")

	meta, err := decode(block)
	if err != nil {
		return models.NewMetadata(), string(data)
	}
	return meta, body
}

func decode(block []byte) (*models.Metadata, error) {
	meta := models.NewMetadata()
	if len(bytes.TrimSpace(block)) == 0 {
		return meta, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return meta, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: header is %s, want mapping", kindName(root.Kind))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		var val any
		if err := v.Decode(&val); err != nil {
			return nil, fmt.Errorf("frontmatter: key %q: %w", k.Value, err)
		}
		meta.Set(k.Value, val)
	}
	return meta, nil
}

// Render encodes meta as a frontmatter block including both delimiters.
// Keys listed in order come first, then the remaining keys in insertion order.
func Render(meta *models.Metadata, order []string) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range meta.OrderedKeys(order) {
		v, _ := meta.Get(k)
		var vn yaml.Node
		if err := vn.Encode(Canonical(v)); err != nil {
			return nil, fmt.Errorf("frontmatter: encode %q: %w", k, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&vn,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	if len(root.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return nil, fmt.Errorf("frontmatter: render: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("frontmatter: render: %w", err)
		}
	}
	buf.WriteString(delim + "\n")
	return buf.Bytes(), nil
}

// maxExactInt bounds the whole floats that convert to int without loss.
const maxExactInt = 1 << 53

// Canonical returns v with numbers in the types Split decodes them to:
// integer kinds become int and whole floats within exact range become int.
// Other floats stay float64. Slices of any and string-keyed maps are
// converted recursively; everything else is returned unchanged.
func Canonical(v any) any {
	switch n := v.(type) {
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		if n > math.MaxInt64 {
			return n
		}
		return int(n)
	case float32:
		return Canonical(float64(n))
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < maxExactInt {
			return int(n)
		}
		return n
	case []any:
		out := make([]any, len(n))
		for i, x := range n {
			out[i] = Canonical(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, x := range n {
			out[k] = Canonical(x)
		}
		return out
	}
	return v
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
