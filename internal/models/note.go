// Package models defines the domain types shared by the note generation pipeline.
package models

import (
	"reflect"
	"slices"
)

// Metadata is an insertion-ordered frontmatter map. Values are strings,
// numbers, bools, lists or nested maps. A Metadata value belongs to a single
// document pipeline and is never shared between documents.
type Metadata struct {
	keys   []string
	values map[string]any
}

// NewMetadata returns an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

// MetadataFromMap copies m into a new Metadata with keys in sorted order,
// since Go maps carry no order of their own.
func MetadataFromMap(m map[string]any) *Metadata {
	md := NewMetadata()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		md.Set(k, m[k])
	}
	return md
}

// Set stores v under key. A new key is appended to the insertion order; an
// existing key keeps its position.
func (m *Metadata) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// SetIfEmpty stores v only when key is absent or holds an empty value.
// It reports whether the value was written.
func (m *Metadata) SetIfEmpty(key string, v any) bool {
	if cur, ok := m.values[key]; ok && !IsEmptyValue(cur) {
		return false
	}
	m.Set(key, v)
	return true
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (m *Metadata) String(key string) string {
	if s, ok := m.values[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key is present, regardless of its value.
func (m *Metadata) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// HasValue reports whether key is present with a non-empty value.
func (m *Metadata) HasValue(key string) bool {
	v, ok := m.values[key]
	return ok && !IsEmptyValue(v)
}

// Delete removes key.
func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of keys.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Clone returns a shallow copy that preserves key order.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{
		keys:   slices.Clone(m.keys),
		values: make(map[string]any, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Merge copies values from src whose keys are missing or empty in m.
// Explicit values already in m always win.
func (m *Metadata) Merge(src map[string]any) {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		m.SetIfEmpty(k, src[k])
	}
}

// Map returns an unordered copy of the values.
func (m *Metadata) Map() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// OrderedKeys returns the keys listed in declared (that are present) followed
// by all remaining keys in insertion order.
func (m *Metadata) OrderedKeys(declared []string) []string {
	out := make([]string, 0, len(m.keys))
	seen := make(map[string]struct{}, len(m.keys))
	for _, k := range declared {
		if _, ok := m.values[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range m.keys {
		if _, ok := seen[k]; ok {
			continue
		}
		out = append(out, k)
	}
	return out
}

// IsEmptyValue reports whether v counts as "no value" for merge purposes:
// nil, blank strings, and empty lists or maps.
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
