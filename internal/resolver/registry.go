package resolver

import (
	"slices"
)

// Registry maps names and file types to resolvers.
//
// Registry is not safe for concurrent writes. Register everything during
// setup; lookups may then run concurrently.
type Registry struct {
	named     map[string]Resolver
	fileTypes map[string]Resolver
}

// Entry pairs a file type with its resolver.
type Entry struct {
	FileType string
	Resolver Resolver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		named:     make(map[string]Resolver),
		fileTypes: make(map[string]Resolver),
	}
}

// Register stores r under name, replacing any previous resolver.
func (r *Registry) Register(name string, res Resolver) {
	r.named[name] = res
}

// RegisterKind stores a built-in resolver.
func (r *Registry) RegisterKind(k Kind, res Resolver) {
	r.Register(string(k), res)
}

// RegisterFileTypeResolver stores res for fileType. Re-registering a file
// type swaps the instance and leaves Count unchanged.
func (r *Registry) RegisterFileTypeResolver(fileType string, res Resolver) {
	r.fileTypes[fileType] = res
}

// Get returns the resolver registered under name.
func (r *Registry) Get(name string) (Resolver, bool) {
	res, ok := r.named[name]
	return res, ok
}

// GetKind returns a built-in resolver.
func (r *Registry) GetKind(k Kind) (Resolver, bool) {
	return r.Get(string(k))
}

// GetFileTypeResolver returns the resolver for fileType.
func (r *Registry) GetFileTypeResolver(fileType string) (Resolver, bool) {
	res, ok := r.fileTypes[fileType]
	return res, ok
}

// GetAllFileTypeResolvers returns every file-type registration sorted by
// file type.
func (r *Registry) GetAllFileTypeResolvers() []Entry {
	out := make([]Entry, 0, len(r.fileTypes))
	for ft, res := range r.fileTypes {
		out = append(out, Entry{FileType: ft, Resolver: res})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.FileType < b.FileType:
			return -1
		case a.FileType > b.FileType:
			return 1
		}
		return 0
	})
	return out
}

// Count returns the number of registrations, named and per file type.
func (r *Registry) Count() int {
	return len(r.named) + len(r.fileTypes)
}

// NewDefault returns a Registry holding the built-in resolvers. Named kinds
// are registered under their Kind and file types under "markdown",
// "resource", "video" and "transcript".
func NewDefault(tags TagOptions) *Registry {
	md := NewMarkdown()
	res := NewResource()
	tr := NewTranscript()

	r := NewRegistry()
	r.RegisterKind(KindMarkdown, md)
	r.RegisterKind(KindResource, res)
	r.RegisterKind(KindTags, NewTags(tags))
	r.RegisterKind(KindTranscript, tr)

	r.RegisterFileTypeResolver("markdown", md)
	r.RegisterFileTypeResolver("resource", res)
	r.RegisterFileTypeResolver("video", tr)
	r.RegisterFileTypeResolver("transcript", tr)
	return r
}
