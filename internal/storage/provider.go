// Package storage writes generated notes under the output root.
package storage

// Provider is the interface for note file operations. All paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
}
