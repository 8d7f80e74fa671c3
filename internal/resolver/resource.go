package resolver

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

var resourceFields = []string{"file_size", "file_extension", "mime_type", "modified"}

// mimeTypes covers the formats a vault usually holds. Anything else falls
// back to the system table, then to application/octet-stream.
var mimeTypes = map[string]string{
	"md":   "text/markdown",
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"pdf":  "application/pdf",
	"epub": "application/epub+zip",
	"srt":  "application/x-subrip",
	"vtt":  "text/vtt",
	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"mp3":  "audio/mpeg",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"json": "application/json",
	"csv":  "text/csv",
}

// MimeType returns the MIME type for a file extension (with or without dot).
func MimeType(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension("." + ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Resource derives file-stat metadata: size, extension, MIME type and the
// modification date.
type Resource struct{}

// NewResource returns a Resource resolver.
func NewResource() *Resource { return &Resource{} }

// FileType returns the resource kind.
func (*Resource) FileType() string { return string(KindResource) }

// CanResolve reports whether field is one of the file attribute fields.
func (*Resource) CanResolve(field string, _ *Context) bool {
	for _, f := range resourceFields {
		if f == field {
			return true
		}
	}
	return false
}

// Resolve returns a single file attribute field.
func (r *Resource) Resolve(ctx context.Context, field string, rc *Context) (any, error) {
	return resolveFrom(ctx, r, resourceFields, field, rc)
}

// ExtractMetadata stats the file and reports its size, extension, MIME type
// and modification date.
func (*Resource) ExtractMetadata(ctx context.Context, rc *Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, err := os.Stat(rc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("resolver: stat %s: %w", rc.FilePath, err)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rc.FilePath), "."))
	return map[string]any{
		"file_size":      fi.Size(),
		"file_extension": ext,
		"mime_type":      MimeType(ext),
		"modified":       fi.ModTime().UTC().Format("2006-01-02"),
	}, nil
}
