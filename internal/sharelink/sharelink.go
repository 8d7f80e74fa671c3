// Package sharelink issues public links to source files.
package sharelink

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Provider issues a share link for a vault file. ok is false when the
// provider has nothing to offer for path; that is not an error.
type Provider interface {
	CreateShareLink(ctx context.Context, path string) (link string, ok bool, err error)
}

// None never issues links.
type None struct{}

func (None) CreateShareLink(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// Static maps a vault file to baseURL + its escaped vault-relative path.
// It fits vaults mirrored to static hosting or a synced drive.
type Static struct {
	base      *url.URL
	vaultRoot string
}

// NewStatic returns a Static provider. An empty baseURL yields None.
func NewStatic(baseURL, vaultRoot string) (Provider, error) {
	if baseURL == "" {
		return None{}, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("sharelink: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("sharelink: base url %q must be absolute", baseURL)
	}
	return &Static{base: u, vaultRoot: vaultRoot}, nil
}

func (s *Static) CreateShareLink(ctx context.Context, path string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	rel, err := filepath.Rel(s.vaultRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false, nil
	}
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + filepath.ToSlash(rel)
	u.RawPath = ""
	return u.String(), true, nil
}
