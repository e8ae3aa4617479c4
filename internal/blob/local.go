// Package blob stores uploaded files and generated reports. The only backend
// is a local directory; references use the file:// scheme so a remote backend
// can slot in behind the same interface.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedScheme is returned for references this client cannot resolve.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

const scheme = "file://"

// Local stores blobs under a root directory. The stored path inside a
// reference is always relative to that root, so refs stay portable across
// deployments that move the directory.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the root directory if needed. baseURL is the public prefix
// used by SignedURL, typically the server's /files mount.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// UploadBytes writes content at path under the root and returns its reference.
// The contentType is recorded by remote backends; the local one ignores it.
func (l *Local) UploadBytes(_ context.Context, content []byte, path, _ string) (string, error) {
	path = filepath.ToSlash(filepath.Clean(path))
	if strings.HasPrefix(path, "..") {
		return "", fmt.Errorf("storage path escapes root: %s", path)
	}
	full := filepath.Join(l.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", err
	}
	return scheme + path, nil
}

// DownloadToLocal resolves ref to a readable local path. For the file scheme
// that is the stored file itself; no copy is made.
func (l *Local) DownloadToLocal(_ context.Context, ref string) (string, error) {
	rel, err := l.relPath(ref)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.root, filepath.FromSlash(rel))
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("blob %s: %w", ref, err)
	}
	return full, nil
}

// SignedURL returns a download URL for ref. Local storage has no signing; the
// URL simply points at the server's file mount.
func (l *Local) SignedURL(_ context.Context, ref string) (string, error) {
	rel, err := l.relPath(ref)
	if err != nil {
		return "", err
	}
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(rel, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return l.baseURL + "/" + strings.Join(escaped, "/"), nil
}

// Open returns the root-relative path for ref, for serving over HTTP.
func (l *Local) Open(ref string) (string, error) {
	rel, err := l.relPath(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(rel)), nil
}

func (l *Local) relPath(ref string) (string, error) {
	if !strings.HasPrefix(ref, scheme) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, ref)
	}
	rel := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(ref, scheme)))
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("bad storage reference: %s", ref)
	}
	return rel, nil
}
