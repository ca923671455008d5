// Package storage is the object store for photo blobs. The filesystem
// implementation serves deployments where media lives next to the daemon;
// records only ever hold the resulting URL.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type FS struct {
	baseDir string
	baseURL string
}

// NewFS stores blobs under baseDir and returns URLs rooted at baseURL.
func NewFS(baseDir, baseURL string) *FS {
	return &FS{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *FS) Upload(ctx context.Context, data []byte, path string) (string, error) {
	clean, err := f.cleanPath(path)
	if err != nil {
		return "", err
	}
	full := filepath.Join(f.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", clean, err)
	}
	return f.baseURL + "/" + clean, nil
}

func (f *FS) Delete(ctx context.Context, url string) error {
	rel := strings.TrimPrefix(url, f.baseURL+"/")
	clean, err := f.cleanPath(rel)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(f.baseDir, filepath.FromSlash(clean)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FS) cleanPath(path string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean("/" + path))[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return clean, nil
}
