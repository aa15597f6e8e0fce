// Package local stores blobs on disk; the directory is served by the API under BaseURL.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"virtualboard/internal/blob"
)

// Disk writes uploads below Root and addresses them as BaseURL/<key>.
type Disk struct {
	Root    string
	BaseURL string
}

// New creates the root directory if needed.
func New(root, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local blob: create root: %w", err)
	}
	return &Disk{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes the upload to disk.
func (d *Disk) Put(ctx context.Context, folder string, u blob.Upload) (blob.Object, error) {
	if err := ctx.Err(); err != nil {
		return blob.Object{}, err
	}
	key := blob.NewKey(folder, u.Filename)
	full := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return blob.Object{}, fmt.Errorf("local blob: mkdir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return blob.Object{}, fmt.Errorf("local blob: create: %w", err)
	}
	n, err := io.Copy(f, u.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return blob.Object{}, fmt.Errorf("local blob: write: %w", err)
	}
	return blob.Object{URL: d.BaseURL + "/" + key, Key: key, ContentType: u.ContentType, Size: n}, nil
}

// Delete removes the file behind url.
func (d *Disk) Delete(_ context.Context, url string) error {
	key, ok := d.keyOf(url)
	if !ok {
		return blob.ErrForeign
	}
	err := os.Remove(filepath.Join(d.Root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local blob: remove: %w", err)
	}
	return nil
}

func (d *Disk) keyOf(url string) (string, bool) {
	prefix := d.BaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := path.Clean(strings.TrimPrefix(url, prefix))
	if key == "." || strings.HasPrefix(key, "..") || strings.HasPrefix(key, "/") {
		return "", false
	}
	return key, true
}
