// Package b2blob stores blobs in a Backblaze B2 bucket.
package b2blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/kurin/blazer/b2"

	"virtualboard/internal/blob"
)

// Config holds account credentials.
type Config struct {
	AccountID string
	AppKey    string
	Bucket    string
	// PublicBaseURL overrides <download-url>/file/<bucket>.
	PublicBaseURL string
}

// Store writes objects into one bucket.
type Store struct {
	bucket  *b2.Bucket
	baseURL string
}

// New authorizes the account and resolves the bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.AccountID == "" || cfg.AppKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("b2blob: account id, app key and bucket are required")
	}
	client, err := b2.NewClient(ctx, cfg.AccountID, cfg.AppKey)
	if err != nil {
		return nil, fmt.Errorf("b2blob: create client: %w", err)
	}
	bucket, err := client.Bucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("b2blob: bucket %s: %w", cfg.Bucket, err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = publicBase(bucket.BaseURL(), bucket.Name())
	}
	return &Store{bucket: bucket, baseURL: strings.TrimRight(base, "/")}, nil
}

func publicBase(downloadURL, bucket string) string {
	return fmt.Sprintf("%s/file/%s", strings.TrimRight(downloadURL, "/"), bucket)
}

// Put streams the upload into a fresh object.
func (s *Store) Put(ctx context.Context, folder string, u blob.Upload) (blob.Object, error) {
	key := blob.NewKey(folder, u.Filename)
	var opts []b2.WriterOption
	if u.ContentType != "" {
		opts = append(opts, b2.WithAttrsOption(&b2.Attrs{ContentType: u.ContentType}))
	}
	w := s.bucket.Object(key).NewWriter(ctx, opts...)
	if _, err := io.Copy(w, u.Body); err != nil {
		w.Close()
		return blob.Object{}, fmt.Errorf("b2blob: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return blob.Object{}, fmt.Errorf("b2blob: close %s: %w", key, err)
	}
	return blob.Object{URL: s.baseURL + "/" + key, Key: key, ContentType: u.ContentType, Size: u.Size}, nil
}

// Delete removes the object addressed by publicURL.
func (s *Store) Delete(ctx context.Context, publicURL string) error {
	key, ok := s.KeyOf(publicURL)
	if !ok {
		return blob.ErrForeign
	}
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("b2blob: delete %s: %w", key, err)
	}
	return nil
}

// KeyOf maps a public URL back to its object name.
func (s *Store) KeyOf(publicURL string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
