// Package ossblob stores blobs in an Aliyun OSS bucket.
package ossblob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"virtualboard/internal/blob"
)

// Config holds bucket credentials.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// PublicBaseURL overrides the default https://<bucket>.<endpoint> base (e.g. a CDN domain).
	PublicBaseURL string
}

// Store puts objects into a single bucket.
type Store struct {
	bucket  *oss.Bucket
	baseURL string
}

// New connects to the bucket.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("ossblob: endpoint, access key, secret and bucket are required")
	}
	client, err := oss.New(normalizeEndpoint(cfg.Endpoint), cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("ossblob: oss.New: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ossblob: bucket %s: %w", cfg.Bucket, err)
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = "https://" + cfg.Bucket + "." + hostOf(cfg.Endpoint)
	}
	return &Store{bucket: bucket, baseURL: strings.TrimRight(base, "/")}, nil
}

// Put uploads the file under a fresh key.
func (s *Store) Put(ctx context.Context, folder string, u blob.Upload) (blob.Object, error) {
	key := blob.NewKey(folder, u.Filename)
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if u.ContentType != "" {
		opts = append(opts, oss.ContentType(u.ContentType))
	}
	if err := s.bucket.PutObject(key, u.Body, opts...); err != nil {
		return blob.Object{}, fmt.Errorf("ossblob: put %s: %w", key, err)
	}
	return blob.Object{URL: s.baseURL + "/" + key, Key: key, ContentType: u.ContentType, Size: u.Size}, nil
}

// Delete removes the object addressed by publicURL.
func (s *Store) Delete(ctx context.Context, publicURL string) error {
	key, ok := s.KeyOf(publicURL)
	if !ok {
		return blob.ErrForeign
	}
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 404 {
			return nil
		}
		return fmt.Errorf("ossblob: delete %s: %w", key, err)
	}
	return nil
}

// KeyOf maps a public URL back to its object key.
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

func normalizeEndpoint(ep string) string {
	if strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	return "https://" + ep
}

func hostOf(ep string) string {
	ep = strings.TrimPrefix(ep, "https://")
	ep = strings.TrimPrefix(ep, "http://")
	return strings.TrimRight(ep, "/")
}
