// Package blob defines the object storage contract used for lecture material, recordings,
// whiteboard snapshots and avatars, plus upload policy checks shared by every backend.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrForeign is returned by Delete when the URL was not issued by the store.
var ErrForeign = errors.New("blob: url not managed by this store")

// Upload is a single file to be stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Object describes a stored file.
type Object struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store persists files and hands back publicly reachable URLs.
type Store interface {
	Put(ctx context.Context, folder string, u Upload) (Object, error)
	// Delete removes the object behind url. Deleting a missing object is not an error.
	Delete(ctx context.Context, url string) error
}

// NewKey builds a collision-free object key inside folder, keeping the file extension.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\ ") {
		ext = ""
	}
	return path.Join(strings.Trim(folder, "/"), uuid.NewString()+ext)
}

// Reclaimer deletes blobs that are no longer referenced. Failures are retried out of band,
// so callers never see them.
type Reclaimer interface {
	Reclaim(ctx context.Context, reason string, urls ...string)
}
