package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/blob"
)

func TestDiskPutDelete(t *testing.T) {
	root := t.TempDir()
	d, err := New(root, "/uploads/")
	require.NoError(t, err)

	obj, err := d.Put(context.Background(), "materials", blob.Upload{
		Filename: "notes.PDF",
		Body:     strings.NewReader("%PDF-1.4 hello"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.URL, "/uploads/materials/"))
	assert.True(t, strings.HasSuffix(obj.URL, ".pdf"))
	assert.EqualValues(t, 14, obj.Size)

	full := filepath.Join(root, filepath.FromSlash(obj.Key))
	_, err = os.Stat(full)
	require.NoError(t, err)

	require.NoError(t, d.Delete(context.Background(), obj.URL))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, d.Delete(context.Background(), obj.URL))
}

func TestDiskDeleteRejectsForeignAndTraversal(t *testing.T) {
	d, err := New(t.TempDir(), "/uploads")
	require.NoError(t, err)

	tests := []string{
		"https://res.cloudinary.com/demo/image/upload/x.png",
		"/uploads/../etc/passwd",
		"/uploads/",
	}
	for _, url := range tests {
		t.Run(url, func(t *testing.T) {
			assert.ErrorIs(t, d.Delete(context.Background(), url), blob.ErrForeign)
		})
	}
}
