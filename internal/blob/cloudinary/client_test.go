package cloudinary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtualboard/internal/blob"
)

func TestParseAssetURL(t *testing.T) {
	c := New("demo", "key", "secret", "")
	tests := []struct {
		name     string
		url      string
		wantType string
		wantID   string
		wantOK   bool
	}{
		{"image", "https://res.cloudinary.com/demo/image/upload/v1712/materials/abc.png", "image", "materials/abc", true},
		{"video no version", "https://res.cloudinary.com/demo/video/upload/recordings/r1.webm", "video", "recordings/r1", true},
		{"raw keeps ext", "https://res.cloudinary.com/demo/raw/upload/v3/docs/a.pdf", "raw", "docs/a.pdf", true},
		{"other cloud", "https://res.cloudinary.com/other/image/upload/v1/x.png", "", "", false},
		{"not cloudinary", "https://example.com/demo/image/upload/x.png", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, id, ok := c.ParseAssetURL(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestNewFromURL(t *testing.T) {
	c, err := NewFromURL("cloudinary://k:s@mycloud", "vb")
	require.NoError(t, err)
	assert.Equal(t, "mycloud", c.CloudName)
	assert.Equal(t, "k", c.APIKey)
	assert.Equal(t, "s", c.APISecret)

	_, err = NewFromURL("cloudinary://mycloud", "")
	assert.Error(t, err)
}

func TestSignIsOrderIndependentAndSkipsAPIKey(t *testing.T) {
	c := New("demo", "key", "secret", "")
	a := c.sign(map[string]string{"timestamp": "1", "folder": "x", "api_key": "key"})
	b := c.sign(map[string]string{"folder": "x", "timestamp": "1"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)
}

func TestPutAndDeleteAgainstFakeAPI(t *testing.T) {
	var destroyed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/demo/auto/upload"):
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "vb/materials", r.FormValue("folder"))
			assert.NotEmpty(t, r.FormValue("signature"))
			_, _ = w.Write([]byte(`{"public_id":"vb/materials/abc","secure_url":"https://res.cloudinary.com/demo/image/upload/v1/vb/materials/abc.png","resource_type":"image","bytes":3}`))
		case strings.HasSuffix(r.URL.Path, "/demo/image/destroy"):
			assert.NoError(t, r.ParseForm())
			destroyed = r.FormValue("public_id")
			_, _ = w.Write([]byte(`{"result":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "vb")
	c.APIBase = srv.URL

	obj, err := c.Put(context.Background(), "materials", blob.Upload{Filename: "a.png", Body: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, "vb/materials/abc", obj.Key)

	require.NoError(t, c.Delete(context.Background(), obj.URL))
	assert.Equal(t, "vb/materials/abc", destroyed)

	assert.ErrorIs(t, c.Delete(context.Background(), "/uploads/x.png"), blob.ErrForeign)
}
