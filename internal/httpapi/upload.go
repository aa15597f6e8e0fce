package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
)

// formFile opens the multipart file under field. It returns nil when the field is absent; the
// caller must close the returned file.
func formFile(c *gin.Context, field string) (*blob.Upload, multipart.File, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Invalid, "could not read multipart form", err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "open upload", err)
	}
	return &blob.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, f, nil
}

// requiredFile is formFile for a mandatory field.
func requiredFile(c *gin.Context, field string) (blob.Upload, func(), error) {
	u, f, err := formFile(c, field)
	if err != nil {
		return blob.Upload{}, nil, err
	}
	if u == nil {
		return blob.Upload{}, nil, apperr.InvalidField(field, field+" file is required")
	}
	return *u, func() { f.Close() }, nil
}
