package blob

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"virtualboard/internal/apperr"
)

const sniffLen = 3072

var officeTypes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".pdf":  "application/pdf",
	".webm": "video/webm",
	".mp4":  "video/mp4",
}

// Policy bounds what an upload may contain.
type Policy struct {
	MaxBytes int64
	// Allowed lists exact MIME types or prefixes ending in "/" (e.g. "image/").
	Allowed []string
}

// MaterialPolicy allows images, PDF, video and Word/PowerPoint documents.
func MaterialPolicy(maxBytes int64) Policy {
	return Policy{
		MaxBytes: maxBytes,
		Allowed: []string{
			"image/",
			"video/",
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		},
	}
}

// VideoPolicy allows video only.
func VideoPolicy(maxBytes int64) Policy {
	return Policy{MaxBytes: maxBytes, Allowed: []string{"video/"}}
}

// ImagePolicy allows images only.
func ImagePolicy(maxBytes int64) Policy {
	return Policy{MaxBytes: maxBytes, Allowed: []string{"image/"}}
}

// Check validates u against the policy. The returned Upload has its ContentType replaced by the
// sniffed type and a Body that still yields the full content.
func (p Policy) Check(field string, u Upload) (Upload, error) {
	if u.Body == nil {
		return u, apperr.InvalidField(field, field+" file is required")
	}
	if p.MaxBytes > 0 && u.Size > p.MaxBytes {
		return u, apperr.InvalidField(field, fmt.Sprintf("file exceeds %d bytes", p.MaxBytes))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return u, apperr.Wrap(apperr.Invalid, "unreadable upload", err)
	}
	head = head[:n]
	if n == 0 {
		return u, apperr.InvalidField(field, field+" file is empty")
	}

	ct := DetectContentType(head, u.Filename, u.ContentType)
	if !p.allows(ct) {
		return u, apperr.InvalidField(field, fmt.Sprintf("file type %s is not allowed", ct))
	}

	u.ContentType = ct
	u.Body = io.MultiReader(bytes.NewReader(head), u.Body)
	if p.MaxBytes > 0 {
		u.Body = io.LimitReader(u.Body, p.MaxBytes)
	}
	return u, nil
}

func (p Policy) allows(ct string) bool {
	for _, a := range p.Allowed {
		if strings.HasSuffix(a, "/") && strings.HasPrefix(ct, a) {
			return true
		}
		if a == ct {
			return true
		}
	}
	return false
}

// DetectContentType sniffs the content and falls back to the extension, then the declared type,
// when sniffing only finds a container format.
func DetectContentType(head []byte, filename, declared string) string {
	detected := mimetype.Detect(head)
	ct := stripParams(detected.String())
	switch ct {
	case "application/zip", "application/octet-stream", "application/x-ole-storage", "text/plain":
		ext := strings.ToLower(filepath.Ext(filename))
		if t, ok := officeTypes[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return stripParams(t)
		}
		if declared != "" {
			return stripParams(declared)
		}
	}
	return ct
}

func stripParams(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}
