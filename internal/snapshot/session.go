package snapshot

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session is what the persistence collaborator stores: the editable state
// together with the image it applies to.
type Session struct {
	ID               string    `json:"id,omitempty"`
	ImageDataURL     string    `json:"imageDataUrl"`
	OriginalFileName string    `json:"originalFileName"`
	Snapshot         *Snapshot `json:"snapshot"`
	IsTemplate       bool      `json:"isTemplate"`
	IsPublic         bool      `json:"isPublic"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

var (
	ErrMissingImage    = errors.New("imageDataUrl is required")
	ErrMissingSnapshot = errors.New("snapshot is required")
)

// Validate checks the fields a stored session cannot do without.
func (s Session) Validate() error {
	if s.ImageDataURL == "" {
		return ErrMissingImage
	}
	if s.Snapshot == nil {
		return ErrMissingSnapshot
	}
	return nil
}

// IsImageMIME reports whether an upload with this content type is accepted.
// An unknown (empty) type is let through and left to the decoder.
func IsImageMIME(mime string) bool {
	return mime == "" || strings.HasPrefix(mime, "image/")
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a data URL into its media type and payload. Both
// base64 and plain (percent-free) payloads are accepted.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL: missing comma")
	}

	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !isBase64 {
		return mime, []byte(payload), nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL payload: %w", err)
	}
	return mime, data, nil
}
