package imagedata

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxUploadBytes is the largest accepted upload before encoding.
const MaxUploadBytes = 4 << 20

var (
	ErrEmpty           = errors.New("empty upload")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var defaultFormats = []string{"jpeg", "png", "webp", "gif", "bmp"}

// Upload is a raw file as received from a picker, form or chat.
type Upload struct {
	Data         []byte
	DeclaredMime string
	Filename     string
}

type Validator struct {
	maxBytes int
	formats  []string
}

func NewValidator(maxBytes int, formats ...string) *Validator {
	if maxBytes <= 0 || maxBytes > MaxUploadBytes {
		maxBytes = MaxUploadBytes
	}
	if len(formats) == 0 {
		formats = defaultFormats
	}
	return &Validator{maxBytes: maxBytes, formats: formats}
}

// Validate checks type and size and converts the upload into a Payload.
func (v *Validator) Validate(u Upload) (Payload, error) {
	if len(u.Data) == 0 {
		return Payload{}, ErrEmpty
	}

	mimeType := NormalizeMime(u.DeclaredMime)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = NormalizeMime(http.DetectContentType(u.Data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	if len(u.Data) > v.maxBytes {
		return Payload{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(u.Data), v.maxBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: decode image config: %v", ErrUnsupportedType, err)
	}
	if !v.allowed(format) {
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedType, format)
	}

	return FromBytes("image/"+format, u.Data), nil
}

func (v *Validator) allowed(format string) bool {
	for _, f := range v.formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// NormalizeMime strips parameters and lowercases a content type.
func NormalizeMime(value string) string {
	value = strings.TrimSpace(value)
	if before, _, ok := strings.Cut(value, ";"); ok {
		value = before
	}
	return strings.ToLower(strings.TrimSpace(value))
}
