package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const defaultExtension = "png"

// Payload is a self-describing encoded image: a mime type plus base64 data.
type Payload struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

func FromBytes(mimeType string, raw []byte) Payload {
	return Payload{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}
}

// ParseDataURI accepts "data:<mime>;base64,<data>". A bare base64 string is
// accepted with fallbackMime.
func ParseDataURI(value string, fallbackMime string) (Payload, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Payload{}, errors.New("empty data uri")
	}

	const prefix = "data:"
	if !strings.HasPrefix(value, prefix) {
		return Payload{MimeType: fallbackMime, Data: value}, nil
	}

	meta, data, ok := strings.Cut(value, ",")
	if !ok || data == "" {
		return Payload{}, errors.New("invalid data uri")
	}

	metaParts := strings.Split(strings.TrimPrefix(meta, prefix), ";")
	mimeType := strings.TrimSpace(metaParts[0])
	if mimeType == "" {
		mimeType = fallbackMime
	}

	base64Encoded := false
	for _, p := range metaParts[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			base64Encoded = true
		}
	}
	if !base64Encoded {
		return Payload{}, fmt.Errorf("data uri is not base64 encoded")
	}

	return Payload{MimeType: mimeType, Data: data}, nil
}

func (p Payload) IsZero() bool {
	return p.Data == ""
}

// String renders the payload as a data URI.
func (p Payload) String() string {
	if p.IsZero() {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", p.MimeType, p.Data)
}

func (p Payload) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

// Extension infers a file extension from the mime type, e.g. image/jpeg -> jpeg.
// Anything other than a plain alphabetic image subtype falls back to png.
func (p Payload) Extension() string {
	subtype, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(p.MimeType)), "image/")
	if !ok || subtype == "" {
		return defaultExtension
	}
	for _, r := range subtype {
		if r < 'a' || r > 'z' {
			return defaultExtension
		}
	}
	return subtype
}

// DownloadName is the file name offered for the index-th (zero based) generated design.
func DownloadName(index int, p Payload) string {
	return fmt.Sprintf("visionary_space_generated_%d.%s", index+1, p.Extension())
}
