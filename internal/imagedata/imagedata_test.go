package imagedata

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestParseDataURI(t *testing.T) {
	p, err := ParseDataURI("data:image/jpeg;base64,AAAA", "image/png")
	if err != nil {
		t.Fatalf("ParseDataURI error: %v", err)
	}
	if p.MimeType != "image/jpeg" || p.Data != "AAAA" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if p.String() != "data:image/jpeg;base64,AAAA" {
		t.Errorf("round trip mismatch: %s", p.String())
	}

	bare, err := ParseDataURI("QUJD", "image/png")
	if err != nil {
		t.Fatalf("bare base64 error: %v", err)
	}
	if bare.MimeType != "image/png" {
		t.Errorf("expected fallback mime, got %s", bare.MimeType)
	}

	for _, bad := range []string{"", "data:image/png;base64,", "data:image/png,plain"} {
		if _, err := ParseDataURI(bad, "image/png"); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "jpeg"},
		{"image/webp", "webp"},
		{"IMAGE/PNG", "png"},
		{"image/svg+xml", "png"},
		{"application/octet-stream", "png"},
		{"", "png"},
	}
	for _, tt := range tests {
		if got := (Payload{MimeType: tt.mime}).Extension(); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestDownloadName(t *testing.T) {
	got := DownloadName(2, Payload{MimeType: "image/jpeg", Data: "x"})
	if got != "visionary_space_generated_3.jpeg" {
		t.Errorf("unexpected name %s", got)
	}
}

func TestValidatorAcceptsRaster(t *testing.T) {
	v := NewValidator(0)
	raw := samplePNG(t)

	p, err := v.Validate(Upload{Data: raw, DeclaredMime: "image/png"})
	if err != nil {
		t.Fatalf("Validate png: %v", err)
	}
	if p.MimeType != "image/png" {
		t.Errorf("unexpected mime %s", p.MimeType)
	}
	decoded, err := p.Bytes()
	if err != nil || !bytes.Equal(decoded, raw) {
		t.Error("payload should round trip the original bytes")
	}

	j, err := v.Validate(Upload{Data: sampleJPEG(t), DeclaredMime: "application/octet-stream"})
	if err != nil {
		t.Fatalf("Validate jpeg: %v", err)
	}
	if j.MimeType != "image/jpeg" {
		t.Errorf("sniffed mime should be image/jpeg, got %s", j.MimeType)
	}
}

func TestValidatorRejects(t *testing.T) {
	v := NewValidator(0)
	oversized := append(samplePNG(t), make([]byte, 5<<20)...)

	tests := []struct {
		name   string
		upload Upload
		want   error
	}{
		{"empty", Upload{}, ErrEmpty},
		{"text", Upload{Data: []byte("hello world"), DeclaredMime: "text/plain"}, ErrUnsupportedType},
		{"sniffed text", Upload{Data: []byte("just some words")}, ErrUnsupportedType},
		{"five megabyte png", Upload{Data: oversized, DeclaredMime: "image/png"}, ErrTooLarge},
		{"corrupt image", Upload{Data: []byte("not really a png"), DeclaredMime: "image/png"}, ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.upload)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidatorFormatAllowList(t *testing.T) {
	v := NewValidator(0, "jpeg")
	if _, err := v.Validate(Upload{Data: samplePNG(t), DeclaredMime: "image/png"}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("png should be rejected by a jpeg-only validator, got %v", err)
	}
}

func TestNewValidatorCapsMaxBytes(t *testing.T) {
	over := Upload{Data: make([]byte, MaxUploadBytes+1), DeclaredMime: "image/png"}
	if _, err := NewValidator(10 << 20).Validate(over); !errors.Is(err, ErrTooLarge) {
		t.Errorf("limit above %d should be capped, got %v", MaxUploadBytes, err)
	}
	small := Upload{Data: make([]byte, 1025), DeclaredMime: "image/png"}
	if _, err := NewValidator(1024).Validate(small); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected a 1024 byte limit, got %v", err)
	}
}
