package attachment

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeDataURI(t *testing.T) {
	data := pngBytes(t, 4, 4)
	img, err := DecodeDataURI(DataURI(models.Image{Data: data, MIMEType: "image/png"}), 0)
	if err != nil {
		t.Fatalf("DecodeDataURI: %v", err)
	}
	if img.MIMEType != "image/png" || !bytes.Equal(img.Data, data) {
		t.Errorf("decoded = %s, %d bytes", img.MIMEType, len(img.Data))
	}
}

func TestDecodeDataURIRejects(t *testing.T) {
	data := pngBytes(t, 4, 4)
	tests := map[string]string{
		"not a data uri":    "https://example.com/a.png",
		"no comma":          "data:image/png;base64",
		"not base64":        "data:image/png,plain",
		"bad base64":        "data:image/png;base64,!!!",
		"mismatched type":   DataURI(models.Image{Data: data, MIMEType: "image/jpeg"}),
		"unsupported bytes": DataURI(models.Image{Data: []byte("hello world"), MIMEType: "text/plain"}),
	}
	for name, uri := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeDataURI(uri, 0); !errors.Is(err, apperr.ErrInvalidImage) {
				t.Errorf("error = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestReadEnforcesLimit(t *testing.T) {
	data := pngBytes(t, 64, 64)
	if _, err := Read(bytes.NewReader(data), "", int64(len(data)-1)); !errors.Is(err, apperr.ErrInvalidImage) {
		t.Errorf("oversized upload error = %v", err)
	}
	img, err := Read(bytes.NewReader(data), "image/png", 0)
	if err != nil || img.MIMEType != "image/png" {
		t.Errorf("Read = %+v, %v", img.MIMEType, err)
	}
}

func TestThumbnailFitsSquare(t *testing.T) {
	data := pngBytes(t, 400, 100)
	out, mime, err := Thumbnail(models.Image{Data: data, MIMEType: "image/png"}, 80)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %s", mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 80 || cfg.Height != 20 {
		t.Errorf("thumbnail = %dx%d, want 80x20", cfg.Width, cfg.Height)
	}
}

func TestMIMEFromExt(t *testing.T) {
	if MIMEFromExt(".JPEG") != "image/jpeg" || MIMEFromExt(".webp") != "image/webp" {
		t.Error("extension lookup failed")
	}
	if MIMEFromExt(".txt") != "" || !strings.HasPrefix(Ext("image/gif"), ".") {
		t.Error("unexpected mapping")
	}
}
