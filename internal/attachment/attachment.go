// Package attachment decodes, validates and resizes images attached to entries.
package attachment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
)

// DefaultMaxBytes caps decoded image payloads when no limit is configured.
const DefaultMaxBytes = 10 << 20 // 10 MB

var mimeToExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Ext returns the file extension for a supported MIME type, or "".
func Ext(mime string) string {
	return mimeToExt[mime]
}

// MIMEFromExt returns the MIME type for a supported file extension, or "".
func MIMEFromExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		return "image/jpeg"
	}
	for m, e := range mimeToExt {
		if e == ext {
			return m
		}
	}
	return ""
}

// DecodeDataURI parses a data:<mediatype>;base64,<data> URI into an image.
// The sniffed content type must match the declared one.
func DecodeDataURI(uri string, maxBytes int64) (models.Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return models.Image{}, fmt.Errorf("%w: not a data URI", apperr.ErrInvalidImage)
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return models.Image{}, fmt.Errorf("%w: missing comma separator", apperr.ErrInvalidImage)
	}
	if !strings.Contains(meta, ";base64") {
		return models.Image{}, fmt.Errorf("%w: only base64 data URIs are supported", apperr.ErrInvalidImage)
	}
	if limit := limitOrDefault(maxBytes); int64(base64.StdEncoding.DecodedLen(len(encoded))) > limit+2 {
		return models.Image{}, fmt.Errorf("%w: larger than %d bytes", apperr.ErrInvalidImage, limit)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return models.Image{}, fmt.Errorf("%w: invalid base64 data: %v", apperr.ErrInvalidImage, err)
		}
	}

	declared := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return build(data, declared, maxBytes)
}

// Read consumes an uploaded image from r. declared may be empty, in which
// case the sniffed type is used.
func Read(r io.Reader, declared string, maxBytes int64) (models.Image, error) {
	limit := limitOrDefault(maxBytes)
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("attachment: read: %w", err)
	}
	return build(data, declared, maxBytes)
}

// Sniff returns the MIME type detected from data, failing for anything
// other than a supported image format.
func Sniff(data []byte) (string, error) {
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	if _, ok := mimeToExt[detected]; !ok {
		return "", fmt.Errorf("%w: unsupported content type %s", apperr.ErrInvalidImage, detected)
	}
	return detected, nil
}

func build(data []byte, declared string, maxBytes int64) (models.Image, error) {
	limit := limitOrDefault(maxBytes)
	if len(data) == 0 {
		return models.Image{}, fmt.Errorf("%w: empty payload", apperr.ErrInvalidImage)
	}
	if int64(len(data)) > limit {
		return models.Image{}, fmt.Errorf("%w: larger than %d bytes", apperr.ErrInvalidImage, limit)
	}
	detected, err := Sniff(data)
	if err != nil {
		return models.Image{}, err
	}
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if declared != "" && declared != "application/octet-stream" && declared != detected {
		return models.Image{}, fmt.Errorf("%w: content does not match %s (detected: %s)", apperr.ErrInvalidImage, declared, detected)
	}
	return models.Image{Data: data, MIMEType: detected}, nil
}

// Thumbnail scales img to fit within a size×size square. JPEG sources stay
// JPEG; everything else is re-encoded as PNG to keep transparency.
func Thumbnail(img models.Image, size int) ([]byte, string, error) {
	if size <= 0 {
		size = 320
	}
	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("attachment: decode: %w", err)
	}
	thumb := imaging.Fit(src, size, size, imaging.Lanczos)

	format, mime := imaging.PNG, "image/png"
	if img.MIMEType == "image/jpeg" {
		format, mime = imaging.JPEG, "image/jpeg"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, "", fmt.Errorf("attachment: encode: %w", err)
	}
	return buf.Bytes(), mime, nil
}

// DataURI renders img as a base64 data URI.
func DataURI(img models.Image) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func limitOrDefault(n int64) int64 {
	if n <= 0 {
		return DefaultMaxBytes
	}
	return n
}
