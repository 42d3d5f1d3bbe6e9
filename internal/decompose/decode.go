package decompose

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a layer document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by extension; anything but .yaml/.yml is
// JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Limits bounds what a decode may allocate. Zero disables a limit.
type Limits struct {
	// MaxFileBytes caps the serialized document size.
	MaxFileBytes int64

	// MaxPixelArea caps both the document canvas and every embedded raster.
	MaxPixelArea int64
}

// DefaultLimits are 64 MiB and 64 megapixels.
func DefaultLimits() Limits {
	return Limits{MaxFileBytes: 64 << 20, MaxPixelArea: 64 << 20}
}

// Decode reads a layer document.
//
// Reading stops one byte past MaxFileBytes, so an oversized stream is
// rejected without buffering it. The canvas area is checked against
// MaxPixelArea before any layer payload is looked at.
func Decode(r io.Reader, format Format, lim Limits) (*Document, error) {
	src := r
	if lim.MaxFileBytes > 0 {
		src = io.LimitReader(r, lim.MaxFileBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("read: %w", err)}
	}
	if lim.MaxFileBytes > 0 && int64(len(data)) > lim.MaxFileBytes {
		return nil, &SizeLimitExceeded{Kind: LimitFileBytes, Limit: lim.MaxFileBytes, Actual: int64(len(data))}
	}

	var doc Document
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON, "":
		err = json.Unmarshal(data, &doc)
	default:
		return nil, &DecodeError{Err: fmt.Errorf("unknown document format %q", format)}
	}
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	if err := checkCanvas(doc.Width, doc.Height, lim); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeFile stats the file before reading so the size limit applies
// without opening large files.
func DecodeFile(path string, lim Limits) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if lim.MaxFileBytes > 0 && info.Size() > lim.MaxFileBytes {
		return nil, &SizeLimitExceeded{Kind: LimitFileBytes, Limit: lim.MaxFileBytes, Actual: info.Size()}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer f.Close()

	return Decode(f, FormatFromPath(path), lim)
}

func checkCanvas(w, h int, lim Limits) error {
	if w <= 0 || h <= 0 {
		return &DecodeError{Err: fmt.Errorf("invalid canvas size %dx%d", w, h)}
	}
	area := int64(w) * int64(h)
	if lim.MaxPixelArea > 0 && area > lim.MaxPixelArea {
		return &SizeLimitExceeded{Kind: LimitPixelArea, Limit: lim.MaxPixelArea, Actual: area}
	}
	return nil
}

var errEmptyCanvas = errors.New("empty canvas payload")

// decodeCanvas decodes a base64 or data-URL raster. The image header is
// read first so an oversized raster is rejected before its pixels are
// allocated.
func decodeCanvas(payload string, lim Limits) (image.Image, error) {
	s := strings.TrimSpace(payload)
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, errors.New("malformed data URL")
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, errEmptyCanvas
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, fmt.Errorf("canvas base64: %w", err)
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("canvas header: %w", err)
	}
	area := int64(cfg.Width) * int64(cfg.Height)
	if lim.MaxPixelArea > 0 && area > lim.MaxPixelArea {
		return nil, &SizeLimitExceeded{Kind: LimitPixelArea, Limit: lim.MaxPixelArea, Actual: area}
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("canvas decode: %w", err)
	}
	return img, nil
}
