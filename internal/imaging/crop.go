package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Artifact is a PNG image ready to be returned to an MCP client.
type Artifact struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode wraps img as a PNG artifact.
func Encode(img image.Image) (*Artifact, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return FromPNG(buf.Bytes(), b.Dx(), b.Dy()), nil
}

// FromPNG wraps already encoded PNG bytes.
func FromPNG(data []byte, width, height int) *Artifact {
	return &Artifact{
		Width:       width,
		Height:      height,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}
}

// Crop extracts a rectangular region from an image and optionally rescales
// it. A scale of 0 or 1 keeps the size.
func Crop(img image.Image, r image.Rectangle, scale float64) (*Artifact, error) {
	bounds := img.Bounds()
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: empty", r)
	}

	cropped := imaging.Crop(img, r)
	if scale != 1.0 && scale > 0 {
		w := max(1, int(float64(cropped.Bounds().Dx())*scale))
		h := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, w, h, imaging.Lanczos)
	}
	return Encode(cropped)
}

// CropZone crops a rendered canvas to one zone's bounds, clipped to the
// canvas.
func CropZone(img image.Image, tree *zone.Tree, id string, scale float64) (*Artifact, error) {
	z := tree.Find(id)
	if z == nil {
		return nil, fmt.Errorf("unknown zone %q", id)
	}
	r := z.Bounds.Rect().Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("zone %q lies outside the canvas", id)
	}
	return Crop(img, r, scale)
}
