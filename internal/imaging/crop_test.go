package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

func decodeArtifact(t *testing.T, a *Artifact) image.Image {
	t.Helper()
	if a.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", a.MimeType)
	}
	raw, err := base64.StdEncoding.DecodeString(a.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != a.Width || b.Dy() != a.Height {
		t.Errorf("artifact says %dx%d, png is %dx%d", a.Width, a.Height, b.Dx(), b.Dy())
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createSplitImage(100, 100)

	tests := []struct {
		name          string
		rect          image.Rectangle
		scale         float64
		wantW, wantH  int
	}{
		{"no scale", image.Rect(0, 0, 50, 50), 1.0, 50, 50},
		{"zero scale keeps size", image.Rect(10, 10, 30, 20), 0, 20, 10},
		{"scale up", image.Rect(0, 0, 50, 50), 2.0, 100, 100},
		{"scale down", image.Rect(0, 0, 100, 100), 0.5, 50, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Crop(img, tt.rect, tt.scale)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if got.Width != tt.wantW || got.Height != tt.wantH {
				t.Errorf("dimensions: got %dx%d, want %dx%d", got.Width, got.Height, tt.wantW, tt.wantH)
			}
			decodeArtifact(t, got)
		})
	}
}

func TestCrop_Invalid(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 60, 10),
		image.Rect(-5, 0, 10, 10),
		image.Rect(10, 10, 10, 20),
	} {
		if _, err := Crop(img, r, 1); err == nil {
			t.Errorf("%v should fail", r)
		}
	}
}

func TestCropZone(t *testing.T) {
	img := createSplitImage(100, 100)
	tree := &zone.Tree{Width: 100, Height: 100, Roots: []*zone.Zone{
		{ID: "badge", Kind: zone.KindVector, Visible: true, Bounds: zone.Bounds{X: 80, Y: 10, Width: 40, Height: 20}},
		{ID: "off", Kind: zone.KindVector, Visible: true, Bounds: zone.Bounds{X: 200, Y: 200, Width: 10, Height: 10}},
	}}

	got, err := CropZone(img, tree, "badge", 1)
	if err != nil {
		t.Fatalf("CropZone failed: %v", err)
	}
	// Clipped to the canvas: x 80-100.
	if got.Width != 20 || got.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 20x20", got.Width, got.Height)
	}
	out := decodeArtifact(t, got)
	if r, _, b, _ := out.At(5, 5).RGBA(); r != 0 || b>>8 != 255 {
		t.Errorf("crop should be blue, got r=%d b=%d", r>>8, b>>8)
	}

	if _, err := CropZone(img, tree, "off", 1); err == nil {
		t.Error("zone outside the canvas should fail")
	}
	if _, err := CropZone(img, tree, "missing", 1); err == nil {
		t.Error("unknown zone should fail")
	}
}
