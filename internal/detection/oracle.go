package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/template-tools-mcp/internal/decompose"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Options tunes the heuristic oracle. Zero values take the defaults.
type Options struct {
	// MinArea drops rectangles enclosing fewer pixels. Default 400.
	MinArea int
	// Tolerance is the minimum rectangularity score. Default 0.85.
	Tolerance float64
	// MinRadius and MaxRadius bound circle detection. MaxRadius < 0
	// disables it. Defaults 8 and 48.
	MinRadius, MaxRadius int
	// TextConfidence is the minimum text strip score. Default 0.3.
	TextConfidence float64
	// PhotoSpread is the luma standard deviation above which a rectangle
	// counts as a photo rather than a flat border panel. Default 20.
	PhotoSpread float64

	Logger zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.MinArea <= 0 {
		o.MinArea = 400
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 0.85
	}
	if o.MinRadius <= 0 {
		o.MinRadius = 8
	}
	if o.MaxRadius == 0 {
		o.MaxRadius = 48
	}
	if o.TextConfidence <= 0 {
		o.TextConfidence = 0.3
	}
	if o.PhotoSpread <= 0 {
		o.PhotoSpread = 20
	}
	return o
}

// Detector is a pixel-heuristic region oracle. It needs no external
// services and is always available.
type Detector struct {
	opts Options
}

// NewDetector creates a Detector.
func NewDetector(opts Options) *Detector {
	return &Detector{opts: opts.withDefaults()}
}

// Name identifies the oracle in logs and tool output.
func (d *Detector) Name() string { return "heuristic" }

// Regions classifies img into regions: the whole frame as background,
// textured rectangles as photo, flat rectangles as border, circles as
// logo and horizontally structured strips as text. Bounds are in img
// coordinates.
func (d *Detector) Regions(ctx context.Context, img image.Image) ([]decompose.Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("detect regions: empty image")
	}
	regions := []decompose.Region{{
		ID:         "background",
		Type:       string(zone.SemanticBackground),
		Bounds:     rect(b),
		Confidence: 1,
	}}

	em := newEdgeMap(img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var photos, borders int
	for _, s := range rectangles(em, d.opts.MinArea, d.opts.Tolerance) {
		r := s.rect.Add(b.Min)
		sem := zone.SemanticBorder
		id := fmt.Sprintf("border-%d", borders+1)
		if lumaSpread(img, r) > d.opts.PhotoSpread {
			sem = zone.SemanticPhoto
			photos++
			id = fmt.Sprintf("photo-%d", photos)
		} else {
			borders++
		}
		regions = append(regions, decompose.Region{ID: id, Type: string(sem), Bounds: rect(r), Confidence: s.confidence})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.opts.MaxRadius > 0 {
		for i, s := range circles(em, d.opts.MinRadius, d.opts.MaxRadius) {
			regions = append(regions, decompose.Region{
				ID:         fmt.Sprintf("logo-%d", i+1),
				Type:       string(zone.SemanticLogo),
				Bounds:     rect(s.rect.Add(b.Min)),
				Confidence: s.confidence,
			})
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	for i, s := range textStrips(em, d.opts.TextConfidence) {
		regions = append(regions, decompose.Region{
			ID:         fmt.Sprintf("text-%d", i+1),
			Type:       string(zone.SemanticText),
			Bounds:     rect(s.rect.Add(b.Min)),
			Confidence: s.confidence,
		})
	}

	d.opts.Logger.Debug().
		Int("regions", len(regions)).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Msg("heuristic regions detected")
	return regions, nil
}

// lumaSpread is the standard deviation of luma inside r, inset by two
// pixels to stay clear of the outline.
func lumaSpread(img image.Image, r image.Rectangle) float64 {
	inner := r.Inset(2)
	if inner.Empty() {
		return 0
	}
	samples := make([]float64, 0, inner.Dx()*inner.Dy())
	for y := inner.Min.Y; y < inner.Max.Y; y++ {
		for x := inner.Min.X; x < inner.Max.X; x++ {
			samples = append(samples, lumaAt(img, x, y))
		}
	}
	if len(samples) < 2 {
		return 0
	}
	return stat.StdDev(samples, nil)
}

func rect(r image.Rectangle) decompose.Rect {
	return decompose.Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}
