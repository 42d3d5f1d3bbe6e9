package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

type blendFunc func(bg, fg image.Image) *image.RGBA

var blendFuncs = map[zone.BlendMode]blendFunc{
	zone.BlendNormal:     blend.Normal,
	zone.BlendMultiply:   blend.Multiply,
	zone.BlendScreen:     blend.Screen,
	zone.BlendOverlay:    blend.Overlay,
	zone.BlendDarken:     blend.Darken,
	zone.BlendLighten:    blend.Lighten,
	zone.BlendColorDodge: blend.ColorDodge,
	zone.BlendColorBurn:  blend.ColorBurn,
	zone.BlendSoftLight:  blend.SoftLight,
	zone.BlendDifference: blend.Difference,
	zone.BlendExclusion:  blend.Exclusion,
	zone.BlendAdd:        blend.Add,
}

// paint draws one zone into a transparent layer the size of its bounds. The
// returned point is the layer origin in canvas coordinates. A nil layer
// means the zone is entirely off-canvas.
func (c *Compositor) paint(ctx context.Context, z *zone.Zone, canvas image.Rectangle) (*image.NRGBA, image.Point, error) {
	r := z.Bounds.Rect()
	if r.Intersect(canvas).Empty() {
		return nil, r.Min, nil
	}
	w, h := r.Dx(), r.Dy()

	switch z.Kind {
	case zone.KindText:
		return paintText(z, w, h), r.Min, nil
	case zone.KindRaster:
		layer, err := c.paintRaster(ctx, z, w, h)
		return layer, r.Min, err
	default:
		return paintVector(z, w, h), r.Min, nil
	}
}

func fillLayer(z *zone.Zone, w, h int) *image.NRGBA {
	if v, ok := z.Get(zone.PropFill); ok {
		return imaging.New(w, h, v.Color.NRGBA())
	}
	return imaging.New(w, h, color.NRGBA{})
}

func paintVector(z *zone.Zone, w, h int) *image.NRGBA {
	layer := fillLayer(z, w, h)

	stroke, ok := z.Get(zone.PropStroke)
	if !ok {
		return layer
	}
	sw := 1
	if v, ok := z.Get(zone.PropStrokeWidth); ok {
		sw = int(math.Round(v.Number))
	}
	if sw <= 0 {
		return layer
	}
	sw = min(sw, (min(w, h)+1)/2)

	src := image.NewUniform(stroke.Color.NRGBA())
	for _, band := range []image.Rectangle{
		image.Rect(0, 0, w, sw),
		image.Rect(0, h-sw, w, h),
		image.Rect(0, 0, sw, h),
		image.Rect(w-sw, 0, w, h),
	} {
		draw.Draw(layer, band, src, image.Point{}, draw.Src)
	}
	return layer
}

func (c *Compositor) paintRaster(ctx context.Context, z *zone.Zone, w, h int) (*image.NRGBA, error) {
	layer := fillLayer(z, w, h)

	src := z.Raster
	if v, ok := z.Get(zone.PropImage); ok && v.Image != "" {
		if c.opts.Assets == nil {
			return nil, fmt.Errorf("%w: %s: no asset source configured", ErrAssetUnreadable, v.Image)
		}
		img, err := c.opts.Assets.Image(ctx, v.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrAssetUnreadable, v.Image, err)
		}
		src = img
	}
	if src == nil {
		return layer, nil
	}

	scale := 1.0
	if v, ok := z.Get(zone.PropScale); ok && v.Number > 0 {
		scale = v.Number
	}

	sb := src.Bounds()
	if sb.Empty() {
		return layer, nil
	}
	ratio := math.Min(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy())) * scale
	fw := max(1, int(math.Round(float64(sb.Dx())*ratio)))
	fh := max(1, int(math.Round(float64(sb.Dy())*ratio)))

	var fitted image.Image = src
	if fw != sb.Dx() || fh != sb.Dy() {
		fitted = imaging.Resize(src, fw, fh, imaging.Lanczos)
	}
	pos := image.Pt((w-fw)/2, (h-fh)/2)
	return imaging.Overlay(layer, fitted, pos, 1.0), nil
}

// Glyphs come from the fixed 7x13 bitmap face and are scaled to fontSize,
// so fontFamily does not change the raster.
func paintText(z *zone.Zone, w, h int) *image.NRGBA {
	layer := imaging.New(w, h, color.NRGBA{})

	v, ok := z.Get(zone.PropText)
	if !ok || v.Text == "" {
		return layer
	}

	ink := colorspace.Black
	if f, ok := z.Get(zone.PropFill); ok {
		ink = f.Color
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	tw := d.MeasureString(v.Text).Ceil()
	if tw <= 0 {
		return layer
	}
	glyphs := image.NewNRGBA(image.Rect(0, 0, tw, face.Height))
	d.Dst = glyphs
	d.Src = image.NewUniform(ink.NRGBA())
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(v.Text)

	size := float64(face.Height)
	if fs, ok := z.Get(zone.PropFontSize); ok && fs.Number > 0 {
		size = fs.Number
	}
	k := size / float64(face.Height)
	gw := max(1, int(math.Round(float64(tw)*k)))
	gh := max(1, int(math.Round(float64(face.Height)*k)))
	scaled := imaging.Resize(glyphs, gw, gh, imaging.NearestNeighbor)

	x := 0
	if a, ok := z.Get(zone.PropTextAlign); ok {
		switch a.Text {
		case "center":
			x = (w - gw) / 2
		case "right":
			x = w - gw
		}
	}
	y := (h - gh) / 2
	return imaging.Overlay(layer, scaled, image.Pt(x, y), 1.0)
}

func scaleAlpha(layer *image.NRGBA, opacity float64) {
	if opacity >= 1 {
		return
	}
	for i := 3; i < len(layer.Pix); i += 4 {
		layer.Pix[i] = uint8(math.Round(float64(layer.Pix[i]) * opacity))
	}
}

// composite blends layer onto canvas at origin. The blend function sees
// the opaque layer colors; layer alpha then mixes the blended result with
// what was underneath. Unknown modes composite as normal.
func composite(canvas *image.RGBA, layer *image.NRGBA, origin image.Point, mode zone.BlendMode) {
	target := layer.Bounds().Add(origin).Intersect(canvas.Bounds())
	if target.Empty() {
		return
	}
	fn, ok := blendFuncs[mode]
	if !ok {
		fn = blend.Normal
	}

	bg := imaging.Crop(canvas, target)
	fg := imaging.Crop(layer, target.Sub(origin))
	opaque := imaging.Clone(fg)
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}
	blended := fn(bg, opaque)

	tw := target.Dx()
	for y := 0; y < target.Dy(); y++ {
		for x := 0; x < tw; x++ {
			fi := y*fg.Stride + x*4
			a := float64(fg.Pix[fi+3]) / 255
			if a == 0 {
				continue
			}
			bi := y*bg.Stride + x*4
			oi := y*blended.Stride + x*4
			ci := canvas.PixOffset(target.Min.X+x, target.Min.Y+y)
			for ch := 0; ch < 3; ch++ {
				mixed := float64(bg.Pix[bi+ch])*(1-a) + float64(blended.Pix[oi+ch])*a
				canvas.Pix[ci+ch] = uint8(math.Round(mixed))
			}
			canvas.Pix[ci+3] = 0xff
		}
	}
}
