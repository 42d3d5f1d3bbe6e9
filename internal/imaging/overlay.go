package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Default outline colors per zone kind.
var defaultKindColors = map[zone.Kind]string{
	zone.KindRaster: "#00C853",
	zone.KindText:   "#2962FF",
	zone.KindVector: "#FF1744",
	zone.KindGroup:  "#FFAB00",
}

// OverlayOptions configures ZoneOverlay.
type OverlayOptions struct {
	// Labels draws each zone's zOrder in its top-left corner.
	Labels bool

	// Hidden also outlines invisible zones.
	Hidden bool

	// Colors overrides outline colors per kind, as hex strings. Invalid
	// entries fall back to the default for the kind.
	Colors map[zone.Kind]string
}

// ZoneOverlay outlines every zone of tree on top of img, which is usually
// the rendered canvas or the decomposition source.
func ZoneOverlay(img image.Image, tree *zone.Tree, opts OverlayOptions) (*Artifact, error) {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	tree.Walk(func(z *zone.Zone, _ []*zone.Zone) bool {
		if !z.Visible && !opts.Hidden {
			return false
		}
		c := kindColor(z.Kind, opts.Colors)
		r := z.Bounds.Rect()
		if r.Empty() {
			return true
		}
		outline(result, r, c)
		if opts.Labels {
			drawLabel(result, r.Min.X+2, r.Min.Y+2, strconv.Itoa(z.ZOrder), labelColor, bgColor)
		}
		return true
	})

	return Encode(result)
}

func kindColor(k zone.Kind, overrides map[zone.Kind]string) color.RGBA {
	if hex, ok := overrides[k]; ok {
		if c, err := colorspace.ParseHex(hex); err == nil {
			return color.RGBA{c.R, c.G, c.B, 255}
		}
	}
	hex, ok := defaultKindColors[k]
	if !ok {
		hex = "#FF0000"
	}
	c := colorspace.MustParseHex(hex)
	return color.RGBA{c.R, c.G, c.B, 255}
}

// outline draws the one-pixel border just inside r.
func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

// glyphs is a 3x5 pixel font for zOrder labels.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'-': {"000", "000", "111", "000", "000"},
}

// drawLabel draws text on a filled box with its top-left corner at (x, y).
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.Set(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if p := image.Pt(cx+col, y+row); p.In(bounds) {
					img.Set(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
