package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/template-tools-mcp/internal/cluster"
	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// ColorResult contains a color value in several representations.
type ColorResult struct {
	Hex   string         `json:"hex"` // "#RRGGBB", no alpha
	RGB   colorspace.RGB `json:"rgb"`
	Alpha uint8          `json:"alpha"`
	HSL   colorspace.HSL `json:"hsl"`
}

func colorResult(c colorspace.RGB, alpha uint8) ColorResult {
	return ColorResult{Hex: c.Hex(), RGB: c, Alpha: alpha, HSL: colorspace.ToHSL(c)}
}

// SampleColor extracts the color at a pixel. Coordinates are 0-based from
// the top-left corner.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	if !image.Pt(x, y).In(img.Bounds()) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	px := img.At(x, y)
	_, _, _, a := px.RGBA()
	r := colorResult(colorspace.FromColor(px), uint8(a>>8))
	return &r, nil
}

// ColorFrequency is one extracted palette color and the share of sampled
// pixels assigned to it.
type ColorFrequency struct {
	ColorResult
	Percentage float64 `json:"percentage"` // 0-100
	Spread     float64 `json:"spread"`
}

// DominantColorsResult lists palette colors, most common first.
type DominantColorsResult struct {
	Method string           `json:"method"`
	Colors []ColorFrequency `json:"colors"`
}

// DominantColors clusters the pixels of img (or of region) into count
// colors.
//
// The seeded method reports population share and spread for each color and
// is ordered by population. The converge and dominant methods report colors
// only, in the order their algorithm returns them.
func DominantColors(img image.Image, count int, region *image.Rectangle, method cluster.Method, opts cluster.ExtractOptions) (*DominantColorsResult, error) {
	if method == "" {
		method = cluster.MethodSeeded
	}
	opts.Region = region
	res := &DominantColorsResult{Method: string(method), Colors: []ColorFrequency{}}

	if method != cluster.MethodSeeded {
		colors, err := cluster.ExtractPalette(img, count, method, opts)
		if err != nil {
			return nil, err
		}
		for _, c := range colors {
			res.Colors = append(res.Colors, ColorFrequency{ColorResult: colorResult(c, 255)})
		}
		return res, nil
	}

	stride := opts.Stride
	if stride == 0 {
		stride = cluster.DefaultStride
	}
	samples := cluster.Sample(img, stride, region)
	analysis, err := cluster.Analyze(samples, count, opts.Options)
	if err != nil {
		return nil, err
	}
	for _, c := range analysis.ByPopulation() {
		if c.Population == 0 {
			continue
		}
		res.Colors = append(res.Colors, ColorFrequency{
			ColorResult: colorResult(c.Color, 255),
			Percentage:  math.Round(c.Share*10000) / 100,
			Spread:      c.Spread,
		})
	}
	return res, nil
}
