package cluster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// Method selects the palette extraction algorithm.
type Method string

const (
	// MethodSeeded is the bounded, seeded k-means of Analyze.
	MethodSeeded Method = "seeded"

	// MethodConverge runs muesli/kmeans to convergence. Its seeding is not
	// controllable, so results vary between runs.
	MethodConverge Method = "converge"

	// MethodDominant uses cenkalti/dominantcolor's weighted extraction.
	MethodDominant Method = "dominant"
)

// ParseMethod maps a method name to a Method; the empty string means
// MethodSeeded.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodSeeded:
		return MethodSeeded, nil
	case MethodConverge, MethodDominant:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown cluster method %q (valid: seeded, converge, dominant)", s)
	}
}

// DefaultStride is the pixel step used when ExtractOptions.Stride is zero.
const DefaultStride = 4

// ExtractOptions configures ExtractPalette.
type ExtractOptions struct {
	// Stride samples every Stride-th pixel in both directions.
	Stride int

	// Region restricts sampling to a rectangle. Nil means the whole image.
	Region *image.Rectangle

	// Options tunes MethodSeeded.
	Options
}

// Sample flattens the pixels of img into RGB triples.
//
// Every stride-th pixel is taken along both axes (stride < 1 is treated as
// 1). Fully transparent pixels are skipped. When region is non-nil it is
// intersected with the image bounds first.
func Sample(img image.Image, stride int, region *image.Rectangle) []colorspace.RGB {
	if stride < 1 {
		stride = 1
	}
	b := img.Bounds()
	if region != nil {
		b = region.Intersect(b)
	}
	if b.Empty() {
		return nil
	}

	out := make([]colorspace.RGB, 0, (b.Dx()/stride+1)*(b.Dy()/stride+1))
	for y := b.Min.Y; y < b.Max.Y; y += stride {
		for x := b.Min.X; x < b.Max.X; x += stride {
			n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if n.A == 0 {
				continue
			}
			out = append(out, colorspace.RGB{R: n.R, G: n.G, B: n.B})
		}
	}
	return out
}

// ExtractPalette returns k representative colors from an image.
//
// For MethodSeeded and MethodConverge the colors are ordered by cluster
// population (largest first), which is what palette consumers want; use
// Analyze directly for centroid-index order. MethodDominant returns its
// candidates by weight. Fewer than k colors may be returned when the image
// has few distinct colors.
func ExtractPalette(img image.Image, k int, method Method, opts ExtractOptions) ([]colorspace.RGB, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	stride := opts.Stride
	if stride == 0 {
		stride = DefaultStride
	}

	switch method {
	case MethodDominant:
		src := img
		if opts.Region != nil {
			if sub, ok := img.(interface {
				SubImage(image.Rectangle) image.Image
			}); ok {
				src = sub.SubImage(*opts.Region)
			}
		}
		return dominantPalette(src, k), nil

	case MethodConverge:
		return convergePalette(Sample(img, stride, opts.Region), k)

	case MethodSeeded, "":
		res, err := Analyze(Sample(img, stride, opts.Region), k, opts.Options)
		if err != nil {
			return nil, err
		}
		return distinct(res.ByPopulation()), nil

	default:
		return nil, fmt.Errorf("unknown cluster method %q", method)
	}
}

// BrandColor returns the single most representative color of an image,
// typically a team logo. Transparent pixels are ignored.
func BrandColor(img image.Image) colorspace.RGB {
	return colorspace.FromColor(dominantcolor.Find(img))
}

func dominantPalette(img image.Image, k int) []colorspace.RGB {
	cands := dominantcolor.FindWeight(img, k)
	out := make([]colorspace.RGB, 0, len(cands))
	for _, c := range cands {
		out = append(out, colorspace.FromColor(c.RGBA))
	}
	return out
}

func convergePalette(samples []colorspace.RGB, k int) ([]colorspace.RGB, error) {
	if len(samples) == 0 {
		return []colorspace.RGB{}, nil
	}
	k = min(k, len(samples))

	dataset := make(clusters.Observations, len(samples))
	for i, s := range samples {
		dataset[i] = clusters.Coordinates{float64(s.R), float64(s.G), float64(s.B)}
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("kmeans partition: %w", err)
	}

	res := &Result{Centroids: make([]Centroid, 0, len(cc)), Samples: len(samples)}
	for _, c := range cc {
		if len(c.Center) < 3 {
			continue
		}
		res.Centroids = append(res.Centroids, Centroid{
			Color:      toRGB(c.Center),
			Population: len(c.Observations),
		})
	}
	return distinct(res.ByPopulation()), nil
}

// distinct drops empty clusters and repeated colors, keeping order.
func distinct(cs []Centroid) []colorspace.RGB {
	seen := make(map[colorspace.RGB]bool, len(cs))
	out := make([]colorspace.RGB, 0, len(cs))
	for _, c := range cs {
		if c.Population == 0 || seen[c.Color] {
			continue
		}
		seen[c.Color] = true
		out = append(out, c.Color)
	}
	return out
}

// MeanColor is the k=1 case: the mean of all sampled pixels, or ok=false
// when the region holds no opaque pixels.
func MeanColor(img image.Image, region *image.Rectangle) (colorspace.RGB, bool) {
	samples := Sample(img, 1, region)
	if len(samples) == 0 {
		return colorspace.RGB{}, false
	}
	var r, g, b float64
	for _, s := range samples {
		r += float64(s.R)
		g += float64(s.G)
		b += float64(s.B)
	}
	n := float64(len(samples))
	return toRGB(clusters.Coordinates{math.Round(r / n), math.Round(g / n), math.Round(b / n)}), true
}
