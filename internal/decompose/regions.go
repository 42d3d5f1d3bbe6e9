package decompose

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/template-tools-mcp/internal/cluster"
	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// regionRank orders oracle regions bottom to top.
var regionRank = map[zone.Semantic]int{
	zone.SemanticBackground: 0,
	zone.SemanticPhoto:      1,
	zone.SemanticBorder:     2,
	zone.SemanticDecoration: 3,
	zone.SemanticLogo:       4,
	zone.SemanticText:       5,
}

// FromRegions builds a flat zone tree from regions reported by a detection
// oracle over src.
//
// Photo and logo regions become raster zones cropped from src. Text regions
// become text zones carrying the recognised text, with the minority color
// of the region as fill. Border, decoration and background regions become
// vector zones filled with the region's mean color. Paint order is
// background, photo, border, decoration, logo, text; regions of equal rank
// keep their input order.
//
// Confidence is carried through untouched: callers filter by threshold
// before calling. Regions of unknown type are skipped with a warning.
func FromRegions(regions []Region, src image.Image, opts Options) (*Result, error) {
	if src == nil {
		return nil, &DecodeError{Err: fmt.Errorf("no source image")}
	}
	ib := src.Bounds()
	if err := checkCanvas(ib.Dx(), ib.Dy(), opts.Limits); err != nil {
		return nil, err
	}

	type ranked struct {
		r   Region
		sem zone.Semantic
	}
	var res Result
	items := make([]ranked, 0, len(regions))
	for _, r := range regions {
		sem, err := zone.ParseSemantic(r.Type)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("region %q: %v", r.ID, err))
			opts.Logger.Warn().Str("region", r.ID).Str("type", r.Type).Msg("skipping region of unknown type")
			continue
		}
		items = append(items, ranked{r: r, sem: sem})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return regionRank[items[i].sem] < regionRank[items[j].sem]
	})

	bg := colorspace.White
	if c, ok := cluster.MeanColor(src, nil); ok {
		bg = c
	}
	tree := &zone.Tree{Width: ib.Dx(), Height: ib.Dy(), Background: bg}

	taken := make(map[string]bool)
	for i, it := range items {
		base := Slug(it.r.ID)
		if it.r.ID == "" {
			base = string(it.sem)
		}
		id := base
		for n := 2; taken[id]; n++ {
			id = base + "-" + strconv.Itoa(n)
		}
		taken[id] = true

		z := &zone.Zone{
			ID:        id,
			Name:      it.r.ID,
			ZOrder:    i,
			Visible:   true,
			Opacity:   1,
			BlendMode: zone.BlendNormal,
			Semantic:  it.sem,
			Brand:     it.sem == zone.SemanticLogo,
		}
		z.Bounds = clampRect(it.r.Bounds, ib)
		z.ZeroArea = z.Bounds.Empty()
		rect := z.Bounds.Rect().Add(ib.Min)

		switch it.sem {
		case zone.SemanticPhoto, zone.SemanticLogo:
			z.Kind = zone.KindRaster
			if !z.ZeroArea {
				z.Raster = imaging.Crop(src, rect)
			}
			_ = z.Set(zone.PropImage, zone.Image(""))
			if it.sem == zone.SemanticLogo {
				_ = z.Set(zone.PropScale, zone.Number(1))
			}

		case zone.SemanticText:
			z.Kind = zone.KindText
			_ = z.Set(zone.PropText, zone.Text(it.r.Text))
			_ = z.Set(zone.PropFill, zone.Color(textColor(src, rect)))
			_ = z.Set(zone.PropFontSize, zone.Number(fontSizeFor(z.Bounds.Height)))
			_ = z.Set(zone.PropTextAlign, zone.Text("left"))

		default:
			z.Kind = zone.KindVector
			fill := bg
			if c, ok := cluster.MeanColor(src, &rect); ok {
				fill = c
			}
			_ = z.Set(zone.PropFill, zone.Color(fill))
		}

		tree.Roots = append(tree.Roots, z)
	}

	opts.Logger.Debug().
		Int("regions", len(regions)).
		Int("zones", len(tree.Roots)).
		Msg("regions decomposed")

	res.Tree = tree
	return &res, nil
}

func clampRect(r Rect, ib image.Rectangle) zone.Bounds {
	w, h := float64(ib.Dx()), float64(ib.Dy())
	x0 := math.Max(0, math.Min(w, r.X))
	y0 := math.Max(0, math.Min(h, r.Y))
	x1 := math.Max(x0, math.Min(w, r.X+math.Max(0, r.Width)))
	y1 := math.Max(y0, math.Min(h, r.Y+math.Max(0, r.Height)))
	return zone.Bounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// textColor splits the region at its mean luminance and returns the mean
// of the smaller side: glyph pixels cover less of a text box than the
// background behind them.
func textColor(src image.Image, rect image.Rectangle) colorspace.RGB {
	samples := cluster.Sample(src, 1, &rect)
	if len(samples) == 0 {
		return colorspace.Black
	}
	lum := make([]float64, len(samples))
	var mean float64
	for i, s := range samples {
		lum[i] = colorspace.RelativeLuminance(s)
		mean += lum[i]
	}
	mean /= float64(len(samples))

	var dark, light []colorspace.RGB
	for i, s := range samples {
		if lum[i] < mean {
			dark = append(dark, s)
		} else {
			light = append(light, s)
		}
	}
	side := dark
	if len(dark) == 0 || (len(light) > 0 && len(light) < len(dark)) {
		side = light
	}
	res, err := cluster.Analyze(side, 1, cluster.Options{})
	if err != nil || len(res.Centroids) == 0 {
		return colorspace.Black
	}
	return res.Centroids[0].Color
}

func fontSizeFor(height float64) float64 {
	return math.Max(8, math.Min(72, math.Round(height*0.7)))
}
