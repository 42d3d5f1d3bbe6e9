package param

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Ids of the common parameter set, emitted for every template.
const (
	TeamPrimaryColor   = "teamPrimaryColor"
	TeamSecondaryColor = "teamSecondaryColor"
	TeamAccentColor    = "teamAccentColor"
	PlayerName         = "playerName"
	TeamName           = "teamName"
	PlayerPosition     = "playerPosition"
)

// DefaultFonts is the font family enum offered when Options.Fonts is empty.
var DefaultFonts = []string{"Helvetica", "Arial", "Impact", "Georgia", "Roboto", "Oswald"}

// TextAligns is the alignment enum of text zones.
var TextAligns = []string{"left", "center", "right"}

// Numeric ranges.
var (
	opacityRange  = [2]float64{0, 1}
	fontSizeRange = [2]float64{8, 72}
	scaleRange    = [2]float64{0.5, 2}
	strokeRange   = [2]float64{0, 50}
)

// Options tunes extraction.
type Options struct {
	// Fonts is the supported font family enum. Empty means DefaultFonts.
	Fonts []string
}

type extractor struct {
	opts   Options
	params []Parameter
	taken  map[string]bool
}

// Extract derives the parameter list of a zone tree.
//
// The common set comes first, then each zone's parameters in depth-first
// order. Within a zone the order is: visibility, fill, stroke, stroke
// width, opacity, text, font family, font size, text alignment, image,
// scale.
//
// Parameter ids are the zone id stripped of non-alphanumerics followed by
// the capitalized property ("hero-text" + fontSize = "herotextFontSize").
// A collision appends 2, 3, ... in visit order, so an unchanged tree always
// yields identical ids.
//
// Every default equals the bound property's current value, so rendering
// with the defaults reproduces the source.
func Extract(tree *zone.Tree, opts Options) []Parameter {
	if len(opts.Fonts) == 0 {
		opts.Fonts = DefaultFonts
	}
	e := &extractor{opts: opts, taken: make(map[string]bool)}
	e.common(tree)
	tree.Walk(func(z *zone.Zone, _ []*zone.Zone) bool {
		e.zone(z)
		return true
	})
	return e.params
}

func (e *extractor) add(p Parameter) {
	id := p.ID
	for n := 2; e.taken[id]; n++ {
		id = p.ID + strconv.Itoa(n)
	}
	p.ID = id
	e.taken[id] = true
	e.params = append(e.params, p)
}

// common binds the canonical vocabulary to the first matching zones. A
// name that matches nothing stays unbound and is inert when applied.
func (e *extractor) common(tree *zone.Tree) {
	var brandFills []*zone.Zone
	var texts []*zone.Zone
	tree.Walk(func(z *zone.Zone, _ []*zone.Zone) bool {
		if z.Brand && z.Has(zone.PropFill) {
			brandFills = append(brandFills, z)
		}
		if z.Kind == zone.KindText && z.Has(zone.PropText) {
			texts = append(texts, z)
		}
		return true
	})

	colors := []struct {
		id, name string
		fallback colorspace.RGB
	}{
		{TeamPrimaryColor, "Team Primary Color", colorspace.Black},
		{TeamSecondaryColor, "Team Secondary Color", colorspace.White},
		{TeamAccentColor, "Team Accent Color", colorspace.RGB{R: 128, G: 128, B: 128}},
	}
	for i, c := range colors {
		p := Parameter{
			ID:          c.id,
			DisplayName: c.name,
			Type:        zone.TypeColor,
			Category:    CategoryBrand,
			Default:     zone.Color(c.fallback),
			Binding:     Binding{Property: zone.PropFill},
		}
		if i < len(brandFills) {
			z := brandFills[i]
			p.Binding.ZoneID = z.ID
			p.Default, _ = z.Get(zone.PropFill)
		}
		e.add(p)
	}

	subjects := []struct {
		id, name string
		match    func(key string) bool
	}{
		{PlayerName, "Player Name", func(k string) bool {
			return strings.Contains(k, "player") && !strings.Contains(k, "position")
		}},
		{TeamName, "Team Name", func(k string) bool { return strings.Contains(k, "team") }},
		{PlayerPosition, "Player Position", func(k string) bool {
			return strings.Contains(k, "position") || strings.Contains(k, "pos")
		}},
	}
	used := make(map[*zone.Zone]bool)
	for _, s := range subjects {
		p := Parameter{
			ID:          s.id,
			DisplayName: s.name,
			Type:        zone.TypeText,
			Category:    CategorySubject,
			Default:     zone.Text(""),
			Binding:     Binding{Property: zone.PropText},
		}
		for _, z := range texts {
			if used[z] || !s.match(strings.ToLower(z.ID+" "+z.Name)) {
				continue
			}
			used[z] = true
			p.Binding.ZoneID = z.ID
			p.Default, _ = z.Get(zone.PropText)
			break
		}
		e.add(p)
	}
}

func (e *extractor) zone(z *zone.Zone) {
	label := z.Name
	if label == "" {
		label = z.ID
	}
	mk := func(prop zone.Property, typ zone.ValueType, cat Category, title string) Parameter {
		v, ok := z.Get(prop)
		if !ok {
			v = zero(prop)
		}
		return Parameter{
			ID:          ID(z.ID, prop),
			DisplayName: label + " " + title,
			Type:        typ,
			Category:    cat,
			Default:     v,
			Binding:     Binding{ZoneID: z.ID, Property: prop},
		}
	}

	e.add(mk(zone.PropVisible, zone.TypeBoolean, CategoryDesign, "Visible"))

	if z.Has(zone.PropFill) {
		cat := CategoryDesign
		if z.Brand {
			cat = CategoryBrand
		}
		e.add(mk(zone.PropFill, zone.TypeColor, cat, "Fill"))
	}
	if z.Has(zone.PropStroke) {
		e.add(mk(zone.PropStroke, zone.TypeColor, CategoryDesign, "Stroke"))
	}
	if z.Has(zone.PropStrokeWidth) {
		p := mk(zone.PropStrokeWidth, zone.TypeNumber, CategoryDesign, "Stroke Width")
		p.Constraints = numberRange(strokeRange, p.Default.Number)
		e.add(p)
	}
	if z.Opacity != 1 {
		p := mk(zone.PropOpacity, zone.TypeNumber, CategoryDesign, "Opacity")
		p.Constraints = numberRange(opacityRange, p.Default.Number)
		e.add(p)
	}

	if z.Kind == zone.KindText {
		if z.Has(zone.PropText) {
			e.add(mk(zone.PropText, zone.TypeText, CategorySubject, "Text"))
		}
		if z.Has(zone.PropFontFamily) {
			p := mk(zone.PropFontFamily, zone.TypeText, CategoryDesign, "Font")
			p.Constraints = &Constraints{Enum: enumWith(e.opts.Fonts, p.Default.Text)}
			e.add(p)
		}
		if z.Has(zone.PropFontSize) {
			p := mk(zone.PropFontSize, zone.TypeNumber, CategoryDesign, "Font Size")
			p.Constraints = numberRange(fontSizeRange, p.Default.Number)
			e.add(p)
		}
	}

	if z.Kind == zone.KindText || z.Semantic == zone.SemanticText {
		p := mk(zone.PropTextAlign, zone.TypeText, CategoryDesign, "Alignment")
		p.Constraints = &Constraints{Enum: enumWith(TextAligns, p.Default.Text)}
		e.add(p)
	}

	if z.Semantic == zone.SemanticPhoto || z.Semantic == zone.SemanticLogo || z.Kind == zone.KindRaster {
		cat := CategorySubject
		if z.Brand {
			cat = CategoryBrand
		}
		e.add(mk(zone.PropImage, zone.TypeImage, cat, "Image"))
	}
	if z.Semantic == zone.SemanticLogo {
		p := mk(zone.PropScale, zone.TypeNumber, CategoryBrand, "Scale")
		p.Constraints = numberRange(scaleRange, p.Default.Number)
		e.add(p)
	}
}

// zero is the value a property renders as when absent.
func zero(p zone.Property) zone.Value {
	switch p {
	case zone.PropTextAlign:
		return zone.Text("left")
	case zone.PropScale:
		return zone.Number(1)
	case zone.PropImage:
		return zone.Image("")
	}
	switch p.Type() {
	case zone.TypeText:
		return zone.Text("")
	case zone.TypeNumber:
		return zone.Number(0)
	case zone.TypeBoolean:
		return zone.Bool(true)
	}
	return zone.Color(colorspace.Black)
}

// numberRange widens r to include the current value so the default always
// satisfies its own constraints.
func numberRange(r [2]float64, current float64) *Constraints {
	lo, hi := min(r[0], current), max(r[1], current)
	return &Constraints{Min: &lo, Max: &hi}
}

func enumWith(options []string, current string) []string {
	out := slices.Clone(options)
	if current != "" && !slices.Contains(out, current) {
		out = append(out, current)
	}
	return out
}

// ID derives a parameter id from a zone id and property.
func ID(zoneID string, p zone.Property) string {
	var sb strings.Builder
	for _, r := range zoneID {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	prop := string(p)
	if prop != "" {
		sb.WriteString(strings.ToUpper(prop[:1]))
		sb.WriteString(prop[1:])
	}
	return sb.String()
}
