package decompose

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Options configures decomposition.
type Options struct {
	Limits Limits
	Logger zerolog.Logger
}

// Result is a decomposed tree plus non-fatal findings (unknown blend modes,
// zero-area layers, unrecognised region types).
type Result struct {
	Tree     *zone.Tree `json:"tree"`
	Warnings []string   `json:"warnings,omitempty"`
}

// psdBlendKeys maps PSD blend mode keys to zone blend modes.
var psdBlendKeys = map[string]zone.BlendMode{
	"norm": zone.BlendNormal,
	"pass": zone.BlendNormal,
	"mul":  zone.BlendMultiply,
	"scrn": zone.BlendScreen,
	"over": zone.BlendOverlay,
	"dark": zone.BlendDarken,
	"lite": zone.BlendLighten,
	"div":  zone.BlendColorDodge,
	"idiv": zone.BlendColorBurn,
	"slit": zone.BlendSoftLight,
	"diff": zone.BlendDifference,
	"smud": zone.BlendExclusion,
	"lddg": zone.BlendAdd,
}

// ParseBlend maps a source blend mode to a zone blend mode. It accepts zone
// mode names, PSD keys ("mul ", "scrn") and "pass through". ok is false
// for anything else.
func ParseBlend(s string) (zone.BlendMode, bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" || t == "pass through" || t == "passthrough" {
		return zone.BlendNormal, true
	}
	if m, ok := psdBlendKeys[t]; ok {
		return m, true
	}
	if t == "linear dodge" || t == "lineardodge" {
		return zone.BlendAdd, true
	}
	return zone.ParseBlendMode(t)
}

type builder struct {
	doc      *Document
	opts     Options
	taken    map[string]bool
	explicit map[string]bool
	z        int
	warnings []string
}

// FromDocument normalizes a layer document into a zone tree.
//
// Layer kinds are inferred when not explicit: text content makes a text
// zone, children a group, a canvas payload a raster, anything else a
// vector. Bounds are clamped to the canvas; inverted rectangles become
// zero-area zones flagged ZeroArea rather than errors. Hidden, opacity and
// blend mode default to visible, 1 and normal.
//
// Zone ids are the layer's explicit id, or its slugified name with a
// numeric suffix for repeats. Two layers with the same explicit id are a
// DecodeError. zOrder is the depth-first index of the layer.
func FromDocument(doc *Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, &DecodeError{Err: fmt.Errorf("nil document")}
	}
	if err := checkCanvas(doc.Width, doc.Height, opts.Limits); err != nil {
		return nil, err
	}

	bg := colorspace.White
	if doc.Background != "" {
		c, err := colorspace.ParseHex(doc.Background)
		if err != nil {
			return nil, &DecodeError{Err: fmt.Errorf("background: %w", err)}
		}
		bg = c
	}

	b := &builder{
		doc:      doc,
		opts:     opts,
		taken:    make(map[string]bool),
		explicit: make(map[string]bool),
	}
	if err := b.reserve(doc.Layers, ""); err != nil {
		return nil, err
	}

	tree := &zone.Tree{Width: doc.Width, Height: doc.Height, Background: bg}
	for i := range doc.Layers {
		z, err := b.layer(&doc.Layers[i], "")
		if err != nil {
			return nil, err
		}
		tree.Roots = append(tree.Roots, z)
	}

	opts.Logger.Debug().
		Int("zones", b.z).
		Int("warnings", len(b.warnings)).
		Msg("document decomposed")

	return &Result{Tree: tree, Warnings: b.warnings}, nil
}

// reserve claims every explicit id up front so generated ids never collide
// with one declared later in the document.
func (b *builder) reserve(layers []Layer, parent string) error {
	for i := range layers {
		l := &layers[i]
		path := joinPath(parent, l.Name)
		if l.ID != "" {
			if b.explicit[l.ID] {
				return decodeErr(path, "duplicate layer id %q", l.ID)
			}
			b.explicit[l.ID] = true
			b.taken[l.ID] = true
		}
		if err := b.reserve(l.Children, path); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) warn(path, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = path + ": " + msg
	}
	b.warnings = append(b.warnings, msg)
	b.opts.Logger.Warn().Str("layer", path).Msgf(format, args...)
}

func (b *builder) layer(l *Layer, parent string) (*zone.Zone, error) {
	path := joinPath(parent, l.Name)

	z := &zone.Zone{
		ID:        b.id(l),
		Name:      l.Name,
		ZOrder:    b.z,
		Visible:   l.Hidden == nil || !*l.Hidden,
		Opacity:   1,
		BlendMode: zone.BlendNormal,
	}
	b.z++

	kind, err := inferKind(l)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if kind != zone.KindGroup && len(l.Children) > 0 {
		return nil, decodeErr(path, "%s layer cannot have children; only groups can", kind)
	}
	z.Kind = kind

	if l.Opacity != nil {
		z.Opacity = math.Max(0, math.Min(1, *l.Opacity/255))
	}
	if mode, ok := ParseBlend(l.BlendMode); ok {
		z.BlendMode = mode
	} else {
		b.warn(path, "unsupported blend mode %q, using normal", l.BlendMode)
	}

	if l.Region != "" {
		sem, err := zone.ParseSemantic(l.Region)
		if err != nil {
			b.warn(path, "%v", err)
		} else {
			z.Semantic = sem
		}
	}
	z.Brand = isBrand(l.Name, z.Semantic)

	for key, raw := range l.Properties {
		p, err := zone.ParseProperty(key)
		if err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
		v, err := toValue(p, raw)
		if err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
		if err := z.Set(p, v); err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
	}
	if l.Text != nil {
		if err := z.Set(zone.PropText, zone.Text(*l.Text)); err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
	}

	geom := *l
	if l.Canvas != "" {
		img, err := decodeCanvas(l.Canvas, b.opts.Limits)
		if err != nil {
			var sl *SizeLimitExceeded
			if errors.As(err, &sl) {
				return nil, sl
			}
			return nil, &DecodeError{Path: path, Err: err}
		}
		z.Raster = img
		// Layers without geometry take the canvas size at their origin.
		if l.Right == 0 && l.Bottom == 0 {
			ib := img.Bounds()
			geom.Right = l.Left + float64(ib.Dx())
			geom.Bottom = l.Top + float64(ib.Dy())
		}
		if !z.Has(zone.PropImage) {
			_ = z.Set(zone.PropImage, zone.Image(""))
		}
	}
	z.Bounds = b.clamp(&geom, z, path)

	for i := range l.Children {
		ch, err := b.layer(&l.Children[i], path)
		if err != nil {
			return nil, err
		}
		z.Children = append(z.Children, ch)
	}
	if z.Kind == zone.KindGroup && len(z.Children) > 0 {
		z.UnionChildren()
		z.ZeroArea = z.Bounds.Empty()
	}

	return z, nil
}

// clamp converts edges to a rectangle inside the canvas.
func (b *builder) clamp(l *Layer, z *zone.Zone, path string) zone.Bounds {
	w, h := float64(b.doc.Width), float64(b.doc.Height)
	x0 := math.Max(0, math.Min(w, l.Left))
	y0 := math.Max(0, math.Min(h, l.Top))
	x1 := math.Max(0, math.Min(w, l.Right))
	y1 := math.Max(0, math.Min(h, l.Bottom))

	out := zone.Bounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	if out.Width < 0 || out.Height < 0 {
		b.warn(path, "inverted bounds normalized to zero area")
		out.Width = math.Max(0, out.Width)
		out.Height = math.Max(0, out.Height)
	}
	z.ZeroArea = out.Empty()
	return out
}

func (b *builder) id(l *Layer) string {
	if l.ID != "" {
		return l.ID
	}
	base := Slug(l.Name)
	id := base
	for n := 2; b.taken[id]; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	b.taken[id] = true
	return id
}

func inferKind(l *Layer) (zone.Kind, error) {
	if l.Type != "" {
		return zone.ParseKind(l.Type)
	}
	switch {
	case l.Text != nil:
		return zone.KindText, nil
	case len(l.Children) > 0:
		return zone.KindGroup, nil
	case l.Canvas != "":
		return zone.KindRaster, nil
	}
	return zone.KindVector, nil
}

func isBrand(name string, sem zone.Semantic) bool {
	if sem == zone.SemanticLogo {
		return true
	}
	n := strings.ToLower(name)
	return strings.Contains(n, "logo") || strings.Contains(n, "team")
}

// Slug lower-cases a name and joins its alphanumeric runs with dashes.
// An empty result becomes "layer".
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if sb.Len() == 0 {
		return "layer"
	}
	return sb.String()
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// toValue converts a loosely typed document value to the property's
// native type.
func toValue(p zone.Property, raw any) (zone.Value, error) {
	switch p.Type() {
	case zone.TypeColor:
		s, ok := raw.(string)
		if !ok {
			return zone.Value{}, fmt.Errorf("%s: want hex color string, got %T", p, raw)
		}
		c, err := colorspace.ParseHex(s)
		if err != nil {
			return zone.Value{}, fmt.Errorf("%s: %w", p, err)
		}
		return zone.Color(c), nil
	case zone.TypeText:
		s, ok := raw.(string)
		if !ok {
			return zone.Value{}, fmt.Errorf("%s: want string, got %T", p, raw)
		}
		return zone.Text(s), nil
	case zone.TypeNumber:
		f, ok := toFloat(raw)
		if !ok {
			return zone.Value{}, fmt.Errorf("%s: want number, got %T", p, raw)
		}
		return zone.Number(f), nil
	case zone.TypeBoolean:
		v, ok := raw.(bool)
		if !ok {
			return zone.Value{}, fmt.Errorf("%s: want boolean, got %T", p, raw)
		}
		return zone.Bool(v), nil
	case zone.TypeImage:
		s, ok := raw.(string)
		if !ok {
			return zone.Value{}, fmt.Errorf("%s: want asset reference, got %T", p, raw)
		}
		return zone.Image(s), nil
	}
	return zone.Value{}, fmt.Errorf("%w: %q", zone.ErrUnknownProperty, p)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
