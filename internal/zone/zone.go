package zone

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
)

// Kind is the content type of a zone.
type Kind string

const (
	KindRaster Kind = "raster"
	KindText   Kind = "text"
	KindVector Kind = "vector"
	KindGroup  Kind = "group"
)

// ParseKind accepts the kind names case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRaster, KindText, KindVector, KindGroup:
		return k, nil
	}
	return "", fmt.Errorf("unknown zone kind %q", s)
}

// BlendMode selects how a zone combines with what is painted below it.
type BlendMode string

const (
	BlendNormal     BlendMode = "normal"
	BlendMultiply   BlendMode = "multiply"
	BlendScreen     BlendMode = "screen"
	BlendOverlay    BlendMode = "overlay"
	BlendDarken     BlendMode = "darken"
	BlendLighten    BlendMode = "lighten"
	BlendColorDodge BlendMode = "color-dodge"
	BlendColorBurn  BlendMode = "color-burn"
	BlendSoftLight  BlendMode = "soft-light"
	BlendDifference BlendMode = "difference"
	BlendExclusion  BlendMode = "exclusion"
	BlendAdd        BlendMode = "add"
)

// BlendModes lists every supported mode.
var BlendModes = []BlendMode{
	BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDarken, BlendLighten,
	BlendColorDodge, BlendColorBurn, BlendSoftLight, BlendDifference, BlendExclusion, BlendAdd,
}

// ParseBlendMode accepts mode names in any case, with spaces, dashes or
// underscores between words ("Color Dodge", "color_dodge", "colorDodge").
func ParseBlendMode(s string) (BlendMode, bool) {
	norm := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
	for _, m := range BlendModes {
		if strings.ReplaceAll(string(m), "-", "") == norm {
			return m, true
		}
	}
	return "", false
}

// Semantic is the region role assigned by decomposition or a detection
// oracle.
type Semantic string

const (
	SemanticNone       Semantic = ""
	SemanticPhoto      Semantic = "photo"
	SemanticText       Semantic = "text"
	SemanticLogo       Semantic = "logo"
	SemanticBorder     Semantic = "border"
	SemanticBackground Semantic = "background"
	SemanticDecoration Semantic = "decoration"
)

// ParseSemantic accepts the oracle region type names.
func ParseSemantic(s string) (Semantic, error) {
	switch v := Semantic(strings.ToLower(strings.TrimSpace(s))); v {
	case SemanticPhoto, SemanticText, SemanticLogo, SemanticBorder, SemanticBackground, SemanticDecoration:
		return v, nil
	}
	return "", fmt.Errorf("unknown region type %q", s)
}

// Bounds is an axis-aligned rectangle in document pixels.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports a zero-area rectangle.
func (b Bounds) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// Union returns the smallest rectangle covering both. Empty operands are
// ignored.
func (b Bounds) Union(o Bounds) Bounds {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x0 := math.Min(b.X, o.X)
	y0 := math.Min(b.Y, o.Y)
	x1 := math.Max(b.X+b.Width, o.X+o.Width)
	y1 := math.Max(b.Y+b.Height, o.Y+o.Height)
	return Bounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Rect rounds the bounds outward to integer pixels.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.Width)), int(math.Ceil(b.Y+b.Height)),
	)
}

// FromRect converts an integer rectangle.
func FromRect(r image.Rectangle) Bounds {
	return Bounds{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())}
}

// Property is a key of the fixed zone property vocabulary.
type Property string

const (
	PropFill        Property = "fill"
	PropStroke      Property = "stroke"
	PropStrokeWidth Property = "strokeWidth"
	PropText        Property = "text"
	PropFontFamily  Property = "fontFamily"
	PropFontSize    Property = "fontSize"
	PropTextAlign   Property = "textAlign"
	PropImage       Property = "image"
	PropScale       Property = "scale"
	PropVisible     Property = "visible"
	PropOpacity     Property = "opacity"
)

var propertyTypes = map[Property]ValueType{
	PropFill:        TypeColor,
	PropStroke:      TypeColor,
	PropStrokeWidth: TypeNumber,
	PropText:        TypeText,
	PropFontFamily:  TypeText,
	PropFontSize:    TypeNumber,
	PropTextAlign:   TypeText,
	PropImage:       TypeImage,
	PropScale:       TypeNumber,
	PropVisible:     TypeBoolean,
	PropOpacity:     TypeNumber,
}

// ErrUnknownProperty is returned for keys outside the vocabulary.
var ErrUnknownProperty = errors.New("unknown zone property")

// ParseProperty validates a property key. Keys are case-sensitive.
func ParseProperty(s string) (Property, error) {
	p := Property(s)
	if _, ok := propertyTypes[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProperty, s)
	}
	return p, nil
}

// Type returns the native value type of the property, or "" if unknown.
func (p Property) Type() ValueType { return propertyTypes[p] }

// Zone is a named region of a design. Only KindGroup zones have children.
type Zone struct {
	ID        string             `json:"id"`
	Name      string             `json:"name,omitempty"`
	Kind      Kind               `json:"kind"`
	Bounds    Bounds             `json:"bounds"`
	ZOrder    int                `json:"zOrder"`
	Visible   bool               `json:"visible"`
	Opacity   float64            `json:"opacity"`
	BlendMode BlendMode          `json:"blendMode"`
	Semantic  Semantic           `json:"semantic,omitempty"`
	Brand     bool               `json:"brand,omitempty"`
	ZeroArea  bool               `json:"zeroArea,omitempty"`
	Props     map[Property]Value `json:"properties,omitempty"`
	Children  []*Zone            `json:"children,omitempty"`

	// Raster is the decoded pixel payload, placed at Bounds. It is shared
	// read-only between clones.
	Raster image.Image `json:"-"`
}

// Get returns a property value. visible and opacity are read from the
// corresponding fields.
func (z *Zone) Get(p Property) (Value, bool) {
	switch p {
	case PropVisible:
		return Bool(z.Visible), true
	case PropOpacity:
		return Number(z.Opacity), true
	}
	v, ok := z.Props[p]
	return v, ok
}

// Has reports whether a property is explicitly present. visible and opacity
// always are.
func (z *Zone) Has(p Property) bool {
	_, ok := z.Get(p)
	return ok
}

// Set assigns a property, rejecting unknown keys and type mismatches.
// Opacity is clamped to [0,1].
func (z *Zone) Set(p Property, v Value) error {
	want := p.Type()
	if want == "" {
		return fmt.Errorf("%w: %q", ErrUnknownProperty, p)
	}
	if v.Type != want {
		return fmt.Errorf("%w: %s wants %s, got %s", ErrTypeMismatch, p, want, v.Type)
	}
	switch p {
	case PropVisible:
		z.Visible = v.Bool
		return nil
	case PropOpacity:
		z.Opacity = math.Max(0, math.Min(1, v.Number))
		return nil
	}
	if z.Props == nil {
		z.Props = make(map[Property]Value)
	}
	z.Props[p] = v
	return nil
}

// Clone deep-copies the zone and its children. Raster is shared.
func (z *Zone) Clone() *Zone {
	c := *z
	if z.Props != nil {
		c.Props = make(map[Property]Value, len(z.Props))
		for k, v := range z.Props {
			c.Props[k] = v
		}
	}
	if z.Children != nil {
		c.Children = make([]*Zone, len(z.Children))
		for i, ch := range z.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return &c
}

// UnionChildren recomputes a group's bounds from its children, recursively.
// It is a no-op for zones without children.
func (z *Zone) UnionChildren() Bounds {
	if len(z.Children) == 0 {
		return z.Bounds
	}
	var u Bounds
	for _, ch := range z.Children {
		u = u.Union(ch.UnionChildren())
	}
	z.Bounds = u
	return u
}
