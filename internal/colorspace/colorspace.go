package colorspace

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidHex is returned for hex strings that are not #RGB or #RRGGBB.
var ErrInvalidHex = errors.New("invalid hex color")

// RGB represents an sRGB color with 8-bit components.
type RGB struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSL represents a color in HSL space.
type HSL struct {
	H float64 `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S float64 `json:"s"` // Saturation: 0-100 percent
	L float64 `json:"l"` // Lightness: 0-100 percent
}

// Black and White are the fallback colors used by readability adjustment.
var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
)

// ParseHex parses a hex color string.
//
// Accepted forms are "#RGB", "RGB", "#RRGGBB" and "RRGGBB" (case-insensitive,
// surrounding whitespace ignored). Short forms are expanded by digit
// duplication, so "#0AF" is "#00AAFF".
//
// Returns ErrInvalidHex (wrapped with the offending input) for any other
// length or for non-hex digits. Malformed input never silently defaults.
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	val, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	return RGB{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val)}, nil
}

// MustParseHex is ParseHex for compile-time constants; it panics on error.
func MustParseHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// NormalizeHex parses s and returns it in canonical "#RRGGBB" form.
func NormalizeHex(s string) (string, error) {
	c, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}

// Hex formats the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c RGB) String() string {
	return c.Hex()
}

// RGBA implements color.Color; the color is always fully opaque.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}.RGBA()
}

// NRGBA returns the color as an opaque color.NRGBA.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// FromColor converts any color.Color to RGB, discarding alpha.
// 16-bit channels are scaled down by right-shifting 8 bits.
func FromColor(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// Colorful converts to a go-colorful color with components in [0,1].
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// FromColorful converts a go-colorful color back to 8-bit RGB, clamping
// out-of-gamut components.
func FromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// ToHSL converts RGB to HSL.
//
// Hue is in degrees [0,360); saturation and lightness are percentages
// [0,100]. Achromatic colors have hue 0 and saturation 0.
func ToHSL(c RGB) HSL {
	h, s, l := c.Colorful().Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return HSL{H: h, S: s * 100, L: l * 100}
}

// FromHSL converts HSL to RGB.
//
// Hue wraps modulo 360; saturation and lightness are clamped to [0,100]
// rather than rejected.
func FromHSL(hsl HSL) RGB {
	h := math.Mod(hsl.H, 360)
	if h < 0 {
		h += 360
	}
	s := clamp(hsl.S, 0, 100) / 100
	l := clamp(hsl.L, 0, 100) / 100
	return FromColorful(colorful.Hsl(h, s, l))
}

// RelativeLuminance computes the WCAG relative luminance of a color.
//
// Each channel is linearised with the WCAG 2.x piecewise function
// (c <= 0.03928 -> c/12.92, else ((c+0.055)/1.055)^2.4) and weighted
// 0.2126 R + 0.7152 G + 0.0722 B. The result is in [0,1].
func RelativeLuminance(c RGB) float64 {
	return 0.2126*linearize(c.R) + 0.7152*linearize(c.G) + 0.0722*linearize(c.B)
}

// ContrastRatio computes the WCAG contrast ratio between two colors:
// (L_lighter + 0.05) / (L_darker + 0.05). The result is in [1,21] and is
// symmetric in its arguments.
func ContrastRatio(a, b RGB) float64 {
	la := RelativeLuminance(a)
	lb := RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}

// ContrastRatioHex is ContrastRatio over hex strings.
func ContrastRatioHex(a, b string) (float64, error) {
	ca, err := ParseHex(a)
	if err != nil {
		return 0, err
	}
	cb, err := ParseHex(b)
	if err != nil {
		return 0, err
	}
	return ContrastRatio(ca, cb), nil
}

func linearize(v uint8) float64 {
	c := float64(v) / 255.0
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
