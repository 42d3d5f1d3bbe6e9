// Package palette derives related colors and accessible brand palettes from
// a single brand color.
//
// Every function is a pure function of its inputs. Hue rotations and
// lightness steps are done in HSL via the colorspace package; nothing here
// is perceptual. Derived colors never mutate the base.
package palette

import (
	"errors"
	"fmt"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// DefaultMinContrast is the WCAG AA ratio for normal text.
const DefaultMinContrast = 4.5

// lightnessStep is the per-iteration lightness change of AdjustForReadability.
const lightnessStep = 5

// ErrEmptyColors is returned by FromColors for an empty input.
var ErrEmptyColors = errors.New("no colors to build a palette from")

// Palette is the five-member brand palette. Each member is a "#RRGGBB"
// string.
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Text       string `json:"text"`
	Background string `json:"background"`
}

// Validate reports the first member that is not a 6-hex-digit color.
func (p Palette) Validate() error {
	members := []struct{ name, hex string }{
		{"primary", p.Primary},
		{"secondary", p.Secondary},
		{"accent", p.Accent},
		{"text", p.Text},
		{"background", p.Background},
	}
	for _, m := range members {
		if len(m.hex) != 7 || m.hex[0] != '#' {
			return fmt.Errorf("palette %s: %w: %q", m.name, colorspace.ErrInvalidHex, m.hex)
		}
		if _, err := colorspace.ParseHex(m.hex); err != nil {
			return fmt.Errorf("palette %s: %w", m.name, err)
		}
	}
	return nil
}

// Harmony holds the hue rotations of a base color.
type Harmony struct {
	Complementary string    `json:"complementary"`
	Triadic       [2]string `json:"triadic"`
	Analogous     [2]string `json:"analogous"`
}

// GenerateComplementary rotates the hue of base by 180 (complementary),
// +120/-120 (triadic) and +30/-30 (analogous) degrees, keeping saturation
// and lightness.
func GenerateComplementary(base colorspace.RGB) Harmony {
	hsl := colorspace.ToHSL(base)
	rot := func(deg float64) string {
		return colorspace.FromHSL(colorspace.HSL{H: hsl.H + deg, S: hsl.S, L: hsl.L}).Hex()
	}
	return Harmony{
		Complementary: rot(180),
		Triadic:       [2]string{rot(120), rot(-120)},
		Analogous:     [2]string{rot(30), rot(-30)},
	}
}

// Variations is a tonal ramp around a base color. Lighter[i] and Darker[i]
// are i+1 steps away from the base.
type Variations struct {
	Base    string   `json:"base"`
	Lighter []string `json:"lighter"`
	Darker  []string `json:"darker"`
}

// CreateVariations steps lightness by 10 per step in both directions,
// clamping at 0 and 100. steps < 1 yields empty ramps.
func CreateVariations(base colorspace.RGB, steps int) Variations {
	v := Variations{Base: base.Hex(), Lighter: []string{}, Darker: []string{}}
	hsl := colorspace.ToHSL(base)
	for i := 1; i <= steps; i++ {
		d := float64(i * 10)
		v.Lighter = append(v.Lighter, colorspace.FromHSL(colorspace.HSL{H: hsl.H, S: hsl.S, L: min(100, hsl.L+d)}).Hex())
		v.Darker = append(v.Darker, colorspace.FromHSL(colorspace.HSL{H: hsl.H, S: hsl.S, L: max(0, hsl.L-d)}).Hex())
	}
	return v
}

// AdjustForReadability returns a foreground color that reaches minRatio
// contrast against bg.
//
// fg is returned unchanged when it already passes. Otherwise its lightness
// is stepped by 5 towards white (dark backgrounds, lightness < 50) or black
// until the ratio is met or the lightness bound is reached. If no lightness
// works, pure white or black is returned for the chosen direction. The
// function never fails; callers can rely on a usable color.
func AdjustForReadability(fg, bg colorspace.RGB, minRatio float64) colorspace.RGB {
	if colorspace.ContrastRatio(fg, bg) >= minRatio {
		return fg
	}

	lighten := colorspace.ToHSL(bg).L < 50
	hsl := colorspace.ToHSL(fg)
	for {
		if lighten {
			hsl.L = min(100, hsl.L+lightnessStep)
		} else {
			hsl.L = max(0, hsl.L-lightnessStep)
		}
		c := colorspace.FromHSL(hsl)
		if colorspace.ContrastRatio(c, bg) >= minRatio {
			return c
		}
		if hsl.L >= 100 || hsl.L <= 0 {
			break
		}
	}

	if lighten {
		return colorspace.White
	}
	return colorspace.Black
}

// GenerateAccessiblePalette derives a full palette from one brand color:
//
//   - secondary: saturation x0.6, lightness +20
//   - accent: hue +30
//   - text: black adjusted for readability against the brand color
//   - background: saturation x0.1, lightness 95
func GenerateAccessiblePalette(brand colorspace.RGB) Palette {
	hsl := colorspace.ToHSL(brand)

	secondary := colorspace.FromHSL(colorspace.HSL{H: hsl.H, S: hsl.S * 0.6, L: min(100, hsl.L+20)})
	accent := colorspace.FromHSL(colorspace.HSL{H: hsl.H + 30, S: hsl.S, L: hsl.L})
	text := AdjustForReadability(colorspace.Black, brand, DefaultMinContrast)
	background := colorspace.FromHSL(colorspace.HSL{H: hsl.H, S: hsl.S * 0.1, L: 95})

	return Palette{
		Primary:    brand.Hex(),
		Secondary:  secondary.Hex(),
		Accent:     accent.Hex(),
		Text:       text.Hex(),
		Background: background.Hex(),
	}
}

// FromColors builds a palette from extracted colors, most significant first.
//
// The first color is the primary. Secondary and accent come from the next
// colors when present and are derived from the primary otherwise. The
// background is always derived, and the text color is readability-adjusted
// against it.
func FromColors(colors []colorspace.RGB) (Palette, error) {
	if len(colors) == 0 {
		return Palette{}, ErrEmptyColors
	}
	p := GenerateAccessiblePalette(colors[0])
	if len(colors) > 1 {
		p.Secondary = colors[1].Hex()
	}
	if len(colors) > 2 {
		p.Accent = colors[2].Hex()
	}
	bg := colorspace.MustParseHex(p.Background)
	p.Text = AdjustForReadability(colorspace.Black, bg, DefaultMinContrast).Hex()
	return p, nil
}
