package colorspace

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  RGB
	}{
		{"long with hash", "#FF8040", RGB{255, 128, 64}},
		{"long without hash", "ff8040", RGB{255, 128, 64}},
		{"short with hash", "#0AF", RGB{0, 170, 255}},
		{"short without hash", "fff", RGB{255, 255, 255}},
		{"lakers purple", "#552583", RGB{0x55, 0x25, 0x83}},
		{"surrounding space", "  #000000 ", RGB{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.input)
			if err != nil {
				t.Fatalf("ParseHex(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseHex(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseHex_Invalid(t *testing.T) {
	tests := []string{"", "#", "#12", "#1234", "#12345", "#1234567", "#GGGGGG", "red", "#12345z"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseHex(input)
			if err == nil {
				t.Fatalf("ParseHex(%q) should fail", input)
			}
			if !errors.Is(err, ErrInvalidHex) {
				t.Errorf("error should wrap ErrInvalidHex, got %v", err)
			}
		})
	}
}

func TestNormalizeHex(t *testing.T) {
	got, err := NormalizeHex("abc")
	if err != nil {
		t.Fatalf("NormalizeHex failed: %v", err)
	}
	if got != "#AABBCC" {
		t.Errorf("NormalizeHex: got %s, want #AABBCC", got)
	}
}

func TestRGB_Hex(t *testing.T) {
	if got := (RGB{1, 2, 255}).Hex(); got != "#0102FF" {
		t.Errorf("Hex: got %s, want #0102FF", got)
	}
}

func TestFromColor(t *testing.T) {
	got := FromColor(color.RGBA{10, 20, 30, 255})
	if got != (RGB{10, 20, 30}) {
		t.Errorf("FromColor: got %v", got)
	}
}

func TestToHSL_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		c       RGB
		h, s, l float64
	}{
		{"red", RGB{255, 0, 0}, 0, 100, 50},
		{"green", RGB{0, 255, 0}, 120, 100, 50},
		{"blue", RGB{0, 0, 255}, 240, 100, 50},
		{"white", RGB{255, 255, 255}, 0, 0, 100},
		{"black", RGB{0, 0, 0}, 0, 0, 0},
		{"gray", RGB{128, 128, 128}, 0, 0, 50.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToHSL(tt.c)
			if math.Abs(got.H-tt.h) > 0.5 || math.Abs(got.S-tt.s) > 0.5 || math.Abs(got.L-tt.l) > 0.5 {
				t.Errorf("ToHSL(%v) = %+v, want {%v %v %v}", tt.c, got, tt.h, tt.s, tt.l)
			}
		})
	}
}

func TestHSLRoundTrip(t *testing.T) {
	// Walk a coarse grid of the RGB cube; every triple must survive the trip.
	for r := 0; r <= 255; r += 15 {
		for g := 0; g <= 255; g += 15 {
			for b := 0; b <= 255; b += 15 {
				c := RGB{uint8(r), uint8(g), uint8(b)}
				back := FromHSL(ToHSL(c))
				if absDiff(back.R, c.R) > 1 || absDiff(back.G, c.G) > 1 || absDiff(back.B, c.B) > 1 {
					t.Fatalf("round trip %v -> %+v -> %v", c, ToHSL(c), back)
				}
			}
		}
	}
}

func TestFromHSL_ClampsAndWraps(t *testing.T) {
	if got := FromHSL(HSL{H: 360, S: 100, L: 50}); got != (RGB{255, 0, 0}) {
		t.Errorf("hue 360 should wrap to red, got %v", got)
	}
	if got := FromHSL(HSL{H: -120, S: 100, L: 50}); got != (RGB{0, 0, 255}) {
		t.Errorf("hue -120 should wrap to blue, got %v", got)
	}
	if got := FromHSL(HSL{H: 0, S: 0, L: 150}); got != White {
		t.Errorf("lightness above 100 should clamp to white, got %v", got)
	}
	if got := FromHSL(HSL{H: 0, S: 0, L: -5}); got != Black {
		t.Errorf("lightness below 0 should clamp to black, got %v", got)
	}
}

func TestContrastRatio_SameColor(t *testing.T) {
	for _, hex := range []string{"#000000", "#FFFFFF", "#552583", "#FDB927", "#808080"} {
		c := MustParseHex(hex)
		if got := ContrastRatio(c, c); math.Abs(got-1.0) > 1e-9 {
			t.Errorf("ContrastRatio(%s, %s) = %f, want 1", hex, hex, got)
		}
	}
}

func TestContrastRatio_BlackWhite(t *testing.T) {
	got, err := ContrastRatioHex("#000000", "#FFFFFF")
	if err != nil {
		t.Fatalf("ContrastRatioHex failed: %v", err)
	}
	if math.Abs(got-21.0) > 1e-9 {
		t.Errorf("black/white contrast: got %f, want 21", got)
	}

	// Symmetric
	rev, _ := ContrastRatioHex("#FFFFFF", "#000000")
	if rev != got {
		t.Errorf("contrast should be symmetric: %f vs %f", got, rev)
	}
}

func TestContrastRatioHex_Invalid(t *testing.T) {
	if _, err := ContrastRatioHex("#zzzzzz", "#FFFFFF"); err == nil {
		t.Error("expected error for malformed first color")
	}
	if _, err := ContrastRatioHex("#FFFFFF", "nope"); err == nil {
		t.Error("expected error for malformed second color")
	}
}

func TestRelativeLuminance(t *testing.T) {
	if got := RelativeLuminance(White); math.Abs(got-1) > 1e-9 {
		t.Errorf("white luminance: got %f, want 1", got)
	}
	if got := RelativeLuminance(Black); got != 0 {
		t.Errorf("black luminance: got %f, want 0", got)
	}
	// Below the 0.03928 knee the linear branch applies: 10/255/12.92
	want := (10.0 / 255.0) / 12.92
	if got := RelativeLuminance(RGB{10, 10, 10}); math.Abs(got-want) > 1e-12 {
		t.Errorf("dark gray luminance: got %g, want %g", got, want)
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
