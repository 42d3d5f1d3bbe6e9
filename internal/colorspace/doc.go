// Package colorspace provides the colour arithmetic the template pipeline is
// built on: hex parsing and formatting, RGB/HSL conversion, relative
// luminance and WCAG contrast ratios.
//
// # Representation
//
// Colours travel through the pipeline in two forms:
//   - RGB: 8-bit sRGB components (0-255)
//   - HSL: Hue (0-360 degrees), Saturation (0-100), Lightness (0-100)
//
// Hue/saturation/lightness are kept as float64 so that a round trip
// RGB -> HSL -> RGB reproduces the original triple exactly after rounding.
//
// # Hex Strings
//
// ParseHex accepts "#RGB", "RGB", "#RRGGBB" and "RRGGBB" in either case and
// rejects everything else with ErrInvalidHex. Formatting always produces the
// canonical "#RRGGBB" upper-case form.
//
// # Thread Safety
//
// Every function in this package is pure and safe for concurrent use.
package colorspace
