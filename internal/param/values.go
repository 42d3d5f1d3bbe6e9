package param

import (
	"fmt"
	"math"
	"slices"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/palette"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Coerce converts a loosely typed value (as decoded from JSON) to the
// parameter's type and checks it against the constraints.
//
// Colors are hex strings, images asset references. A zone.Value is
// accepted as is when its type matches.
func Coerce(p Parameter, raw any) (zone.Value, error) {
	var v zone.Value
	switch r := raw.(type) {
	case zone.Value:
		v = r
	case string:
		switch p.Type {
		case zone.TypeColor:
			c, err := colorspace.ParseHex(r)
			if err != nil {
				return zone.Value{}, fmt.Errorf("parameter %s: %w", p.ID, err)
			}
			v = zone.Color(c)
		case zone.TypeText:
			v = zone.Text(r)
		case zone.TypeImage:
			v = zone.Image(r)
		}
	case bool:
		v = zone.Bool(r)
	default:
		if n, ok := number(raw); ok {
			v = zone.Number(n)
		}
	}
	if v.Type != p.Type {
		return zone.Value{}, fmt.Errorf("parameter %s: %w: want %s, got %T", p.ID, zone.ErrTypeMismatch, p.Type, raw)
	}
	return CheckValue(p, v)
}

// number accepts the numeric types JSON and YAML decoders produce.
func number(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// CheckValue applies the constraints of p to v. Numbers outside min/max
// are clamped; a text value outside a non-empty enum is an ErrConstraint.
func CheckValue(p Parameter, v zone.Value) (zone.Value, error) {
	if v.Type != p.Type {
		return zone.Value{}, fmt.Errorf("parameter %s: %w: want %s, got %s", p.ID, zone.ErrTypeMismatch, p.Type, v.Type)
	}
	c := p.Constraints
	if c == nil {
		return v, nil
	}
	switch v.Type {
	case zone.TypeNumber:
		if c.Min != nil {
			v.Number = math.Max(*c.Min, v.Number)
		}
		if c.Max != nil {
			v.Number = math.Min(*c.Max, v.Number)
		}
	case zone.TypeText:
		if len(c.Enum) > 0 && !slices.Contains(c.Enum, v.Text) {
			return zone.Value{}, fmt.Errorf("parameter %s: %w: %q not in %v", p.ID, ErrConstraint, v.Text, c.Enum)
		}
	}
	return v, nil
}

// Resolve coerces a raw id->value map against a parameter list. Unknown
// ids are an ErrUnknownParameter.
func Resolve(params []Parameter, raw map[string]any) (Values, error) {
	out := make(Values, len(raw))
	for id, r := range raw {
		p, ok := Find(params, id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
		}
		v, err := Coerce(p, r)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// Defaults returns every parameter's default value.
func Defaults(params []Parameter) Values {
	out := make(Values, len(params))
	for _, p := range params {
		out[p.ID] = p.Default
	}
	return out
}

// BrandValues maps a palette onto the team color parameters.
func BrandValues(p palette.Palette) (Values, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return Values{
		TeamPrimaryColor:   zone.Color(colorspace.MustParseHex(p.Primary)),
		TeamSecondaryColor: zone.Color(colorspace.MustParseHex(p.Secondary)),
		TeamAccentColor:    zone.Color(colorspace.MustParseHex(p.Accent)),
	}, nil
}
