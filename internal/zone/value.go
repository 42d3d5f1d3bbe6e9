package zone

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// ValueType is the type tag of a Value.
type ValueType string

const (
	TypeColor   ValueType = "color"
	TypeText    ValueType = "text"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeImage   ValueType = "image"
)

// Valid reports whether t is one of the known value types.
func (t ValueType) Valid() bool {
	switch t {
	case TypeColor, TypeText, TypeNumber, TypeBoolean, TypeImage:
		return true
	}
	return false
}

// ErrTypeMismatch is returned when a value does not fit a property.
var ErrTypeMismatch = errors.New("value type does not match property")

// Value is a property value: exactly one of the typed fields is meaningful,
// selected by Type.
//
// Image values hold an asset reference. The empty reference means "the
// zone's own decoded raster".
type Value struct {
	Type   ValueType
	Color  colorspace.RGB
	Text   string
	Number float64
	Bool   bool
	Image  string
}

func Color(c colorspace.RGB) Value { return Value{Type: TypeColor, Color: c} }
func Text(s string) Value          { return Value{Type: TypeText, Text: s} }
func Number(f float64) Value       { return Value{Type: TypeNumber, Number: f} }
func Bool(b bool) Value            { return Value{Type: TypeBoolean, Bool: b} }
func Image(ref string) Value       { return Value{Type: TypeImage, Image: ref} }

// IsZero reports whether v carries no type.
func (v Value) IsZero() bool { return v.Type == "" }

// Equal compares the meaningful field only.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeColor:
		return v.Color == o.Color
	case TypeText:
		return v.Text == o.Text
	case TypeNumber:
		return v.Number == o.Number
	case TypeBoolean:
		return v.Bool == o.Bool
	case TypeImage:
		return v.Image == o.Image
	}
	return true
}

func (v Value) String() string {
	switch v.Type {
	case TypeColor:
		return v.Color.Hex()
	case TypeText:
		return v.Text
	case TypeNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.Bool)
	case TypeImage:
		return v.Image
	}
	return ""
}

type valueJSON struct {
	Type  ValueType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes as {"type": ..., "value": ...}; colors are "#RRGGBB".
func (v Value) MarshalJSON() ([]byte, error) {
	var raw any
	switch v.Type {
	case TypeColor:
		raw = v.Color.Hex()
	case TypeText:
		raw = v.Text
	case TypeNumber:
		raw = v.Number
	case TypeBoolean:
		raw = v.Bool
	case TypeImage:
		raw = v.Image
	case "":
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown value type %q", v.Type)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(valueJSON{Type: v.Type, Value: b})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var w valueJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Value{Type: w.Type}
	var err error
	switch w.Type {
	case TypeColor:
		var s string
		if err = json.Unmarshal(w.Value, &s); err == nil {
			out.Color, err = colorspace.ParseHex(s)
		}
	case TypeText:
		err = json.Unmarshal(w.Value, &out.Text)
	case TypeNumber:
		err = json.Unmarshal(w.Value, &out.Number)
	case TypeBoolean:
		err = json.Unmarshal(w.Value, &out.Bool)
	case TypeImage:
		err = json.Unmarshal(w.Value, &out.Image)
	default:
		return fmt.Errorf("unknown value type %q", w.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s value: %w", w.Type, err)
	}
	*v = out
	return nil
}
