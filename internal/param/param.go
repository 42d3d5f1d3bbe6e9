package param

import (
	"errors"
	"fmt"

	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// Category groups parameters by meaning.
type Category string

const (
	// CategoryBrand covers team colors and logos.
	CategoryBrand Category = "brand"
	// CategorySubject covers per-instance data such as a player's name.
	CategorySubject Category = "subject"
	// CategoryDesign covers pure layout and style.
	CategoryDesign Category = "design"
)

func (c Category) valid() bool {
	switch c {
	case CategoryBrand, CategorySubject, CategoryDesign:
		return true
	}
	return false
}

// Constraints restrict the values a parameter accepts. Min/Max apply to
// Number parameters, Enum to Text parameters.
type Constraints struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Enum []string `json:"enum,omitempty"`
}

// Binding is the (zone, property) pair a parameter drives. An empty ZoneID
// marks an unbound parameter.
type Binding struct {
	ZoneID   string        `json:"zoneId"`
	Property zone.Property `json:"property"`
}

// Bound reports whether the binding names a zone.
func (b Binding) Bound() bool { return b.ZoneID != "" }

// Parameter is a named, typed control bound to one zone property.
type Parameter struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"displayName"`
	Type        zone.ValueType `json:"type"`
	Category    Category       `json:"category"`
	Default     zone.Value     `json:"defaultValue"`
	Constraints *Constraints   `json:"constraints,omitempty"`
	Binding     Binding        `json:"binding"`
}

// Values assigns values to parameter ids.
type Values map[string]zone.Value

var (
	// ErrInvalidParameter wraps every problem found by Validate.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConstraint is returned when a value falls outside an enum.
	ErrConstraint = errors.New("value violates parameter constraints")

	// ErrUnknownParameter is returned for values keyed by an unknown id.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// Find returns the parameter with the given id.
func Find(params []Parameter, id string) (Parameter, bool) {
	for _, p := range params {
		if p.ID == id {
			return p, true
		}
	}
	return Parameter{}, false
}

// Validate checks a parameter list: unique ids, known types and
// categories, defaults of the declared type, bindings whose property
// accepts the parameter type, and sane constraints that the default
// satisfies.
//
// Bindings are not resolved against a tree. A parameter bound to a zone
// that no longer exists is inert, not invalid.
func Validate(params []Parameter) error {
	var errs []error
	seen := make(map[string]bool, len(params))
	bad := func(p Parameter, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w %q: %s", ErrInvalidParameter, p.ID, fmt.Sprintf(format, args...)))
	}

	for _, p := range params {
		if p.ID == "" {
			bad(p, "empty id")
		}
		if seen[p.ID] {
			bad(p, "duplicate id")
		}
		seen[p.ID] = true

		if !p.Type.Valid() {
			bad(p, "unknown type %q", p.Type)
			continue
		}
		if !p.Category.valid() {
			bad(p, "unknown category %q", p.Category)
		}
		if p.Default.Type != p.Type {
			bad(p, "default is %s, want %s", p.Default.Type, p.Type)
		}

		if p.Binding.Bound() || p.Binding.Property != "" {
			want := p.Binding.Property.Type()
			switch {
			case want == "":
				bad(p, "binding to unknown property %q", p.Binding.Property)
			case want != p.Type:
				bad(p, "%s parameter cannot bind to %s (%s)", p.Type, p.Binding.Property, want)
			}
		}
		if c := p.Constraints; c != nil {
			if (c.Min != nil || c.Max != nil) && p.Type != zone.TypeNumber {
				bad(p, "min/max on a %s parameter", p.Type)
			}
			if len(c.Enum) > 0 && p.Type != zone.TypeText {
				bad(p, "enum on a %s parameter", p.Type)
			}
			if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
				bad(p, "min %g > max %g", *c.Min, *c.Max)
			}
			if p.Default.Type == p.Type {
				v, err := CheckValue(p, p.Default)
				switch {
				case err != nil:
					bad(p, "default %s: %v", p.Default, err)
				case !v.Equal(p.Default):
					bad(p, "default %s outside [%s]", p.Default, rangeString(c))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func rangeString(c *Constraints) string {
	lo, hi := "-inf", "+inf"
	if c.Min != nil {
		lo = fmt.Sprint(*c.Min)
	}
	if c.Max != nil {
		hi = fmt.Sprint(*c.Max)
	}
	return lo + ", " + hi
}
