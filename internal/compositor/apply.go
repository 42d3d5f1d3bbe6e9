package compositor

import (
	"fmt"
	"slices"

	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// BindingWarning reports a parameter value that was dropped. It never fails
// a render.
type BindingWarning struct {
	ParameterID string        `json:"parameterId"`
	ZoneID      string        `json:"zoneId,omitempty"`
	Property    zone.Property `json:"property,omitempty"`
	Reason      string        `json:"reason"`
}

func (w BindingWarning) String() string {
	return fmt.Sprintf("parameter %s -> %s.%s: %s", w.ParameterID, w.ZoneID, w.Property, w.Reason)
}

// Apply returns a copy of tree with values applied through the parameter
// bindings. tree itself is never modified.
//
// Only parameters present in values are applied, in parameter-list order,
// so when two parameters bind the same property the later one wins.
// Unbound parameters are inert. Values for unknown ids, bindings to zones
// that do not exist, type mismatches and enum violations are skipped and
// reported as warnings. Numbers are clamped to their constraints.
func Apply(tree *zone.Tree, params []param.Parameter, values param.Values) (*zone.Tree, []BindingWarning) {
	out := tree.Clone()
	var warnings []BindingWarning

	known := make(map[string]bool, len(params))
	for _, p := range params {
		known[p.ID] = true
	}
	var unknown []string
	for id := range values {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	slices.Sort(unknown)
	for _, id := range unknown {
		warnings = append(warnings, BindingWarning{ParameterID: id, Reason: "unknown parameter"})
	}

	for _, p := range params {
		v, ok := values[p.ID]
		if !ok || !p.Binding.Bound() {
			continue
		}
		warn := func(reason string) {
			warnings = append(warnings, BindingWarning{
				ParameterID: p.ID,
				ZoneID:      p.Binding.ZoneID,
				Property:    p.Binding.Property,
				Reason:      reason,
			})
		}

		z := out.Find(p.Binding.ZoneID)
		if z == nil {
			warn("zone not found")
			continue
		}
		checked, err := param.CheckValue(p, v)
		if err != nil {
			warn(err.Error())
			continue
		}
		if err := z.Set(p.Binding.Property, checked); err != nil {
			warn(err.Error())
		}
	}

	return out, warnings
}
