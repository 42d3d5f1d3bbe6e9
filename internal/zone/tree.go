package zone

import (
	"sort"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// Tree is a decomposed document: a canvas and its root zones, bottom to top.
type Tree struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Background colorspace.RGB `json:"background"`
	Roots      []*Zone        `json:"zones"`
}

// Clone deep-copies the tree. Raster payloads are shared.
func (t *Tree) Clone() *Tree {
	c := *t
	c.Roots = make([]*Zone, len(t.Roots))
	for i, z := range t.Roots {
		c.Roots[i] = z.Clone()
	}
	return &c
}

// WalkFunc is called for every zone in depth-first pre-order. ancestors
// runs from the root down to the direct parent; it must not be retained.
// Returning false skips the zone's children.
type WalkFunc func(z *Zone, ancestors []*Zone) bool

// Walk visits every zone depth-first, parents before children.
func (t *Tree) Walk(fn WalkFunc) {
	var stack []*Zone
	var visit func(z *Zone)
	visit = func(z *Zone) {
		if !fn(z, stack) {
			return
		}
		stack = append(stack, z)
		for _, ch := range z.Children {
			visit(ch)
		}
		stack = stack[:len(stack)-1]
	}
	for _, z := range t.Roots {
		visit(z)
	}
}

// Zones returns every zone in depth-first pre-order.
func (t *Tree) Zones() []*Zone {
	var out []*Zone
	t.Walk(func(z *Zone, _ []*Zone) bool {
		out = append(out, z)
		return true
	})
	return out
}

// Find returns the zone with the given id, or nil.
func (t *Tree) Find(id string) *Zone {
	var found *Zone
	t.Walk(func(z *Zone, _ []*Zone) bool {
		if found != nil {
			return false
		}
		if z.ID == id {
			found = z
			return false
		}
		return true
	})
	return found
}

// Flatten returns every zone sorted by ascending ZOrder. Ties keep
// depth-first order.
func (t *Tree) Flatten() []*Zone {
	out := t.Zones()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZOrder < out[j].ZOrder })
	return out
}
