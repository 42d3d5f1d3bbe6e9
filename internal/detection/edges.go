package detection

import (
	"image"
	"math"
)

// edgeThreshold is the minimum luma step between neighbours that counts as
// an edge.
const edgeThreshold = 30.0

// minComponent drops edge components smaller than this as noise.
const minComponent = 10

// edgeMap is a binary gradient map of an image, in image-relative
// coordinates.
type edgeMap struct {
	w, h int
	px   []bool
}

// newEdgeMap marks pixels whose luma differs from the right or lower
// neighbour by more than edgeThreshold. The outermost row and column are
// never edges.
func newEdgeMap(img image.Image) *edgeMap {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	luma := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			luma[y*w+x] = lumaAt(img, b.Min.X+x, b.Min.Y+y)
		}
	}

	em := &edgeMap{w: w, h: h, px: make([]bool, w*h)}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := luma[y*w+x]
			if math.Abs(c-luma[y*w+x+1]) > edgeThreshold || math.Abs(c-luma[(y+1)*w+x]) > edgeThreshold {
				em.px[y*w+x] = true
			}
		}
	}
	return em
}

func (m *edgeMap) at(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.px[y*m.w+x]
}

// count returns the number of edge pixels in r.
func (m *edgeMap) count(r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if m.at(x, y) {
				n++
			}
		}
	}
	return n
}

// components groups edge pixels into 8-connected components, dropping the
// ones smaller than minComponent.
func (m *edgeMap) components() [][]image.Point {
	seen := make([]bool, len(m.px))
	var out [][]image.Point
	for i, e := range m.px {
		if !e || seen[i] {
			continue
		}
		comp := m.fill(image.Pt(i%m.w, i/m.w), seen)
		if len(comp) >= minComponent {
			out = append(out, comp)
		}
	}
	return out
}

// fill walks one component with an explicit stack.
func (m *edgeMap) fill(start image.Point, seen []bool) []image.Point {
	var comp []image.Point
	stack := []image.Point{start}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !m.at(p.X, p.Y) || seen[p.Y*m.w+p.X] {
			continue
		}
		seen[p.Y*m.w+p.X] = true
		comp = append(comp, p)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx != 0 || dy != 0 {
					stack = append(stack, image.Pt(p.X+dx, p.Y+dy))
				}
			}
		}
	}
	return comp
}

// lumaAt is the BT.601 luma of a pixel on a 0-255 scale.
func lumaAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}
