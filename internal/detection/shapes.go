package detection

import (
	"image"
	"math"
	"sort"
)

// shape is a candidate region in image-relative coordinates.
type shape struct {
	rect       image.Rectangle
	confidence float64
}

// rectangles finds closed axis-aligned outlines. Each edge component is
// scored by how close its pixel count is to the perimeter of its bounding
// box; components scoring below tolerance or enclosing less than minArea
// are dropped. Results are largest first.
func rectangles(em *edgeMap, minArea int, tolerance float64) []shape {
	var out []shape
	for _, comp := range em.components() {
		minX, minY := em.w, em.h
		maxX, maxY := 0, 0
		for _, p := range comp {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
		w, h := maxX-minX, maxY-minY
		if w <= 0 || h <= 0 || w*h < minArea {
			continue
		}
		perimeter := float64(2 * (w + h))
		score := 1 - math.Abs(float64(len(comp))-perimeter)/perimeter
		if score < tolerance {
			continue
		}
		// Edges sit on the pixel before a step, so the shape starts one
		// pixel in from the top-left of the outline.
		out = append(out, shape{
			rect:       image.Rect(minX+1, minY+1, maxX+1, maxY+1),
			confidence: math.Round(score*1000) / 1000,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return area(out[i].rect) > area(out[j].rect)
	})
	return out
}

// circles runs a Hough transform over radii [minR, maxR], voting every 10
// degrees. A center needs votes from 60% of 2r sample points and must be
// the maximum of its 11x11 neighbourhood. Results are most confident first.
func circles(em *edgeMap, minR, maxR int) []shape {
	if minR <= 0 || maxR < minR {
		return nil
	}
	type vote struct{ dx, dy int }
	var out []shape
	acc := make([]int, em.w*em.h)
	for r := minR; r <= maxR; r++ {
		clear(acc)
		offsets := make([]vote, 0, 36)
		for deg := 0; deg < 360; deg += 10 {
			rad := float64(deg) * math.Pi / 180
			offsets = append(offsets, vote{int(float64(r) * math.Cos(rad)), int(float64(r) * math.Sin(rad))})
		}
		for i, e := range em.px {
			if !e {
				continue
			}
			x, y := i%em.w, i/em.w
			for _, o := range offsets {
				cx, cy := x-o.dx, y-o.dy
				if cx >= 0 && cy >= 0 && cx < em.w && cy < em.h {
					acc[cy*em.w+cx]++
				}
			}
		}

		threshold := int(float64(2*r) * 0.6)
		for y := r; y < em.h-r; y++ {
			for x := r; x < em.w-r; x++ {
				v := acc[y*em.w+x]
				if v < threshold || !localMax(acc, em.w, em.h, x, y, 5) {
					continue
				}
				out = append(out, shape{
					rect:       image.Rect(x-r, y-r, x+r, y+r),
					confidence: math.Min(float64(v)/float64(2*r), 1),
				})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].confidence > out[j].confidence })
	return dedupeCircles(out)
}

func localMax(acc []int, w, h, x, y, radius int) bool {
	v := acc[y*w+x]
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			nx, ny := x+dx, y+dy
			if (dx == 0 && dy == 0) || nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if acc[ny*w+nx] > v {
				return false
			}
		}
	}
	return true
}

// dedupeCircles keeps the first of any circles whose centers are closer
// than their mean radius.
func dedupeCircles(in []shape) []shape {
	var out []shape
	for _, c := range in {
		cc, cr := center(c.rect), c.rect.Dx()/2
		dup := false
		for _, k := range out {
			kc, kr := center(k.rect), k.rect.Dx()/2
			d := math.Hypot(float64(cc.X-kc.X), float64(cc.Y-kc.Y))
			if d < float64(cr+kr)/2 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

func area(r image.Rectangle) int { return r.Dx() * r.Dy() }
