package detection

import (
	"image"
	"math"
	"sort"
)

// textWindows are the sliding window sizes, roughly one line of small to
// large type.
var textWindows = []image.Point{{100, 30}, {150, 40}, {200, 50}, {80, 25}}

// textStrips slides windows over the edge map at half-window steps and
// keeps windows whose edge density is typical of type (5% to 40%) and whose
// edges run mostly horizontally. Overlapping hits are merged; the merged
// strip keeps the best confidence.
func textStrips(em *edgeMap, minConfidence float64) []shape {
	var hits []shape
	for _, win := range textWindows {
		for y := 0; y+win.Y <= em.h; y += win.Y / 2 {
			for x := 0; x+win.X <= em.w; x += win.X / 2 {
				r := image.Rect(x, y, x+win.X, y+win.Y)
				density := float64(em.count(r)) / float64(area(r))
				if density < 0.05 || density > 0.4 {
					continue
				}
				conf := horizontality(em, r) * (1 - math.Abs(density-0.2)/0.2)
				if conf >= minConfidence {
					hits = append(hits, shape{rect: r, confidence: math.Round(conf*1000) / 1000})
				}
			}
		}
	}

	merged := mergeOverlapping(hits)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].confidence > merged[j].confidence })
	return merged
}

// horizontality is the share of horizontal runs among all edge runs in r.
func horizontality(em *edgeMap, r image.Rectangle) float64 {
	runs := func(outer, inner int, at func(o, i int) bool) int {
		n := 0
		for o := 0; o < outer; o++ {
			in := false
			for i := 0; i < inner; i++ {
				e := at(o, i)
				if e && !in {
					n++
				}
				in = e
			}
		}
		return n
	}
	hr := runs(r.Dy(), r.Dx(), func(o, i int) bool { return em.at(r.Min.X+i, r.Min.Y+o) })
	vr := runs(r.Dx(), r.Dy(), func(o, i int) bool { return em.at(r.Min.X+o, r.Min.Y+i) })
	if hr+vr == 0 {
		return 0
	}
	return float64(hr) / float64(hr+vr)
}

func mergeOverlapping(in []shape) []shape {
	var out []shape
	for _, s := range in {
		merged := false
		for i := range out {
			if out[i].rect.Overlaps(s.rect) {
				out[i].rect = out[i].rect.Union(s.rect)
				out[i].confidence = max(out[i].confidence, s.confidence)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, s)
		}
	}
	return out
}
