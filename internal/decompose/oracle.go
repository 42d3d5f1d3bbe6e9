package decompose

import (
	"context"
	"fmt"
	"image"
)

// Oracle reports semantic regions of a flat image. Implementations may be
// pixel heuristics or external recognisers.
type Oracle interface {
	Name() string
	Regions(ctx context.Context, img image.Image) ([]Region, error)
}

// Detect runs every oracle over img and concatenates their regions in
// oracle order. Regions below minConfidence are dropped. Region ids are
// prefixed with the oracle name when more than one oracle runs, so ids
// from different oracles never collide.
func Detect(ctx context.Context, img image.Image, minConfidence float64, oracles ...Oracle) ([]Region, error) {
	var out []Region
	for _, o := range oracles {
		regions, err := o.Regions(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("oracle %s: %w", o.Name(), err)
		}
		for _, r := range regions {
			if r.Confidence < minConfidence {
				continue
			}
			if len(oracles) > 1 && r.ID != "" {
				r.ID = o.Name() + "-" + r.ID
			}
			out = append(out, r)
		}
	}
	return out, nil
}
