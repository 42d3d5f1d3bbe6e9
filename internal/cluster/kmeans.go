package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// ErrInvalidK is returned when the requested cluster count is below 1.
var ErrInvalidK = errors.New("cluster count must be at least 1")

// DefaultIterations is the fixed number of assign/recenter passes.
const DefaultIterations = 8

// Options tunes the seeded k-means.
type Options struct {
	// Iterations is the number of assign/recenter passes. Zero means
	// DefaultIterations.
	Iterations int

	// Seed feeds the centroid draw. Equal seeds give equal results.
	Seed int64
}

func (o Options) iterations() int {
	if o.Iterations <= 0 {
		return DefaultIterations
	}
	return o.Iterations
}

// Centroid is one cluster of the result.
type Centroid struct {
	// Color is the centroid rounded to 8-bit RGB.
	Color colorspace.RGB `json:"color"`

	// Hex is Color in "#RRGGBB" form.
	Hex string `json:"hex"`

	// Population is the number of samples assigned in the last iteration.
	Population int `json:"population"`

	// Share is Population divided by the total sample count (0-1).
	Share float64 `json:"share"`

	// Spread is the standard deviation of member distances to the centroid,
	// in RGB units. Zero for empty or single-member clusters.
	Spread float64 `json:"spread"`

	// Mean is the unrounded centroid position (R, G, B).
	Mean [3]float64 `json:"mean"`
}

// Result is the outcome of Analyze.
type Result struct {
	// Centroids in centroid-index order.
	Centroids []Centroid `json:"centroids"`

	// Samples is the number of input samples.
	Samples int `json:"samples"`

	// Iterations is the number of passes performed.
	Iterations int `json:"iterations"`
}

// Colors returns the centroid colors in centroid-index order.
func (r *Result) Colors() []colorspace.RGB {
	out := make([]colorspace.RGB, len(r.Centroids))
	for i, c := range r.Centroids {
		out[i] = c.Color
	}
	return out
}

// ByPopulation returns a copy of the centroids sorted by population,
// largest first. Ties keep centroid-index order.
func (r *Result) ByPopulation() []Centroid {
	out := make([]Centroid, len(r.Centroids))
	copy(out, r.Centroids)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Population > out[j].Population
	})
	return out
}

// Cluster runs the seeded k-means and returns k centroid colors in
// centroid-index order. Empty input yields an empty slice.
func Cluster(samples []colorspace.RGB, k int, opts Options) ([]colorspace.RGB, error) {
	res, err := Analyze(samples, k, opts)
	if err != nil {
		return nil, err
	}
	return res.Colors(), nil
}

// Analyze runs the seeded k-means and returns centroids with population
// statistics.
//
// # Algorithm
//
//  1. Seed k centroids by drawing k samples uniformly at random from the
//     input, with replacement.
//  2. Repeat Options.Iterations times: assign every sample to its nearest
//     centroid (Euclidean distance in RGB), then move each centroid to the
//     component-wise mean of its members. A centroid with no members keeps
//     its previous position.
//
// Centroid means are kept in floating point between iterations and only
// rounded to 8-bit when the result is built.
func Analyze(samples []colorspace.RGB, k int, opts Options) (*Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(samples) == 0 {
		return &Result{Centroids: []Centroid{}}, nil
	}

	dataset := make(clusters.Observations, len(samples))
	for i, s := range samples {
		dataset[i] = clusters.Coordinates{float64(s.R), float64(s.G), float64(s.B)}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	cc := make(clusters.Clusters, k)
	for i := range cc {
		seed := dataset[rng.Intn(len(dataset))].Coordinates()
		cc[i].Center = append(clusters.Coordinates(nil), seed...)
	}

	iterations := opts.iterations()
	for it := 0; it < iterations; it++ {
		cc.Reset()
		for _, obs := range dataset {
			cc[cc.Nearest(obs)].Append(obs)
		}
		// Recenter leaves the center untouched when a cluster is empty.
		cc.Recenter()
	}

	out := make([]Centroid, k)
	for i, c := range cc {
		out[i] = Centroid{
			Color:      toRGB(c.Center),
			Population: len(c.Observations),
			Share:      float64(len(c.Observations)) / float64(len(dataset)),
			Spread:     spread(c),
			Mean:       [3]float64{c.Center[0], c.Center[1], c.Center[2]},
		}
		out[i].Hex = out[i].Color.Hex()
	}

	return &Result{
		Centroids:  out,
		Samples:    len(samples),
		Iterations: iterations,
	}, nil
}

// spread is the standard deviation of the members' distances to the center.
func spread(c clusters.Cluster) float64 {
	if len(c.Observations) < 2 {
		return 0
	}
	d := make([]float64, len(c.Observations))
	for i, obs := range c.Observations {
		d[i] = math.Sqrt(obs.Distance(c.Center))
	}
	return stat.StdDev(d, nil)
}

func toRGB(c clusters.Coordinates) colorspace.RGB {
	ch := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return colorspace.RGB{R: ch(c[0]), G: ch(c[1]), B: ch(c[2])}
}
