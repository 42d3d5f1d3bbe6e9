// Package cluster extracts representative colors from raster pixel data.
//
// The core is a bounded k-means over RGB triples (Cluster / Analyze). It is
// deliberately not run to convergence: a fixed number of iterations keeps
// latency predictable on large images, and the result is good enough to
// seed brand palettes.
//
// # Determinism
//
// Centroids are seeded by drawing k samples uniformly at random, with
// replacement, from the input. The draw uses a math/rand source created from
// Options.Seed, so the same samples, k and seed always produce the same
// centroids. Tests must inject a seed instead of asserting values produced
// by an uncontrolled random source.
//
// # Edge Cases
//
//   - Empty input returns an empty result, not an error.
//   - k < 1 returns ErrInvalidK.
//   - A centroid with no assigned samples in an iteration keeps its previous
//     value; it is never re-seeded.
//   - Output is in centroid-index order. Callers that want dominant-first
//     ordering use Result.ByPopulation.
//
// # Palette Extraction
//
// ExtractPalette offers three methods over an image: the seeded k-means
// above, a run-to-convergence k-means (muesli/kmeans, non-deterministic) and
// a dominant-color pass (cenkalti/dominantcolor).
package cluster
