// Package detection is a pixel-heuristic region oracle for image
// decomposition.
//
// It finds closed rectangles from edge outlines, circles with a Hough
// transform and lines of type from edge density, then labels them with the
// semantics image decomposition understands:
//
//   - background: the whole frame, always reported first
//   - photo: rectangles with a textured interior
//   - border: rectangles with a flat interior
//   - logo: circles
//   - text: strips whose edges run mostly horizontally
//
// # Edge Map
//
// Every detector works from one binary edge map: a pixel is an edge when
// its BT.601 luma differs from its right or lower neighbour by more than 30.
// Edges therefore sit on the last pixel before a step.
//
// # Limitations
//
// The heuristics suit flat graphic designs with solid fills. Outlined (not
// filled) rectangles produce double edges and are not reported. Detection
// never recognises text; pair it with the OCR oracle for that.
package detection
