// Package decompose turns source design artifacts into zone trees.
//
// Two inputs are supported: a layered document (FromDocument, typically the
// output of a PSD parser serialized as JSON or YAML) and a set of regions
// reported by a detection oracle over a flat image (FromRegions).
//
// # Failure Modes
//
// A malformed document, an unknown property key or an undecodable canvas
// payload is a *DecodeError. A document or raster over the configured
// Limits is a *SizeLimitExceeded, returned before the full decode. Both are
// fatal for the call; nothing is retried.
//
// Everything recoverable (unknown blend modes, inverted bounds, unknown
// region types) is normalized and reported in Result.Warnings.
package decompose
