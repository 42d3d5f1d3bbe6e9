// Package param derives user-adjustable parameters from a zone tree.
//
// A Parameter is typed, optionally constrained, and bound to exactly one
// (zone id, property) pair. Extraction is driven by property presence: a
// zone with a fill gets a fill color parameter, a text zone gets a text
// parameter, and so on. A fixed common vocabulary (team colors, player and
// team names) is always emitted so batch value sets have stable keys even
// for templates that do not use every one.
//
// Ids are a pure function of zone ids and properties. Re-extracting an
// unchanged tree yields the same ids, which keeps stored variant values
// valid across template versions.
package param
