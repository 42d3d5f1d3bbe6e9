// Package compositor applies parameter values to a zone tree and renders
// the result to a PNG.
//
// Rendering never mutates the template tree. Bindings that cannot be
// honored are reported as warnings; only structural problems such as an
// unreadable image asset fail a render.
package compositor
