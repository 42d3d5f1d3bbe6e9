// Package zone is the normalized design model shared by decomposition,
// parameter extraction and compositing.
//
// A Tree holds root zones in paint order; Group zones hold children. Zone
// properties come from a fixed vocabulary (see Property) and carry tagged
// Values, so an unknown key or a mistyped value is an error at the point it
// enters the model.
//
// Zone ids are assigned once by decomposition and never change. Parameters
// bind to (zone id, property); renaming a zone breaks those bindings.
//
// Trees are not safe for concurrent mutation. Consumers that apply values
// work on a Clone.
package zone
