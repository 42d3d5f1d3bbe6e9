// Package ocr recognises text regions with Tesseract (via gosseract/v2) and
// offers them to image decomposition as a region oracle.
//
// # Prerequisites
//
// Tesseract and its development headers must be installed, and the binary
// must be built with cgo:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language (tesseract-ocr-<lang>
// packages). The default language is English ("eng").
//
// Without cgo the package still compiles; Oracle.Regions then returns
// ErrUnavailable and Info reports OCR as unavailable.
//
// # Performance Considerations
//
// OCR is computationally expensive. Each call creates its own Tesseract
// client, so concurrent decompositions do not share state.
package ocr
