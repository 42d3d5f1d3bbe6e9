//go:build !cgo

package ocr

import (
	"context"
	"image"

	"github.com/ironsheep/template-tools-mcp/internal/decompose"
)

// Regions implements decompose.Oracle.
func (o *Oracle) Regions(context.Context, image.Image) ([]decompose.Region, error) {
	return nil, ErrUnavailable
}

// Info reports OCR as unavailable.
func (o *Oracle) Info() Info {
	return Info{Backend: "none", Language: o.opts.Language, Error: ErrUnavailable.Error()}
}
