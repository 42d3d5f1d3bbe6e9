//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/template-tools-mcp/internal/decompose"
)

var levels = map[Level]gosseract.PageIteratorLevel{
	LevelWord:  gosseract.RIL_WORD,
	LevelLine:  gosseract.RIL_TEXTLINE,
	LevelBlock: gosseract.RIL_BLOCK,
}

func (o *Oracle) client() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if o.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(o.opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(o.opts.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// Regions implements decompose.Oracle. Blank recognitions are dropped.
// Tesseract is not interruptible, so ctx is only checked before and after
// the recognition pass.
func (o *Oracle) Regions(ctx context.Context, img image.Image) ([]decompose.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client, err := o.client()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(levels[o.opts.Level])
	if err != nil {
		return nil, fmt.Errorf("failed to get bounding boxes: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	regions := make([]decompose.Region, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" || box.Box.Empty() {
			continue
		}
		// Boxes are relative to the encoded image, whose origin is (0,0).
		r := box.Box.Add(b.Min)
		regions = append(regions, decompose.Region{
			ID:         regionID(len(regions) + 1),
			Type:       "text",
			Bounds:     decompose.Rect{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())},
			Confidence: box.Confidence / 100.0,
			Text:       text,
		})
	}
	o.opts.Logger.Debug().Int("regions", len(regions)).Str("level", string(o.opts.Level)).Msg("ocr pass complete")
	return regions, nil
}

// Info reports whether Tesseract can be initialised with the configured
// language. Initialisation is lazy in gosseract, so a blank probe image is
// recognised to force it.
func (o *Oracle) Info() Info {
	info := Info{Backend: "gosseract", Language: o.opts.Language}
	client, err := o.client()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer client.Close()

	var probe bytes.Buffer
	if err := imaging.Encode(&probe, imaging.New(16, 16, color.White), imaging.PNG); err != nil {
		info.Error = err.Error()
		return info
	}
	if err := client.SetImageFromBytes(probe.Bytes()); err != nil {
		info.Error = err.Error()
		return info
	}
	if _, err := client.Text(); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = true
	info.Version = client.Version()
	return info
}
