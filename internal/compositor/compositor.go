package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// State is the progress of one render.
type State string

const (
	StateNotStarted         State = "not_started"
	StateApplyingParameters State = "applying_parameters"
	StateCompositing        State = "compositing"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

var (
	// ErrAssetUnreadable means an image referenced by a zone could not be
	// loaded or decoded.
	ErrAssetUnreadable = errors.New("asset unreadable")

	// ErrCanvasAllocation means the output canvas is empty or over the
	// configured pixel limit.
	ErrCanvasAllocation = errors.New("canvas allocation failed")
)

// RenderError is a structural failure of one render.
type RenderError struct {
	ZoneID string
	Err    error
}

func (e *RenderError) Error() string {
	if e.ZoneID == "" {
		return fmt.Sprintf("render: %v", e.Err)
	}
	return fmt.Sprintf("render zone %s: %v", e.ZoneID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// AssetSource resolves image references of Image values.
type AssetSource interface {
	Image(ctx context.Context, ref string) (image.Image, error)
}

// DefaultMaxCanvasPixels is 40 megapixels.
const DefaultMaxCanvasPixels = 40_000_000

// Options configures a Compositor.
type Options struct {
	// Assets resolves image references. Nil means only embedded rasters
	// can be drawn.
	Assets AssetSource

	// MaxCanvasPixels caps the output size. Zero means
	// DefaultMaxCanvasPixels.
	MaxCanvasPixels int64

	Logger zerolog.Logger
}

// Compositor renders zone trees. It holds no per-render state and is safe
// for concurrent use.
type Compositor struct {
	opts Options
}

// New creates a Compositor.
func New(opts Options) *Compositor {
	if opts.MaxCanvasPixels <= 0 {
		opts.MaxCanvasPixels = DefaultMaxCanvasPixels
	}
	return &Compositor{opts: opts}
}

// SceneLayer is one painted zone as it was drawn.
type SceneLayer struct {
	ZoneID     string                       `json:"zoneId"`
	Kind       zone.Kind                    `json:"kind"`
	Bounds     zone.Bounds                  `json:"bounds"`
	ZOrder     int                          `json:"zOrder"`
	Opacity    float64                      `json:"opacity"`
	BlendMode  zone.BlendMode               `json:"blendMode"`
	Properties map[zone.Property]zone.Value `json:"properties,omitempty"`
}

// Scene is the serializable description of a render.
type Scene struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Background string       `json:"background"`
	Layers     []SceneLayer `json:"layers"`
}

// Render is the outcome of one render call.
type Render struct {
	State    State            `json:"state"`
	Scene    *Scene           `json:"scene,omitempty"`
	Warnings []BindingWarning `json:"warnings,omitempty"`
	Duration time.Duration    `json:"duration"`

	// Image is the composited raster; PNG is its encoding.
	Image *image.RGBA `json:"-"`
	PNG   []byte      `json:"-"`

	// Transitions lists every state entered, in order.
	Transitions []State `json:"transitions"`
}

func (r *Render) enter(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Render applies values to a copy of tree and composites it.
//
// Zones are painted in ascending zOrder onto the tree background. Invisible
// zones are skipped, as are all descendants of invisible groups; a group's
// opacity multiplies into its children. Groups paint nothing themselves.
//
// Dropped bindings are returned as warnings. An unreadable image asset, an
// unallocatable canvas or a cancelled context fails the render; the
// returned Render is still populated with the Failed state and warnings.
func (c *Compositor) Render(ctx context.Context, tree *zone.Tree, params []param.Parameter, values param.Values) (*Render, error) {
	start := time.Now()
	r := &Render{State: StateNotStarted, Transitions: []State{StateNotStarted}}
	fail := func(err error) (*Render, error) {
		r.enter(StateFailed)
		r.Duration = time.Since(start)
		c.opts.Logger.Debug().Err(err).Msg("render failed")
		return r, err
	}

	r.enter(StateApplyingParameters)
	applied, warnings := Apply(tree, params, values)
	r.Warnings = warnings
	for _, w := range warnings {
		c.opts.Logger.Warn().
			Str("parameter_id", w.ParameterID).
			Str("zone_id", w.ZoneID).
			Str("property", string(w.Property)).
			Msg("binding dropped: " + w.Reason)
	}

	r.enter(StateCompositing)
	w, h := applied.Width, applied.Height
	if w <= 0 || h <= 0 || int64(w)*int64(h) > c.opts.MaxCanvasPixels {
		return fail(&RenderError{Err: fmt.Errorf("%w: %dx%d", ErrCanvasAllocation, w, h)})
	}

	bg := applied.Background.NRGBA()
	dst := imaging.New(w, h, bg)
	canvas := image.NewRGBA(dst.Bounds())
	copy(canvas.Pix, dst.Pix)

	scene := &Scene{Width: w, Height: h, Background: applied.Background.Hex()}
	for _, pz := range paintOrder(applied) {
		if err := ctx.Err(); err != nil {
			return fail(&RenderError{Err: err})
		}
		layer, origin, err := c.paint(ctx, pz.zone, canvas.Bounds())
		if err != nil {
			return fail(&RenderError{ZoneID: pz.zone.ID, Err: err})
		}
		if layer == nil {
			continue
		}
		scaleAlpha(layer, pz.opacity)
		composite(canvas, layer, origin, pz.zone.BlendMode)

		scene.Layers = append(scene.Layers, SceneLayer{
			ZoneID:     pz.zone.ID,
			Kind:       pz.zone.Kind,
			Bounds:     pz.zone.Bounds,
			ZOrder:     pz.zone.ZOrder,
			Opacity:    pz.opacity,
			BlendMode:  pz.zone.BlendMode,
			Properties: pz.zone.Props,
		})
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return fail(&RenderError{Err: fmt.Errorf("encode png: %w", err)})
	}

	r.Image = canvas
	r.PNG = buf.Bytes()
	r.Scene = scene
	r.enter(StateDone)
	r.Duration = time.Since(start)

	c.opts.Logger.Debug().
		Int("layers", len(scene.Layers)).
		Int("warnings", len(warnings)).
		Dur("duration", r.Duration).
		Msg("render done")
	return r, nil
}

type paintable struct {
	zone    *zone.Zone
	opacity float64
}

// paintOrder returns the visible, non-group, non-empty zones sorted by
// zOrder with their effective opacity.
func paintOrder(tree *zone.Tree) []paintable {
	var out []paintable
	tree.Walk(func(z *zone.Zone, ancestors []*zone.Zone) bool {
		if !z.Visible {
			return false
		}
		if z.Kind == zone.KindGroup || len(z.Children) > 0 {
			return true
		}
		if z.Bounds.Empty() {
			return true
		}
		op := z.Opacity
		for _, a := range ancestors {
			op *= a.Opacity
		}
		if op <= 0 {
			return true
		}
		out = append(out, paintable{zone: z, opacity: op})
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].zone.ZOrder < out[j].zone.ZOrder })
	return out
}
