package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"maps"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ironsheep/template-tools-mcp/internal/cluster"
	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
	"github.com/ironsheep/template-tools-mcp/internal/compositor"
	"github.com/ironsheep/template-tools-mcp/internal/decompose"
	"github.com/ironsheep/template-tools-mcp/internal/imaging"
	"github.com/ironsheep/template-tools-mcp/internal/palette"
	"github.com/ironsheep/template-tools-mcp/internal/param"
	"github.com/ironsheep/template-tools-mcp/internal/template"
	"github.com/ironsheep/template-tools-mcp/internal/variant"
	"github.com/ironsheep/template-tools-mcp/internal/zone"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Msg("tool call")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	// Templates
	case "template_decompose":
		return s.handleTemplateDecompose(args)
	case "template_from_image":
		return s.handleTemplateFromImage(ctx, args)
	case "template_detect_regions":
		return s.handleTemplateDetectRegions(ctx, args)
	case "template_get":
		return s.handleTemplateGet(args)
	case "template_list":
		return s.handleTemplateList()
	case "template_reextract":
		return s.handleTemplateReExtract(args)
	case "template_render":
		return s.handleTemplateRender(ctx, args)
	case "template_overlay":
		return s.handleTemplateOverlay(ctx, args)

	// Colors and palettes
	case "palette_generate":
		return s.handlePaletteGenerate(args)
	case "palette_adjust_readability":
		return s.handlePaletteAdjustReadability(args)
	case "color_contrast":
		return s.handleColorContrast(args)
	case "color_cluster":
		return s.handleColorCluster(args)
	case "color_sample":
		return s.handleColorSample(args)

	// Batch variants
	case "variants_submit":
		return s.handleVariantsSubmit(ctx, args)
	case "variants_status":
		return s.handleVariantsStatus(ctx, args)
	case "variants_cancel":
		return s.handleVariantsCancel(args)
	case "variants_list":
		return s.handleVariantsList()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id any, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; absent arguments decode to the zero
// value.
func decodeArgs[T any](args json.RawMessage) (T, error) {
	var a T
	if len(args) == 0 || string(args) == "null" {
		return a, nil
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return a, fmt.Errorf("invalid arguments: %w", err)
	}
	return a, nil
}

func (s *Server) loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	resolved, err := s.assets.Resolve(path)
	if err != nil {
		return nil, err
	}
	return s.assets.Load(resolved)
}

func (s *Server) lookup(id string, version int) (*template.Template, error) {
	if id == "" {
		return nil, errors.New("template id is required")
	}
	if version > 0 {
		return s.registry.Version(id, version)
	}
	return s.registry.Template(id)
}

func (s *Server) decomposeOptions() decompose.Options {
	return decompose.Options{Limits: s.opts.Limits, Logger: s.opts.Logger}
}

// === Template Handlers ===

type documentArgs struct {
	Path     string `json:"path"`
	Document string `json:"document"`
	Format   string `json:"format"`
}

func (s *Server) loadDocument(a documentArgs) (*decompose.Document, error) {
	switch {
	case a.Path != "":
		return decompose.DecodeFile(a.Path, s.opts.Limits)
	case a.Document != "":
		return decompose.Decode(strings.NewReader(a.Document), decompose.Format(strings.ToLower(a.Format)), s.opts.Limits)
	}
	return nil, errors.New("path or document is required")
}

// TemplateSummary is a template without its zone tree.
type TemplateSummary struct {
	ID         string            `json:"id"`
	Version    int               `json:"version"`
	Name       string            `json:"name"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Zones      int               `json:"zones"`
	CreatedAt  time.Time         `json:"createdAt"`
	Parameters []param.Parameter `json:"parameters,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

func summarize(t *template.Template, withParams bool) TemplateSummary {
	sum := TemplateSummary{
		ID:        t.ID,
		Version:   t.Version,
		Name:      t.Name,
		Width:     t.Tree.Width,
		Height:    t.Tree.Height,
		Zones:     len(t.Tree.Zones()),
		CreatedAt: t.CreatedAt,
	}
	if withParams {
		sum.Parameters = t.Parameters
	}
	return sum
}

func (s *Server) publish(name string, res *decompose.Result) (TemplateSummary, error) {
	tpl, err := template.New(name, res.Tree, param.Options{})
	if err != nil {
		return TemplateSummary{}, err
	}
	if err := s.registry.Put(tpl); err != nil {
		return TemplateSummary{}, err
	}
	s.log.Info().Str("template_id", tpl.ID).Str("name", name).Int("parameters", len(tpl.Parameters)).Msg("template published")
	sum := summarize(tpl, true)
	sum.Warnings = res.Warnings
	return sum, nil
}

type templateDecomposeArgs struct {
	documentArgs
	Name string `json:"name"`
}

func (s *Server) handleTemplateDecompose(args json.RawMessage) (any, error) {
	a, err := decodeArgs[templateDecomposeArgs](args)
	if err != nil {
		return nil, err
	}
	doc, err := s.loadDocument(a.documentArgs)
	if err != nil {
		return nil, err
	}
	res, err := decompose.FromDocument(doc, s.decomposeOptions())
	if err != nil {
		return nil, err
	}
	name := a.Name
	if name == "" {
		name = baseName(a.Path, "untitled")
	}
	return s.publish(name, res)
}

func baseName(path, fallback string) string {
	if path == "" {
		return fallback
	}
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}

type detectArgs struct {
	Path          string   `json:"path"`
	Name          string   `json:"name"`
	MinConfidence *float64 `json:"min_confidence"`
	OCR           bool     `json:"ocr"`
}

func (s *Server) detect(ctx context.Context, img image.Image, minConfidence float64, useOCR bool) ([]decompose.Region, error) {
	oracles := []decompose.Oracle{s.detector}
	if useOCR {
		oracles = append(oracles, s.ocr)
	}
	return decompose.Detect(ctx, img, minConfidence, oracles...)
}

func (s *Server) handleTemplateFromImage(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[detectArgs](args)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	minConf := 0.5
	if a.MinConfidence != nil {
		minConf = *a.MinConfidence
	}
	regions, err := s.detect(ctx, img, minConf, a.OCR)
	if err != nil {
		return nil, err
	}
	res, err := decompose.FromRegions(regions, img, s.decomposeOptions())
	if err != nil {
		return nil, err
	}
	name := a.Name
	if name == "" {
		name = baseName(a.Path, "untitled")
	}
	return s.publish(name, res)
}

func (s *Server) handleTemplateDetectRegions(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[detectArgs](args)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	var minConf float64
	if a.MinConfidence != nil {
		minConf = *a.MinConfidence
	}
	regions, err := s.detect(ctx, img, minConf, a.OCR)
	if err != nil {
		return nil, err
	}
	if regions == nil {
		regions = []decompose.Region{}
	}
	b := img.Bounds()
	return map[string]any{
		"width":   b.Dx(),
		"height":  b.Dy(),
		"count":   len(regions),
		"regions": regions,
	}, nil
}

type templateRefArgs struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

func (s *Server) handleTemplateGet(args json.RawMessage) (any, error) {
	a, err := decodeArgs[templateRefArgs](args)
	if err != nil {
		return nil, err
	}
	return s.lookup(a.ID, a.Version)
}

func (s *Server) handleTemplateList() (any, error) {
	tpls := s.registry.List()
	slices.SortFunc(tpls, func(a, b *template.Template) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	out := make([]TemplateSummary, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, summarize(t, false))
	}
	return map[string]any{"count": len(out), "templates": out}, nil
}

type templateReExtractArgs struct {
	documentArgs
	ID string `json:"id"`
}

func (s *Server) handleTemplateReExtract(args json.RawMessage) (any, error) {
	a, err := decodeArgs[templateReExtractArgs](args)
	if err != nil {
		return nil, err
	}
	cur, err := s.lookup(a.ID, 0)
	if err != nil {
		return nil, err
	}
	doc, err := s.loadDocument(a.documentArgs)
	if err != nil {
		return nil, err
	}
	res, err := decompose.FromDocument(doc, s.decomposeOptions())
	if err != nil {
		return nil, err
	}
	next, err := cur.ReExtract(res.Tree, param.Options{})
	if err != nil {
		return nil, err
	}
	if err := s.registry.Put(next); err != nil {
		return nil, err
	}
	s.log.Info().Str("template_id", next.ID).Int("version", next.Version).Msg("template re-extracted")
	sum := summarize(next, true)
	sum.Warnings = res.Warnings
	return sum, nil
}

// resolveValues builds a value set: the brand palette first, when a brand
// color is given, then explicit values on top. Values for unknown ids are
// passed through so the compositor reports them as binding warnings.
func resolveValues(params []param.Parameter, brandColor string, raw map[string]any) (param.Values, error) {
	values := param.Values{}
	if brandColor != "" {
		c, err := colorspace.ParseHex(brandColor)
		if err != nil {
			return nil, fmt.Errorf("brand color: %w", err)
		}
		bv, err := param.BrandValues(palette.GenerateAccessiblePalette(c))
		if err != nil {
			return nil, err
		}
		maps.Copy(values, bv)
	}
	for id, r := range raw {
		p, ok := param.Find(params, id)
		if !ok {
			values[id] = looseValue(r)
			continue
		}
		v, err := param.Coerce(p, r)
		if err != nil {
			return nil, err
		}
		values[id] = v
	}
	return values, nil
}

func looseValue(raw any) zone.Value {
	switch r := raw.(type) {
	case string:
		return zone.Text(r)
	case float64:
		return zone.Number(r)
	case bool:
		return zone.Bool(r)
	}
	return zone.Text(fmt.Sprint(raw))
}

type templateRenderArgs struct {
	templateRefArgs
	Values     map[string]any `json:"values"`
	BrandColor string         `json:"brand_color"`
	ZoneID     string         `json:"zone_id"`
	Scale      float64        `json:"scale"`
}

func (s *Server) render(ctx context.Context, ref templateRefArgs, brandColor string, raw map[string]any) (*template.Template, *compositor.Render, error) {
	tpl, err := s.lookup(ref.ID, ref.Version)
	if err != nil {
		return nil, nil, err
	}
	values, err := resolveValues(tpl.Parameters, brandColor, raw)
	if err != nil {
		return nil, nil, err
	}
	r, err := s.compositor.Render(ctx, tpl.Tree, tpl.Parameters, values)
	if err != nil {
		return nil, nil, err
	}
	return tpl, r, nil
}

func (s *Server) handleTemplateRender(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[templateRenderArgs](args)
	if err != nil {
		return nil, err
	}
	tpl, r, err := s.render(ctx, a.templateRefArgs, a.BrandColor, a.Values)
	if err != nil {
		return nil, err
	}

	var art *imaging.Artifact
	switch {
	case a.ZoneID != "":
		art, err = imaging.CropZone(r.Image, tpl.Tree, a.ZoneID, a.Scale)
	case a.Scale > 0 && a.Scale != 1:
		art, err = imaging.Crop(r.Image, r.Image.Bounds(), a.Scale)
	default:
		art = imaging.FromPNG(r.PNG, r.Scene.Width, r.Scene.Height)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"template_id": tpl.ID,
		"version":     tpl.Version,
		"state":       r.State,
		"scene":       r.Scene,
		"warnings":    warningsOrEmpty(r.Warnings),
		"duration_ms": r.Duration.Milliseconds(),
		"image":       art,
	}, nil
}

func warningsOrEmpty(w []compositor.BindingWarning) []compositor.BindingWarning {
	if w == nil {
		return []compositor.BindingWarning{}
	}
	return w
}

type templateOverlayArgs struct {
	templateRefArgs
	Values map[string]any `json:"values"`
	Labels *bool          `json:"labels"`
	Hidden bool           `json:"hidden"`
}

func (s *Server) handleTemplateOverlay(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[templateOverlayArgs](args)
	if err != nil {
		return nil, err
	}
	tpl, r, err := s.render(ctx, a.templateRefArgs, "", a.Values)
	if err != nil {
		return nil, err
	}
	labels := a.Labels == nil || *a.Labels
	art, err := imaging.ZoneOverlay(r.Image, tpl.Tree, imaging.OverlayOptions{Labels: labels, Hidden: a.Hidden})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"template_id": tpl.ID,
		"version":     tpl.Version,
		"zones":       len(tpl.Tree.Zones()),
		"image":       art,
	}, nil
}

// === Color Handlers ===

type paletteGenerateArgs struct {
	BrandColor string `json:"brand_color"`
	Path       string `json:"path"`
	Steps      int    `json:"steps"`
}

func (s *Server) handlePaletteGenerate(args json.RawMessage) (any, error) {
	a, err := decodeArgs[paletteGenerateArgs](args)
	if err != nil {
		return nil, err
	}
	var brand colorspace.RGB
	switch {
	case a.BrandColor != "":
		if brand, err = colorspace.ParseHex(a.BrandColor); err != nil {
			return nil, err
		}
	case a.Path != "":
		img, err := s.loadImage(a.Path)
		if err != nil {
			return nil, err
		}
		brand = cluster.BrandColor(img)
	default:
		return nil, errors.New("brand_color or path is required")
	}
	steps := a.Steps
	if steps <= 0 {
		steps = 3
	}

	p := palette.GenerateAccessiblePalette(brand)
	textRatio, err := colorspace.ContrastRatioHex(p.Text, p.Background)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"brand":         brand.Hex(),
		"palette":       p,
		"harmony":       palette.GenerateComplementary(brand),
		"variations":    palette.CreateVariations(brand, steps),
		"text_contrast": round2(textRatio),
	}, nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

type readabilityArgs struct {
	Foreground string  `json:"foreground"`
	Background string  `json:"background"`
	MinRatio   float64 `json:"min_ratio"`
}

func (s *Server) handlePaletteAdjustReadability(args json.RawMessage) (any, error) {
	a, err := decodeArgs[readabilityArgs](args)
	if err != nil {
		return nil, err
	}
	fg, err := colorspace.ParseHex(a.Foreground)
	if err != nil {
		return nil, fmt.Errorf("foreground: %w", err)
	}
	bg, err := colorspace.ParseHex(a.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	minRatio := a.MinRatio
	if minRatio <= 0 {
		minRatio = palette.DefaultMinContrast
	}

	adjusted := palette.AdjustForReadability(fg, bg, minRatio)
	ratio := colorspace.ContrastRatio(adjusted, bg)
	return map[string]any{
		"original":       fg.Hex(),
		"adjusted":       adjusted.Hex(),
		"background":     bg.Hex(),
		"original_ratio": round2(colorspace.ContrastRatio(fg, bg)),
		"ratio":          round2(ratio),
		"min_ratio":      minRatio,
		"passes":         ratio >= minRatio,
	}, nil
}

type contrastArgs struct {
	Color1 string `json:"color1"`
	Color2 string `json:"color2"`
}

func (s *Server) handleColorContrast(args json.RawMessage) (any, error) {
	a, err := decodeArgs[contrastArgs](args)
	if err != nil {
		return nil, err
	}
	ratio, err := colorspace.ContrastRatioHex(a.Color1, a.Color2)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"ratio":      round2(ratio),
		"aa_normal":  ratio >= 4.5,
		"aa_large":   ratio >= 3,
		"aaa_normal": ratio >= 7,
		"aaa_large":  ratio >= 4.5,
	}, nil
}

type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

type colorClusterArgs struct {
	Path   string      `json:"path"`
	K      int         `json:"k"`
	Method string      `json:"method"`
	Stride int         `json:"stride"`
	Seed   *int64      `json:"seed"`
	Region *regionArgs `json:"region"`
}

func (s *Server) handleColorCluster(args json.RawMessage) (any, error) {
	a, err := decodeArgs[colorClusterArgs](args)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	method, err := cluster.ParseMethod(a.Method)
	if err != nil {
		return nil, err
	}
	k := a.K
	if k == 0 {
		k = 5
	}
	opts := s.opts.Cluster
	if a.Stride > 0 {
		opts.Stride = a.Stride
	}
	if a.Seed != nil {
		opts.Seed = *a.Seed
	}
	var region *image.Rectangle
	if a.Region != nil {
		r := image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2)
		if !r.In(img.Bounds()) || r.Empty() {
			return nil, fmt.Errorf("region %v outside image bounds %v", r, img.Bounds())
		}
		region = &r
	}
	return imaging.DominantColors(img, k, region, method, opts)
}

type colorSampleArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleColorSample(args json.RawMessage) (any, error) {
	a, err := decodeArgs[colorSampleArgs](args)
	if err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// === Variant Handlers ===

type variantsSubmitArgs struct {
	TemplateID  string                    `json:"template_id"`
	Version     int                       `json:"version"`
	Targets     []string                  `json:"targets"`
	Values      map[string]map[string]any `json:"values"`
	BrandColors map[string]string         `json:"brand_colors"`
}

func (s *Server) handleVariantsSubmit(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[variantsSubmitArgs](args)
	if err != nil {
		return nil, err
	}
	tpl, err := s.lookup(a.TemplateID, a.Version)
	if err != nil {
		return nil, err
	}
	for target := range a.Values {
		if !slices.Contains(a.Targets, target) {
			return nil, fmt.Errorf("values given for unknown target %q", target)
		}
	}

	params := tpl.Parameters
	resolve := func(_ context.Context, target string) (param.Values, error) {
		return resolveValues(params, a.BrandColors[target], a.Values[target])
	}
	id, err := s.engine.SubmitVersion(ctx, tpl.ID, tpl.Version, a.Targets, resolve)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"job_id":      id,
		"template_id": tpl.ID,
		"version":     tpl.Version,
		"targets":     len(a.Targets),
	}, nil
}

type variantsStatusArgs struct {
	JobID  string `json:"job_id"`
	Images bool   `json:"images"`
	Wait   bool   `json:"wait"`
}

func (s *Server) handleVariantsStatus(ctx context.Context, args json.RawMessage) (any, error) {
	a, err := decodeArgs[variantsStatusArgs](args)
	if err != nil {
		return nil, err
	}
	var job *variant.Job
	if a.Wait {
		job, err = s.engine.Wait(ctx, a.JobID)
	} else {
		job, err = s.engine.Job(a.JobID)
	}
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"job":     job,
		"summary": job.Summary(),
	}
	if a.Images {
		images := make(map[string]*imaging.Artifact)
		for _, r := range job.Results {
			if r.Status == variant.ResultOK && r.Scene != nil {
				images[r.Target] = imaging.FromPNG(r.PNG, r.Scene.Width, r.Scene.Height)
			}
		}
		out["images"] = images
	}
	return out, nil
}

type jobArgs struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleVariantsCancel(args json.RawMessage) (any, error) {
	a, err := decodeArgs[jobArgs](args)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Cancel(a.JobID); err != nil {
		return nil, err
	}
	job, err := s.engine.Job(a.JobID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"job_id":    job.ID,
		"status":    job.Status,
		"cancelled": job.Cancelled,
		"progress":  job.Progress,
	}, nil
}

// JobSummary is a job without its results.
type JobSummary struct {
	ID         string         `json:"id"`
	TemplateID string         `json:"templateId"`
	Status     variant.Status `json:"status"`
	Progress   float64        `json:"progress"`
	Targets    int            `json:"targets"`
	Cancelled  bool           `json:"cancelled,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func (s *Server) handleVariantsList() (any, error) {
	jobs := s.engine.List()
	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobSummary{
			ID:         j.ID,
			TemplateID: j.TemplateID,
			Status:     j.Status,
			Progress:   j.Progress,
			Targets:    len(j.Targets),
			Cancelled:  j.Cancelled,
			CreatedAt:  j.CreatedAt,
		})
	}
	return map[string]any{"count": len(out), "jobs": out}, nil
}
