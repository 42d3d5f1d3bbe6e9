package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/template-tools-mcp/internal/colorspace"
)

// cardDocument is a 40x20 canvas: a red panel on the left and a green team
// stripe on the right.
const cardDocument = `{
  "width": 40, "height": 20, "background": "#FFFFFF",
  "layers": [
    {"name": "Panel", "left": 0, "top": 0, "right": 20, "bottom": 20, "properties": {"fill": "#FF0000"}},
    {"name": "Team Stripe", "left": 20, "top": 0, "right": 40, "bottom": 20, "properties": {"fill": "#00FF00"}}
  ]
}`

const cardDocumentYAML = `
width: 40
height: 20
layers:
  - name: Panel
    right: 20
    bottom: 20
    properties: {fill: "#FFFF00"}
  - name: Team Stripe
    left: 20
    right: 40
    bottom: 20
    properties: {fill: "#00FF00"}
`

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the JSON text content.
func callTool(t *testing.T, s *Server, name string, args map[string]any) map[string]any {
	t.Helper()
	resp := toolResponse(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %+v", name, resp.Error)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("%s: result should be a map", name)
	}
	content, ok := result["content"].([]map[string]any)
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("%s: unexpected content %v", name, result["content"])
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("%s: result is not JSON: %v", name, err)
	}
	return out
}

// callToolErr runs a tools/call request that must fail with -32000.
func callToolErr(t *testing.T, s *Server, name string, args map[string]any) {
	t.Helper()
	resp := toolResponse(t, s, name, args)
	if resp.Error == nil {
		t.Fatalf("%s %v: expected an error", name, args)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("%s: error code got %d, want -32000", name, resp.Error.Code)
	}
}

func toolResponse(t *testing.T, s *Server, name string, args map[string]any) *MCPResponse {
	t.Helper()
	paramsJSON, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeImage decodes the "image" artifact of a tool result.
func decodeImage(t *testing.T, result map[string]any) image.Image {
	t.Helper()
	art, ok := result["image"].(map[string]any)
	if !ok {
		t.Fatalf("result has no image: %v", result)
	}
	if art["mime_type"] != "image/png" {
		t.Errorf("mime type: got %v", art["mime_type"])
	}
	data, err := base64.StdEncoding.DecodeString(art["image_base64"].(string))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	return img
}

func rgbAt(img image.Image, x, y int) [3]uint32 {
	r, g, b, _ := img.At(x, y).RGBA()
	return [3]uint32{r >> 8, g >> 8, b >> 8}
}

func publishCard(t *testing.T, s *Server) string {
	t.Helper()
	res := callTool(t, s, "template_decompose", map[string]any{"document": cardDocument, "name": "card"})
	id, ok := res["id"].(string)
	if !ok || id == "" {
		t.Fatalf("no template id in %v", res)
	}
	return id
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	callToolErr(t, s, "image_load", map[string]any{"path": "/x.png"})
}

func TestTemplateDecompose(t *testing.T) {
	s := newTestServer(t)
	res := callTool(t, s, "template_decompose", map[string]any{"document": cardDocument, "name": "card"})

	if res["name"] != "card" || res["version"] != float64(1) {
		t.Errorf("summary: %v", res)
	}
	if res["width"] != float64(40) || res["height"] != float64(20) || res["zones"] != float64(2) {
		t.Errorf("dimensions: %v", res)
	}

	ids := map[string]bool{}
	params, _ := res["parameters"].([]any)
	for _, p := range params {
		ids[p.(map[string]any)["id"].(string)] = true
	}
	for _, want := range []string{"teamPrimaryColor", "panelFill", "teamstripeFill"} {
		if !ids[want] {
			t.Errorf("parameter %s missing from %v", want, ids)
		}
	}
}

func TestTemplateDecompose_FromFile(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "trading-card.yaml")
	if err := os.WriteFile(path, []byte(cardDocumentYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	res := callTool(t, s, "template_decompose", map[string]any{"path": path})
	if res["name"] != "trading-card" {
		t.Errorf("name should default to the file name, got %v", res["name"])
	}

	// Inline YAML needs the format.
	callTool(t, s, "template_decompose", map[string]any{"document": cardDocumentYAML, "format": "yaml"})
}

func TestTemplateDecompose_Errors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		args map[string]any
	}{
		{"no source", map[string]any{}},
		{"bad json", map[string]any{"document": "{"}},
		{"bad format", map[string]any{"document": cardDocument, "format": "xml"}},
		{"missing file", map[string]any{"path": filepath.Join(t.TempDir(), "nope.json")}},
		{"unknown property", map[string]any{"document": `{"width":10,"height":10,"layers":[{"name":"x","right":5,"bottom":5,"properties":{"glow":1}}]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callToolErr(t, s, "template_decompose", tt.args)
		})
	}
}

func TestTemplateGetAndList(t *testing.T) {
	s := newTestServer(t)

	list := callTool(t, s, "template_list", nil)
	if list["count"] != float64(0) {
		t.Errorf("empty registry: %v", list)
	}

	id := publishCard(t, s)
	publishCard(t, s)

	got := callTool(t, s, "template_get", map[string]any{"id": id})
	if got["id"] != id || got["tree"] == nil {
		t.Errorf("template_get: %v", got)
	}
	callTool(t, s, "template_get", map[string]any{"id": id, "version": 1})
	callToolErr(t, s, "template_get", map[string]any{"id": id, "version": 2})
	callToolErr(t, s, "template_get", map[string]any{"id": "missing"})

	list = callTool(t, s, "template_list", nil)
	if list["count"] != float64(2) {
		t.Errorf("count: got %v", list["count"])
	}
}

func TestTemplateReExtract(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	res := callTool(t, s, "template_reextract", map[string]any{
		"id": id, "document": cardDocumentYAML, "format": "yaml",
	})
	if res["id"] != id || res["version"] != float64(2) {
		t.Errorf("re-extract: %v", res)
	}

	// Latest version renders the edited panel.
	img := decodeImage(t, callTool(t, s, "template_render", map[string]any{"id": id}))
	if got := rgbAt(img, 5, 5); got != [3]uint32{255, 255, 0} {
		t.Errorf("latest panel: got %v", got)
	}
	// Version 1 is unchanged.
	img = decodeImage(t, callTool(t, s, "template_render", map[string]any{"id": id, "version": 1}))
	if got := rgbAt(img, 5, 5); got != [3]uint32{255, 0, 0} {
		t.Errorf("version 1 panel: got %v", got)
	}

	callToolErr(t, s, "template_reextract", map[string]any{"id": "missing", "document": cardDocument})
}

func TestTemplateRender(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	tests := []struct {
		name      string
		args      map[string]any
		panel     [3]uint32
		stripe    [3]uint32
		wantWarns int
	}{
		{"defaults", map[string]any{}, [3]uint32{255, 0, 0}, [3]uint32{0, 255, 0}, 0},
		{"value", map[string]any{"values": map[string]any{"panelFill": "#0000FF"}}, [3]uint32{0, 0, 255}, [3]uint32{0, 255, 0}, 0},
		{"brand color", map[string]any{"brand_color": "#123456"}, [3]uint32{255, 0, 0}, [3]uint32{0x12, 0x34, 0x56}, 0},
		{"unknown parameter warns", map[string]any{"values": map[string]any{"ghost": "x"}}, [3]uint32{255, 0, 0}, [3]uint32{0, 255, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["id"] = id
			res := callTool(t, s, "template_render", tt.args)

			if res["state"] != "done" {
				t.Errorf("state: got %v", res["state"])
			}
			if warns, _ := res["warnings"].([]any); len(warns) != tt.wantWarns {
				t.Errorf("warnings: got %v", res["warnings"])
			}
			img := decodeImage(t, res)
			if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
				t.Errorf("size: got %dx%d", b.Dx(), b.Dy())
			}
			if got := rgbAt(img, 5, 5); got != tt.panel {
				t.Errorf("panel: got %v, want %v", got, tt.panel)
			}
			if got := rgbAt(img, 30, 10); got != tt.stripe {
				t.Errorf("stripe: got %v, want %v", got, tt.stripe)
			}
		})
	}
}

func TestTemplateRender_ZoneAndScale(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	res := callTool(t, s, "template_render", map[string]any{"id": id, "zone_id": "team-stripe"})
	img := decodeImage(t, res)
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("zone crop size: got %dx%d", b.Dx(), b.Dy())
	}
	if got := rgbAt(img, 10, 10); got != [3]uint32{0, 255, 0} {
		t.Errorf("zone crop color: got %v", got)
	}

	res = callTool(t, s, "template_render", map[string]any{"id": id, "scale": 0.5})
	if b := decodeImage(t, res).Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("scaled size: got %dx%d", b.Dx(), b.Dy())
	}

	callToolErr(t, s, "template_render", map[string]any{"id": id, "zone_id": "nope"})
}

func TestTemplateRender_Errors(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing id", map[string]any{}},
		{"unknown template", map[string]any{"id": "missing"}},
		{"wrong value type", map[string]any{"id": id, "values": map[string]any{"panelFill": 3}}},
		{"bad hex", map[string]any{"id": id, "values": map[string]any{"panelFill": "#GG0000"}}},
		{"bad brand color", map[string]any{"id": id, "brand_color": "blue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callToolErr(t, s, "template_render", tt.args)
		})
	}
}

func TestTemplateOverlay(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	res := callTool(t, s, "template_overlay", map[string]any{"id": id, "labels": false})
	if res["zones"] != float64(2) {
		t.Errorf("zones: got %v", res["zones"])
	}
	img := decodeImage(t, res)
	// Vector zones are outlined in #FF1744.
	if got := rgbAt(img, 0, 10); got != [3]uint32{0xFF, 0x17, 0x44} {
		t.Errorf("outline: got %v", got)
	}
	if got := rgbAt(img, 10, 10); got != [3]uint32{255, 0, 0} {
		t.Errorf("inside: got %v", got)
	}
}

func TestTemplateFromImage(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 64, 48, color.RGBA{30, 60, 90, 255})

	res := callTool(t, s, "template_from_image", map[string]any{"path": path, "name": "flat"})
	if res["name"] != "flat" || res["width"] != float64(64) || res["height"] != float64(48) {
		t.Errorf("summary: %v", res)
	}

	regions := callTool(t, s, "template_detect_regions", map[string]any{"path": path})
	if regions["width"] != float64(64) {
		t.Errorf("detect regions: %v", regions)
	}
	if _, ok := regions["regions"].([]any); !ok {
		t.Errorf("regions should be a list: %v", regions["regions"])
	}

	callToolErr(t, s, "template_from_image", map[string]any{})
	callToolErr(t, s, "template_detect_regions", map[string]any{"path": filepath.Join(t.TempDir(), "nope.png")})
}

func TestPaletteGenerate(t *testing.T) {
	s := newTestServer(t)

	res := callTool(t, s, "palette_generate", map[string]any{"brand_color": "#552583", "steps": 2})
	if res["brand"] != "#552583" {
		t.Errorf("brand: got %v", res["brand"])
	}
	p, ok := res["palette"].(map[string]any)
	if !ok || p["primary"] != "#552583" {
		t.Errorf("palette: %v", res["palette"])
	}
	if ratio, _ := res["text_contrast"].(float64); ratio < 4.5 {
		t.Errorf("text contrast: got %v", res["text_contrast"])
	}
	v, _ := res["variations"].(map[string]any)
	if lighter, _ := v["lighter"].([]any); len(lighter) != 2 {
		t.Errorf("variations: %v", res["variations"])
	}

	path := createTestImageFile(t, 10, 10, color.RGBA{0, 128, 0, 255})
	res = callTool(t, s, "palette_generate", map[string]any{"path": path})
	brand, err := colorspace.ParseHex(res["brand"].(string))
	if err != nil || brand.G <= brand.R || brand.G <= brand.B {
		t.Errorf("brand from a green logo: got %v", res["brand"])
	}

	callToolErr(t, s, "palette_generate", map[string]any{})
	callToolErr(t, s, "palette_generate", map[string]any{"brand_color": "purple"})
}

func TestPaletteAdjustReadability(t *testing.T) {
	s := newTestServer(t)

	res := callTool(t, s, "palette_adjust_readability", map[string]any{
		"foreground": "#777777", "background": "#FFFFFF",
	})
	if res["passes"] != true {
		t.Errorf("should pass after adjustment: %v", res)
	}
	if ratio, _ := res["ratio"].(float64); ratio < 4.5 {
		t.Errorf("ratio: got %v", res["ratio"])
	}
	if res["original"] != "#777777" || res["min_ratio"] != 4.5 {
		t.Errorf("echo: %v", res)
	}

	callToolErr(t, s, "palette_adjust_readability", map[string]any{"foreground": "#777777"})
}

func TestColorContrast(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		c1, c2    string
		ratio     float64
		aaNormal  bool
		aaaNormal bool
	}{
		{"black on white", "#000000", "#FFFFFF", 21, true, true},
		{"same color", "#336699", "#336699", 1, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, s, "color_contrast", map[string]any{"color1": tt.c1, "color2": tt.c2})
			if res["ratio"] != tt.ratio {
				t.Errorf("ratio: got %v, want %v", res["ratio"], tt.ratio)
			}
			if res["aa_normal"] != tt.aaNormal || res["aaa_normal"] != tt.aaaNormal {
				t.Errorf("verdicts: %v", res)
			}
		})
	}

	callToolErr(t, s, "color_contrast", map[string]any{"color1": "#000", "color2": "nope"})
}

func TestColorClusterAndSample(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 20, 20, color.RGBA{200, 10, 10, 255})

	res := callTool(t, s, "color_cluster", map[string]any{"path": path, "k": 1, "stride": 1})
	if res["method"] != "seeded" {
		t.Errorf("method: got %v", res["method"])
	}
	colors, _ := res["colors"].([]any)
	if len(colors) != 1 {
		t.Fatalf("colors: %v", res["colors"])
	}
	if c := colors[0].(map[string]any); c["hex"] != "#C80A0A" || c["percentage"] != float64(100) {
		t.Errorf("color: %v", c)
	}

	callTool(t, s, "color_cluster", map[string]any{
		"path": path, "k": 2, "method": "dominant",
		"region": map[string]any{"x1": 0, "y1": 0, "x2": 10, "y2": 10},
	})
	callToolErr(t, s, "color_cluster", map[string]any{"path": path, "method": "median"})
	callToolErr(t, s, "color_cluster", map[string]any{
		"path": path, "region": map[string]any{"x1": 0, "y1": 0, "x2": 50, "y2": 10},
	})

	sample := callTool(t, s, "color_sample", map[string]any{"path": path, "x": 3, "y": 4})
	if sample["hex"] != "#C80A0A" {
		t.Errorf("sample: %v", sample)
	}
	callToolErr(t, s, "color_sample", map[string]any{"path": path, "x": 30, "y": 4})
}

func TestVariants(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	submit := callTool(t, s, "variants_submit", map[string]any{
		"template_id":  id,
		"targets":      []string{"hawks", "bulls", "nets"},
		"brand_colors": map[string]any{"hawks": "#C8102E", "bulls": "#CE1141"},
		"values": map[string]any{
			"nets": map[string]any{"panelFill": "not a color"},
		},
	})
	jobID, ok := submit["job_id"].(string)
	if !ok || jobID == "" {
		t.Fatalf("no job id: %v", submit)
	}
	if submit["targets"] != float64(3) || submit["version"] != float64(1) {
		t.Errorf("submit: %v", submit)
	}

	status := callTool(t, s, "variants_status", map[string]any{"job_id": jobID, "wait": true, "images": true})
	job := status["job"].(map[string]any)
	if job["status"] != "completed" || job["progress"] != float64(1) {
		t.Errorf("job: status %v progress %v", job["status"], job["progress"])
	}
	if job["templateVersion"] != float64(1) {
		t.Errorf("templateVersion: got %v", job["templateVersion"])
	}

	summary := status["summary"].(map[string]any)
	if summary["succeeded"] != float64(2) {
		t.Errorf("succeeded: got %v", summary["succeeded"])
	}
	failed, _ := summary["failed"].([]any)
	if len(failed) != 1 || failed[0].(map[string]any)["target"] != "nets" {
		t.Errorf("failed: %v", summary["failed"])
	}

	images, _ := status["images"].(map[string]any)
	if len(images) != 2 {
		t.Fatalf("images: got %d", len(images))
	}
	hawks := decodeImage(t, map[string]any{"image": images["hawks"]})
	if got := rgbAt(hawks, 30, 10); got != [3]uint32{0xC8, 0x10, 0x2E} {
		t.Errorf("hawks stripe: got %v", got)
	}

	list := callTool(t, s, "variants_list", nil)
	if list["count"] != float64(1) {
		t.Errorf("list: %v", list)
	}

	cancel := callTool(t, s, "variants_cancel", map[string]any{"job_id": jobID})
	if cancel["status"] != "completed" {
		t.Errorf("cancel after completion: %v", cancel)
	}
}

func TestVariants_Errors(t *testing.T) {
	s := newTestServer(t)
	id := publishCard(t, s)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"unknown template", "variants_submit", map[string]any{"template_id": "missing", "targets": []string{"a"}}},
		{"duplicate target", "variants_submit", map[string]any{"template_id": id, "targets": []string{"a", "a"}}},
		{"values for unknown target", "variants_submit", map[string]any{
			"template_id": id, "targets": []string{"a"},
			"values": map[string]any{"b": map[string]any{}},
		}},
		{"status of unknown job", "variants_status", map[string]any{"job_id": "missing"}},
		{"cancel unknown job", "variants_cancel", map[string]any{"job_id": "missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			callToolErr(t, s, tt.tool, tt.args)
		})
	}
}
