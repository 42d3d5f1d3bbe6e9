package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func propDefault(typ, description string, def any) map[string]any {
	p := prop(typ, description)
	p["default"] = def
	return p
}

var (
	pathProp = prop("string", "Absolute path to the image or document file")

	templateIDProp = prop("string", "Template id returned by template_decompose or template_from_image")

	versionProp = prop("integer", "Template version. Default: latest")

	valuesProp = map[string]any{
		"type":                 "object",
		"description":          "Parameter id to value. Colors are hex strings, images asset paths, numbers and booleans plain JSON",
		"additionalProperties": true,
	}

	brandColorProp = prop("string", "Brand color as hex (#RRGGBB or #RGB). Expands to the accessible team palette")

	regionProp = object(map[string]any{
		"x1": prop("integer", "Left edge X coordinate (0-based)"),
		"y1": prop("integer", "Top edge Y coordinate (0-based)"),
		"x2": prop("integer", "Right edge X coordinate (exclusive)"),
		"y2": prop("integer", "Bottom edge Y coordinate (exclusive)"),
	}, "x1", "y1", "x2", "y2")

	documentProps = map[string]any{
		"path":     prop("string", "Absolute path to a JSON or YAML layer document"),
		"document": prop("string", "Inline layer document, used when path is empty"),
		"format": map[string]any{
			"type":        "string",
			"enum":        []string{"json", "yaml"},
			"description": "Format of the inline document",
			"default":     "json",
		},
	}
)

func withProps(base map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Templates
		{
			Name:        "template_decompose",
			Description: "Decompose a layered design document into a zone tree, extract its parameters and publish it as a new template.",
			InputSchema: object(withProps(documentProps, map[string]any{
				"name": prop("string", "Template name. Default: the document name"),
			})),
		},
		{
			Name:        "template_from_image",
			Description: "Detect regions in a flat design image (backgrounds, borders, photos, logos, text) and publish them as a new template.",
			InputSchema: object(map[string]any{
				"path":           pathProp,
				"name":           prop("string", "Template name. Default: the file name"),
				"min_confidence": propDefault("number", "Drop regions below this confidence (0-1)", 0.5),
				"ocr":            propDefault("boolean", "Also run Tesseract to find text lines", false),
			}, "path"),
		},
		{
			Name:        "template_detect_regions",
			Description: "List the regions the detectors find in an image without creating a template.",
			InputSchema: object(map[string]any{
				"path":           pathProp,
				"min_confidence": propDefault("number", "Drop regions below this confidence (0-1)", 0.0),
				"ocr":            propDefault("boolean", "Also run Tesseract to find text lines", false),
			}, "path"),
		},
		{
			Name:        "template_get",
			Description: "Return a template's zone tree and parameter list.",
			InputSchema: object(map[string]any{
				"id":      templateIDProp,
				"version": versionProp,
			}, "id"),
		},
		{
			Name:        "template_list",
			Description: "List the latest version of every template.",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        "template_reextract",
			Description: "Publish the next version of a template from an edited document. Unchanged zones keep their parameter ids.",
			InputSchema: object(withProps(documentProps, map[string]any{
				"id": templateIDProp,
			}), "id"),
		},
		{
			Name:        "template_render",
			Description: "Render a template with parameter values and return the PNG, the scene description and binding warnings.",
			InputSchema: object(map[string]any{
				"id":          templateIDProp,
				"version":     versionProp,
				"values":      valuesProp,
				"brand_color": brandColorProp,
				"zone_id":     prop("string", "Return only this zone's area of the render"),
				"scale":       propDefault("number", "Scale factor for the returned image", 1.0),
			}, "id"),
		},
		{
			Name:        "template_overlay",
			Description: "Render a template and outline every zone, colored by kind, to inspect a decomposition.",
			InputSchema: object(map[string]any{
				"id":      templateIDProp,
				"version": versionProp,
				"values":  valuesProp,
				"labels":  propDefault("boolean", "Label each zone with its z-order", true),
				"hidden":  propDefault("boolean", "Also outline invisible zones", false),
			}, "id"),
		},

		// Colors and palettes
		{
			Name:        "palette_generate",
			Description: "Generate an accessible five-color palette, hue harmonies and lightness variations from a brand color or a logo image.",
			InputSchema: object(map[string]any{
				"brand_color": brandColorProp,
				"path":        prop("string", "Logo image to take the brand color from, used when brand_color is empty"),
				"steps":       propDefault("integer", "Lightness variations on each side", 3),
			}),
		},
		{
			Name:        "palette_adjust_readability",
			Description: "Move a foreground color's lightness away from the background until the WCAG contrast ratio is reached.",
			InputSchema: object(map[string]any{
				"foreground": prop("string", "Foreground hex color"),
				"background": prop("string", "Background hex color"),
				"min_ratio":  propDefault("number", "Target contrast ratio", 4.5),
			}, "foreground", "background"),
		},
		{
			Name:        "color_contrast",
			Description: "Compute the WCAG contrast ratio between two colors and the AA/AAA verdicts.",
			InputSchema: object(map[string]any{
				"color1": prop("string", "First hex color"),
				"color2": prop("string", "Second hex color"),
			}, "color1", "color2"),
		},
		{
			Name:        "color_cluster",
			Description: "Cluster an image's pixels into k colors, most common first.",
			InputSchema: object(map[string]any{
				"path": pathProp,
				"k":    propDefault("integer", "Number of colors", 5),
				"method": map[string]any{
					"type":        "string",
					"enum":        []string{"seeded", "converge", "dominant"},
					"description": "Clustering algorithm. seeded is deterministic",
					"default":     "seeded",
				},
				"stride": propDefault("integer", "Sample every n-th pixel", 4),
				"seed":   prop("integer", "Seed for the seeded method"),
				"region": regionProp,
			}, "path"),
		},
		{
			Name:        "color_sample",
			Description: "Get the exact color value at a specific pixel coordinate.",
			InputSchema: object(map[string]any{
				"path": pathProp,
				"x":    prop("integer", "X coordinate (0-based, from left)"),
				"y":    prop("integer", "Y coordinate (0-based, from top)"),
			}, "path", "x", "y"),
		},

		// Batch variants
		{
			Name:        "variants_submit",
			Description: "Start a background job rendering one variant of a template per target (e.g. per team). Returns the job id immediately. The job renders the version its values were checked against.",
			InputSchema: object(map[string]any{
				"template_id": templateIDProp,
				"version":     versionProp,
				"targets": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Target names, unique",
				},
				"values": map[string]any{
					"type":                 "object",
					"description":          "Per-target parameter values: target -> parameter id -> value",
					"additionalProperties": valuesProp,
				},
				"brand_colors": map[string]any{
					"type":                 "object",
					"description":          "Per-target brand color, expanded to the team palette before values apply",
					"additionalProperties": map[string]any{"type": "string"},
				},
			}, "template_id", "targets"),
		},
		{
			Name:        "variants_status",
			Description: "Report a job's status, progress, per-target results and summary.",
			InputSchema: object(map[string]any{
				"job_id": prop("string", "Job id returned by variants_submit"),
				"images": propDefault("boolean", "Include the rendered PNGs", false),
				"wait":   propDefault("boolean", "Block until the job finishes", false),
			}, "job_id"),
		},
		{
			Name:        "variants_cancel",
			Description: "Stop dispatching a job's remaining targets. Renders in flight finish.",
			InputSchema: object(map[string]any{
				"job_id": prop("string", "Job id returned by variants_submit"),
			}, "job_id"),
		},
		{
			Name:        "variants_list",
			Description: "List all jobs in submission order, without results.",
			InputSchema: object(map[string]any{}),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"tools": GetToolDefinitions(),
		},
	}
}
