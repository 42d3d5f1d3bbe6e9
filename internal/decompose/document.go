package decompose

// Document is the layer tree handed over by a source document parser.
// Layers are listed bottom to top; children likewise.
type Document struct {
	Width      int     `json:"width" yaml:"width"`
	Height     int     `json:"height" yaml:"height"`
	Background string  `json:"background,omitempty" yaml:"background,omitempty"`
	Layers     []Layer `json:"layers" yaml:"layers"`
}

// Layer is one source layer. Geometry is given as edges in document pixels;
// opacity is 0-255 as in PSD.
type Layer struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type,omitempty" yaml:"type,omitempty"`
	Region    string   `json:"region,omitempty" yaml:"region,omitempty"`
	Left      float64  `json:"left" yaml:"left"`
	Top       float64  `json:"top" yaml:"top"`
	Right     float64  `json:"right" yaml:"right"`
	Bottom    float64  `json:"bottom" yaml:"bottom"`
	Hidden    *bool    `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	BlendMode string   `json:"blendMode,omitempty" yaml:"blendMode,omitempty"`

	// Canvas is a base64 PNG/JPEG payload, optionally as a data URL.
	Canvas string `json:"canvas,omitempty" yaml:"canvas,omitempty"`

	// Text is the text content of a type layer.
	Text *string `json:"text,omitempty" yaml:"text,omitempty"`

	// Properties holds zone properties (fill, stroke, fontFamily, ...).
	// Keys outside the zone vocabulary are rejected.
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`

	Children []Layer `json:"children,omitempty" yaml:"children,omitempty"`
}

// Region is a region reported by a detection oracle.
type Region struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Bounds     Rect    `json:"bounds"`
	Confidence float64 `json:"confidence"`

	// Text is the recognised text of a text region, when the oracle has it.
	Text string `json:"text,omitempty"`
}

// Rect is an oracle bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
