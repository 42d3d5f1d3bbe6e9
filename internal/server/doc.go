// Package server implements the MCP (Model Context Protocol) server for the
// design template pipeline.
//
// The server exposes decomposition, rendering, palette and batch variant
// operations as MCP tools over JSON-RPC 2.0.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Templates:
//   - template_decompose: Layer document to published template
//   - template_from_image: Flat image to published template via region detection
//   - template_detect_regions: Region detection without publishing
//   - template_get, template_list: Registry lookups
//   - template_reextract: Next version from an edited document
//   - template_render: Composite with parameter values
//   - template_overlay: Zone outlines for inspecting a decomposition
//
// Colors and palettes:
//   - palette_generate: Accessible palette, harmonies and variations
//   - palette_adjust_readability: Fix a foreground color's contrast
//   - color_contrast: WCAG contrast ratio
//   - color_cluster: k-means palette of an image
//   - color_sample: Color at a pixel
//
// Batch variants:
//   - variants_submit: Start a job rendering one variant per target
//   - variants_status, variants_list: Progress and results
//   - variants_cancel: Stop dispatching remaining targets
//
// # State
//
// Templates, jobs and the asset cache live in memory for the lifetime of the
// process. Template versions are immutable once published.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Binding problems during a render are not errors: they come back as
// warnings next to the image.
package server
