package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/template-tools-mcp/internal/cluster"
	"github.com/ironsheep/template-tools-mcp/internal/compositor"
	"github.com/ironsheep/template-tools-mcp/internal/decompose"
	"github.com/ironsheep/template-tools-mcp/internal/detection"
	"github.com/ironsheep/template-tools-mcp/internal/imaging"
	"github.com/ironsheep/template-tools-mcp/internal/ocr"
	"github.com/ironsheep/template-tools-mcp/internal/template"
	"github.com/ironsheep/template-tools-mcp/internal/variant"
)

// Options configures a Server. Zero values fall back to package defaults.
type Options struct {
	Name    string
	Version string

	Limits          decompose.Limits
	Cluster         cluster.ExtractOptions
	MaxCanvasPixels int64
	Workers         int
	TargetTimeout   time.Duration

	// Assets resolves image parameter values and image paths. Nil creates
	// a default cache without a root.
	Assets *imaging.AssetCache

	Logger zerolog.Logger

	// In and Out default to stdin and stdout.
	In  io.Reader
	Out io.Writer
}

// Server handles MCP protocol communication
type Server struct {
	opts       Options
	log        zerolog.Logger
	assets     *imaging.AssetCache
	registry   *template.Registry
	compositor *compositor.Compositor
	engine     *variant.Engine
	detector   *detection.Detector
	ocr        *ocr.Oracle
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *MCPError `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "template-tools-mcp"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Limits == (decompose.Limits{}) {
		opts.Limits = decompose.DefaultLimits()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	assets := opts.Assets
	if assets == nil {
		assets = imaging.NewAssetCache(imaging.CacheOptions{Logger: opts.Logger})
	}

	registry := template.NewRegistry()
	comp := compositor.New(compositor.Options{
		Assets:          assets,
		MaxCanvasPixels: opts.MaxCanvasPixels,
		Logger:          opts.Logger,
	})
	return &Server{
		opts:       opts,
		log:        opts.Logger.With().Str("component", "server").Logger(),
		assets:     assets,
		registry:   registry,
		compositor: comp,
		engine: variant.NewEngine(registry, comp, variant.Options{
			Workers:       opts.Workers,
			TargetTimeout: opts.TargetTimeout,
			Logger:        opts.Logger,
		}),
		detector: detection.NewDetector(detection.Options{Logger: opts.Logger}),
		ocr:      ocr.New(ocr.Options{Logger: opts.Logger}),
	}
}

// Run reads one JSON-RPC request per line until the input ends or ctx is
// cancelled. Requests are handled in order.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.opts.In)
	// Documents with embedded rasters make for long lines.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 256*1024*1024)

	encoder := json.NewEncoder(s.opts.Out)
	s.log.Info().Str("version", s.opts.Version).Msg("mcp server started")

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Error().Err(err).Msg("failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}
	default:
		return s.errorResponse(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method), "")
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.opts.Name,
				"version": s.opts.Version,
			},
		},
	}
}
