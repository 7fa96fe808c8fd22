package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/sonartag/internal/actag"
	"github.com/ironsheep/sonartag/internal/detection"
	"github.com/ironsheep/sonartag/internal/imaging"
	"github.com/ironsheep/sonartag/internal/sonar"
)

// errNoDetector is returned by tools that need detection on a server built
// without a detector.
var errNoDetector = errors.New("server has no tag detector configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sonar_detect_tags").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads sonar images from cache as needed
//  4. Calls the detector or an imaging function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "sonar_image_load":
		return s.handleImageLoad(args)
	case "sonar_detect_tags":
		return s.handleDetectTags(args)
	case "sonar_annotate_tags":
		return s.handleAnnotateTags(args)
	case "sonar_crop_tag":
		return s.handleCropTag(args)
	case "sonar_measure_distance":
		return s.handleMeasureDistance(args)
	case "sonar_measure_tags":
		return s.handleMeasureTags(args)
	case "sonar_render_tag":
		return s.handleRenderTag(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Shared arguments ===

// sonarArgs optionally overrides the configured sonar geometry for one
// call. Omitted fields keep the configured values.
type sonarArgs struct {
	MinRange           *float64 `json:"min_range"`
	MaxRange           *float64 `json:"max_range"`
	HorizontalAperture *float64 `json:"horizontal_aperture"`
}

func (a sonarArgs) overrides() bool {
	return a.MinRange != nil || a.MaxRange != nil || a.HorizontalAperture != nil
}

func (a sonarArgs) apply(p sonar.Params) sonar.Params {
	if a.MinRange != nil {
		p.MinRange = *a.MinRange
	}
	if a.MaxRange != nil {
		p.MaxRange = *a.MaxRange
	}
	if a.HorizontalAperture != nil {
		p.HorizontalAperture = *a.HorizontalAperture
	}
	return p
}

// detectorFor returns the configured detector, or a copy using the
// overridden sonar geometry.
func (s *Server) detectorFor(a sonarArgs) (*actag.Detector, error) {
	if s.detector == nil {
		return nil, errNoDetector
	}
	if !a.overrides() {
		return s.detector, nil
	}
	cfg := s.detector.Config()
	cfg.Sonar = a.apply(cfg.Sonar)
	return actag.New(cfg, actag.WithLogger(s.logger))
}

// detect loads path and runs detection on it.
func (s *Server) detect(path string, a sonarArgs) (*sonar.Image, *actag.Detector, []detection.DetectedTag, error) {
	det, err := s.detectorFor(a)
	if err != nil {
		return nil, nil, nil, err
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	tags, err := det.Detect(img)
	if err != nil {
		return nil, nil, nil, err
	}
	if tags == nil {
		tags = []detection.DetectedTag{}
	}
	return img, det, tags, nil
}

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Detection Handlers ===

type detectArgs struct {
	Path string `json:"path"`
	sonarArgs
}

// DetectResult is the sonar_detect_tags output.
type DetectResult struct {
	Path  string                  `json:"path"`
	Rows  int                     `json:"rows"`
	Cols  int                     `json:"cols"`
	Count int                     `json:"count"`
	Tags  []detection.DetectedTag `json:"tags"`
}

func (s *Server) handleDetectTags(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, _, tags, err := s.detect(a.Path, a.sonarArgs)
	if err != nil {
		return nil, err
	}
	return &DetectResult{Path: a.Path, Rows: img.Rows, Cols: img.Cols, Count: len(tags), Tags: tags}, nil
}

type annotateArgs struct {
	Path    string `json:"path"`
	Color   string `json:"color"`
	ShowIDs *bool  `json:"show_ids"`
	Scale   int    `json:"scale"`
	sonarArgs
}

func (s *Server) handleAnnotateTags(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	showIDs := true
	if a.ShowIDs != nil {
		showIDs = *a.ShowIDs
	}
	img, _, tags, err := s.detect(a.Path, a.sonarArgs)
	if err != nil {
		return nil, err
	}
	return imaging.Annotate(img, tags, imaging.AnnotateOptions{Color: a.Color, ShowIDs: showIDs, Scale: a.Scale})
}

type cropTagArgs struct {
	Path   string  `json:"path"`
	Index  int     `json:"index"`
	Margin *int    `json:"margin"`
	Scale  float64 `json:"scale"`
	sonarArgs
}

func (s *Server) handleCropTag(args json.RawMessage) (interface{}, error) {
	var a cropTagArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	margin := 8
	if a.Margin != nil {
		margin = *a.Margin
	}
	img, _, tags, err := s.detect(a.Path, a.sonarArgs)
	if err != nil {
		return nil, err
	}
	if a.Index < 0 || a.Index >= len(tags) {
		return nil, fmt.Errorf("tag index %d out of range: %d tags detected", a.Index, len(tags))
	}
	return imaging.CropTag(img, tags[a.Index], margin, a.Scale)
}

// === Measurement Handlers ===

type measureDistanceArgs struct {
	Path string `json:"path"`
	Row1 int    `json:"row1"`
	Col1 int    `json:"col1"`
	Row2 int    `json:"row2"`
	Col2 int    `json:"col2"`
	sonarArgs
}

func (s *Server) handleMeasureDistance(args json.RawMessage) (interface{}, error) {
	var a measureDistanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	params := a.apply(s.baseConfig().Sonar)
	return imaging.MeasureDistance(params, img.Rows, img.Cols,
		sonar.Point{Row: a.Row1, Col: a.Col1}, sonar.Point{Row: a.Row2, Col: a.Col2})
}

type measureTagsArgs struct {
	Path string `json:"path"`
	sonarArgs
}

func (s *Server) handleMeasureTags(args json.RawMessage) (interface{}, error) {
	var a measureTagsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, det, tags, err := s.detect(a.Path, a.sonarArgs)
	if err != nil {
		return nil, err
	}
	cfg := det.Config()
	out := make([]*imaging.TagMeasurement, 0, len(tags))
	for _, tag := range tags {
		m, err := imaging.MeasureTag(cfg.Sonar, img.Rows, img.Cols, tag, cfg.Family)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return map[string]interface{}{"count": len(out), "tags": out}, nil
}

// === Rendering Handlers ===

type renderTagArgs struct {
	ID       int  `json:"id"`
	CellSize int  `json:"cell_size"`
	Margin   *int `json:"margin"`
	Mirrored bool `json:"mirrored"`
}

func (s *Server) handleRenderTag(args json.RawMessage) (interface{}, error) {
	var a renderTagArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.CellSize == 0 {
		a.CellSize = 10
	}
	margin := a.CellSize
	if a.Margin != nil {
		margin = *a.Margin
	}
	return imaging.RenderTag(s.baseConfig().Family, a.ID, a.CellSize, margin, a.Mirrored)
}

// baseConfig is the detector configuration, or the defaults when the
// server runs without a detector.
func (s *Server) baseConfig() actag.Config {
	if s.detector == nil {
		return actag.DefaultConfig()
	}
	return s.detector.Config()
}
