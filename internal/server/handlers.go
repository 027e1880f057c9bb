package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/screen-coords-mcp/internal/analyze"
	"github.com/ironsheep/screen-coords-mcp/internal/coords"
	"github.com/ironsheep/screen-coords-mcp/internal/detection"
	"github.com/ironsheep/screen-coords-mcp/internal/flow"
	"github.com/ironsheep/screen-coords-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "screen_find_element").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool failed")
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Screen Analysis
	case "screen_detect_elements":
		return s.handleDetectElements(ctx, args)
	case "screen_find_element":
		return s.handleFindElement(ctx, args)
	case "screen_resolve_point":
		return s.handleResolvePoint(args)
	case "screen_read_region":
		return s.handleReadRegion(ctx, args)

	// Flow Operations
	case "flow_list_steps":
		return s.handleFlowListSteps(args)
	case "flow_update_from_screenshot":
		return s.handleFlowUpdate(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func requirePath(path string) error {
	if path == "" {
		return errors.New("path is required")
	}
	return nil
}

// === Screen Analysis Handlers ===

type detectElementsArgs struct {
	Path     string  `json:"path"`
	Annotate bool    `json:"annotate"`
	Scale    float64 `json:"scale"`
}

type detectElementsResult struct {
	analyze.Scene
	Preview *imaging.Encoded `json:"preview,omitempty"`
}

func (s *Server) handleDetectElements(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectElementsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	defer s.analyzer.Forget(a.Path)

	scene, err := s.analyzer.Detect(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	result := detectElementsResult{Scene: scene}
	if a.Annotate {
		img, err := s.analyzer.Image(a.Path)
		if err != nil {
			return nil, err
		}
		if result.Preview, err = imaging.EncodePNG(imaging.AnnotateElements(img, scene.Elements, -1), a.Scale); err != nil {
			return nil, err
		}
	}
	return result, nil
}

type findElementArgs struct {
	Path       string `json:"path"`
	Target     string `json:"target"`
	Candidates *int   `json:"candidates"`
}

func (s *Server) handleFindElement(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a findElementArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Target == "" {
		return nil, errors.New("target is required")
	}
	n := 3
	if a.Candidates != nil {
		n = *a.Candidates
	}
	defer s.analyzer.Forget(a.Path)
	return s.analyzer.Locate(ctx, a.Path, a.Target, n)
}

type boxArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b boxArgs) bounds() (detection.Bounds, error) {
	bounds := detection.Bounds{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
	if !bounds.Valid() {
		return bounds, fmt.Errorf("%w: bounding box %s has no area", detection.ErrInvalidDetection, bounds)
	}
	return bounds, nil
}

type resolvePointArgs struct {
	boxArgs
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type resolvePointResult struct {
	Point  string           `json:"point"`
	X      int              `json:"x"`
	Y      int              `json:"y"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Bounds detection.Bounds `json:"bounds"`
}

func (s *Server) handleResolvePoint(args json.RawMessage) (interface{}, error) {
	var a resolvePointArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	b, err := a.bounds()
	if err != nil {
		return nil, err
	}

	if a.Width == 0 && a.Height == 0 && a.Path != "" {
		size, err := imaging.Dimensions(a.Path)
		if err != nil {
			return nil, err
		}
		a.Width, a.Height = size.Width, size.Height
	}
	if a.Width <= 0 || a.Height <= 0 {
		return nil, fmt.Errorf("screen size %dx%d must be positive", a.Width, a.Height)
	}

	p := coords.Resolve(b, a.Width, a.Height)
	return resolvePointResult{
		Point:  p.String(),
		X:      p.X,
		Y:      p.Y,
		Width:  a.Width,
		Height: a.Height,
		Bounds: b,
	}, nil
}

type readRegionArgs struct {
	boxArgs
	Path string `json:"path"`
}

type readRegionResult struct {
	Text       string           `json:"text"`
	Confidence float64          `json:"confidence"`
	Bounds     detection.Bounds `json:"bounds"`
}

func (s *Server) handleReadRegion(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a readRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.reader == nil {
		return nil, errors.New("no OCR backend configured")
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	b, err := a.bounds()
	if err != nil {
		return nil, err
	}

	defer s.analyzer.Forget(a.Path)
	img, err := s.analyzer.Image(a.Path)
	if err != nil {
		return nil, err
	}
	text, conf, err := s.reader.ReadRegion(ctx, img, b)
	if err != nil {
		return nil, err
	}
	return readRegionResult{Text: text, Confidence: conf, Bounds: b}, nil
}

// === Flow Handlers ===

type flowListArgs struct {
	FlowPath string `json:"flow_path"`
}

type flowListResult struct {
	FlowPath string      `json:"flow_path"`
	Steps    []flow.Step `json:"steps"`
	Pending  int         `json:"pending"`
	Resolved int         `json:"resolved"`
}

func (s *Server) handleFlowListSteps(args json.RawMessage) (interface{}, error) {
	var a flowListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.FlowPath == "" {
		return nil, errors.New("flow_path is required")
	}

	doc, err := flow.NewStore(a.FlowPath).Load()
	if err != nil {
		return nil, err
	}
	pending := len(doc.Pending())
	return flowListResult{
		FlowPath: a.FlowPath,
		Steps:    doc.Steps,
		Pending:  pending,
		Resolved: len(doc.Coordinate()) - pending,
	}, nil
}

type flowUpdateArgs struct {
	Path     string `json:"path"`
	FlowPath string `json:"flow_path"`
	DryRun   bool   `json:"dry_run"`
}

type flowUpdateResult struct {
	FlowPath string               `json:"flow_path"`
	DryRun   bool                 `json:"dry_run"`
	Summary  flow.Summary         `json:"summary"`
	Steps    []analyze.StepResult `json:"steps"`
}

func (s *Server) handleFlowUpdate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a flowUpdateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.FlowPath == "" {
		return nil, errors.New("flow_path is required")
	}

	store := flow.NewStore(a.FlowPath)
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	defer s.analyzer.Forget(a.Path)
	report, err := s.analyzer.Analyze(ctx, a.Path, doc)
	if err != nil {
		return nil, err
	}

	var sum flow.Summary
	if a.DryRun {
		_, sum, err = flow.Update(doc, report.Results)
	} else {
		_, sum, err = store.Apply(doc, report.Results)
	}
	if err != nil {
		return nil, err
	}

	if !a.DryRun {
		s.log.WithField("flow", a.FlowPath).WithField("updated", sum.Updated).Info("flow updated from screenshot")
	}
	return flowUpdateResult{
		FlowPath: a.FlowPath,
		DryRun:   a.DryRun,
		Summary:  sum,
		Steps:    report.Steps,
	}, nil
}
