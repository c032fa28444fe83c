package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ironsheep/nightguide-mcp/internal/catalog"
	"github.com/ironsheep/nightguide-mcp/internal/detection"
	"github.com/ironsheep/nightguide-mcp/internal/detector"
	"github.com/ironsheep/nightguide-mcp/internal/imaging"
	"github.com/ironsheep/nightguide-mcp/internal/matching"
	"github.com/ironsheep/nightguide-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "constellation_overlay").
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Catalog
	case "constellation_catalog":
		return s.handleConstellationCatalog(args)

	// Sky Survey
	case "sky_survey_stars":
		return s.handleSkySurveyStars(args)

	// Pipeline Stages
	case "constellation_find_stars":
		return s.handleConstellationFindStars(args)
	case "constellation_match":
		return s.handleConstellationMatch(args)

	// Full Pipeline
	case "constellation_overlay":
		return s.handleConstellationOverlay(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

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

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Catalog Handlers ===

type catalogArgs struct {
	Code string `json:"code"`
}

type patternSummary struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Edges  int    `json:"edges"`
}

type catalogListResult struct {
	Count    int              `json:"count"`
	Patterns []patternSummary `json:"patterns"`
}

type patternDetail struct {
	Code   string            `json:"code"`
	Name   string            `json:"name"`
	Points []detection.Point `json:"points"`
	Edges  []catalog.Edge    `json:"edges"`
}

func (s *Server) handleConstellationCatalog(args json.RawMessage) (interface{}, error) {
	var a catalogArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	if a.Code != "" {
		p, ok := s.catalog.Lookup(a.Code)
		if !ok {
			return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownLabel, a.Code)
		}
		return &patternDetail{
			Code:   p.Code,
			Name:   p.Name,
			Points: toPoints(p.Points),
			Edges:  p.Edges,
		}, nil
	}

	out := &catalogListResult{Patterns: make([]patternSummary, 0, s.catalog.Len())}
	for _, code := range s.catalog.Codes() {
		p, _ := s.catalog.Lookup(code)
		out.Patterns = append(out.Patterns, patternSummary{
			Code:   p.Code,
			Name:   p.Name,
			Points: p.Len(),
			Edges:  len(p.Edges),
		})
	}
	out.Count = len(out.Patterns)
	return out, nil
}

// === Sky Survey Handler ===

type surveyArgs struct {
	Path string `json:"path"`
	detection.SurveyOptions
}

func (s *Server) handleSkySurveyStars(args json.RawMessage) (interface{}, error) {
	a := surveyArgs{SurveyOptions: detection.DefaultSurveyOptions()}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return detection.SurveyStars(img, a.SurveyOptions), nil
}

// === Pipeline Stage Handlers ===

type findStarsArgs struct {
	Path          string                 `json:"path"`
	Expected      *int                   `json:"expected"`
	Code          string                 `json:"code"`
	Box           *imaging.PixelRect     `json:"box"`
	NormalizedBox *imaging.NormalizedBox `json:"normalized_box"`
}

func (s *Server) handleConstellationFindStars(args json.RawMessage) (interface{}, error) {
	var a findStarsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	expected := -1
	if a.Expected != nil {
		expected = *a.Expected
	} else if a.Code != "" {
		p, ok := s.catalog.Lookup(a.Code)
		if !ok {
			return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownLabel, a.Code)
		}
		expected = p.Len()
	}
	if expected < 0 {
		return nil, fmt.Errorf("expected or code is required")
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()

	rect := imaging.PixelRect{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
	switch {
	case a.Box != nil:
		rect = *a.Box
	case a.NormalizedBox != nil:
		rect = imaging.Denormalize(*a.NormalizedBox, b.Dx(), b.Dy())
	}

	return detection.FindStars(img, rect, expected), nil
}

type matchArgs struct {
	Code   string            `json:"code"`
	Points []detection.Point `json:"points"`
}

type matchResult struct {
	Code       string            `json:"code"`
	Name       string            `json:"name"`
	Ordered    []detection.Point `json:"ordered"`
	Assignment []int             `json:"assignment"`
	Angle      float64           `json:"angle_degrees"`
	Reflected  bool              `json:"reflected"`
	Cost       float64           `json:"cost"`
}

func (s *Server) handleConstellationMatch(args json.RawMessage) (interface{}, error) {
	var a matchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	p, ok := s.catalog.Lookup(a.Code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownLabel, a.Code)
	}

	detected := make([]image.Point, len(a.Points))
	for i, pt := range a.Points {
		detected[i] = image.Pt(pt.X, pt.Y)
	}

	al, err := matching.Align(p.Points, detected)
	if err != nil {
		return nil, err
	}
	return &matchResult{
		Code:       p.Code,
		Name:       p.Name,
		Ordered:    toPoints(al.Ordered),
		Assignment: al.Assignment,
		Angle:      al.Angle(),
		Reflected:  al.Reflected,
		Cost:       al.Cost,
	}, nil
}

// === Full Pipeline Handler ===

type overlayArgs struct {
	Path        string               `json:"path"`
	ImageBase64 string               `json:"image_base64"`
	OutputPath  string               `json:"output_path"`
	Detections  *detector.Detections `json:"detections"`
}

type labelResult struct {
	Label    string            `json:"label"`
	Name     string            `json:"name,omitempty"`
	Status   pipeline.Status   `json:"status"`
	Region   imaging.PixelRect `json:"region"`
	Expected int               `json:"expected"`
	Found    int               `json:"found"`
	Stars    []detection.Point `json:"stars,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

type overlayResult struct {
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	OutputPath  string        `json:"output_path,omitempty"`
	ImageBase64 string        `json:"image_base64,omitempty"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Drawn       []string      `json:"drawn"`
	Labels      []labelResult `json:"labels"`
}

func (s *Server) handleConstellationOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if (a.Path == "") == (a.ImageBase64 == "") {
		return nil, fmt.Errorf("exactly one of path or image_base64 is required")
	}

	det := s.detector
	if a.Detections != nil {
		det = &detector.StaticDetector{Detections: a.Detections}
	}
	if det == nil {
		return nil, fmt.Errorf("no detector configured; pass detections")
	}

	input := a.Path
	if a.ImageBase64 != "" {
		staged, err := s.stageUpload(a.ImageBase64)
		if err != nil {
			return &overlayResult{
				Error:  fmt.Errorf("%w: %w", pipeline.ErrInvalidImage, err).Error(),
				Drawn:  []string{},
				Labels: []labelResult{},
			}, nil
		}
		defer s.release(staged)
		input = staged
	}

	output := a.OutputPath
	inline := output == ""
	if inline {
		output = s.tempPath(".png")
		defer s.release(output)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Pixels come from disk, as the detector's do; a cached copy may be stale.
	s.cache.Evict(input)
	p := pipeline.New(s.catalog, det, pipeline.WithStyle(s.style))
	res := p.Run(ctx, input, output)

	out := newOverlayResult(res)
	if res.Success {
		if inline {
			data, err := os.ReadFile(output)
			if err != nil {
				return nil, fmt.Errorf("read annotated image: %w", err)
			}
			out.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		} else {
			out.OutputPath = output
		}
	}
	return out, nil
}

func newOverlayResult(res *pipeline.Result) *overlayResult {
	out := &overlayResult{
		Success: res.Success,
		Width:   res.Width,
		Height:  res.Height,
		Drawn:   res.Drawn(),
		Labels:  make([]labelResult, 0, len(res.Labels)),
	}
	if out.Drawn == nil {
		out.Drawn = []string{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	for _, l := range res.Labels {
		lr := labelResult{
			Label:    l.Label,
			Name:     l.Name,
			Status:   l.Status,
			Region:   l.Region,
			Expected: l.Expected,
			Found:    l.Found,
			Stars:    toPoints(l.Stars),
		}
		if l.Err != nil {
			lr.Reason = l.Err.Error()
		}
		out.Labels = append(out.Labels, lr)
	}
	return out
}

// stageUpload decodes a base64 image into a uniquely named temp file whose
// extension matches the image format. The caller must release the path.
func (s *Server) stageUpload(encoded string) (string, error) {
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unrecognized image data: %w", err)
	}
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}

	path := s.tempPath(ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return path, nil
}

func (s *Server) tempPath(ext string) string {
	dir := s.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "nightguide-"+uuid.NewString()+ext)
}

// release deletes a temp file and drops it from the image cache.
func (s *Server) release(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove temp file %s: %v", path, err)
	}
	s.cache.Evict(path)
}

func toPoints(pts []image.Point) []detection.Point {
	if pts == nil {
		return nil
	}
	out := make([]detection.Point, len(pts))
	for i, p := range pts {
		out[i] = detection.Point{X: p.X, Y: p.Y}
	}
	return out
}
