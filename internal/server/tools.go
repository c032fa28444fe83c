package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var pixelBoxSchema = map[string]interface{}{
	"type":        "object",
	"description": "Pixel rectangle; may extend past the image edges",
	"properties": map[string]interface{}{
		"x":      map[string]interface{}{"type": "integer", "description": "Left edge X coordinate"},
		"y":      map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate"},
		"width":  map[string]interface{}{"type": "integer", "description": "Width in pixels"},
		"height": map[string]interface{}{"type": "integer", "description": "Height in pixels"},
	},
	"required": []string{"x", "y", "width", "height"},
}

var normalizedBoxSchema = map[string]interface{}{
	"type":        "object",
	"description": "Center-form box with every field a fraction of the image size",
	"properties": map[string]interface{}{
		"x_center": map[string]interface{}{"type": "number"},
		"y_center": map[string]interface{}{"type": "number"},
		"width":    map[string]interface{}{"type": "number"},
		"height":   map[string]interface{}{"type": "number"},
	},
	"required": []string{"x_center", "y_center", "width", "height"},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Catalog
		{
			Name:        "constellation_catalog",
			Description: "List the known constellation patterns, or return one pattern's reference points and edges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"code": map[string]interface{}{
						"type":        "string",
						"description": "Optional label code (e.g. \"Ori\"). Omit to list every pattern.",
					},
				},
			},
		},

		// Sky Survey
		{
			Name:        "sky_survey_stars",
			Description: "Find bright stars across a whole image without a detector box. Returns positions in pixels and as fractions of the image size, brightest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Blurred gray level (0-255) a pixel must exceed",
						"default":     128,
					},
					"min_radius": map[string]interface{}{
						"type":        "integer",
						"description": "Smallest star radius to report in pixels",
						"default":     1,
					},
					"max_radius": map[string]interface{}{
						"type":        "integer",
						"description": "Largest star radius to report in pixels; larger glows are ignored",
						"default":     20,
					},
					"min_distance": map[string]interface{}{
						"type":        "number",
						"description": "Minimum distance between reported stars in pixels",
						"default":     20,
					},
				},
				"required": []string{"path"},
			},
		},

		// Pipeline Stages
		{
			Name:        "constellation_find_stars",
			Description: "Find exactly the expected number of bright stars inside a region of an image. Returns all of them or none.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"expected": map[string]interface{}{
						"type":        "integer",
						"description": "Number of stars to find. Defaults to the point count of 'code' when given.",
					},
					"code": map[string]interface{}{
						"type":        "string",
						"description": "Optional label code whose pattern size sets 'expected'",
					},
					"box":            pixelBoxSchema,
					"normalized_box": normalizedBoxSchema,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "constellation_match",
			Description: "Order detected star positions to match a catalog pattern's points under rotation and translation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"code": map[string]interface{}{
						"type":        "string",
						"description": "Label code of the pattern to match",
					},
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Detected star positions, in any order",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "integer"},
								"y": map[string]interface{}{"type": "integer"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"code", "points"},
			},
		},

		// Full Pipeline
		{
			Name:        "constellation_overlay",
			Description: "Detect constellations in a photograph, match each against the catalog and draw the matched patterns. Give either 'path' or 'image_base64'.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Image file contents, base64-encoded, instead of 'path'",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the annotated image. Omit to receive it as base64 PNG.",
					},
					"detections": map[string]interface{}{
						"type":        "array",
						"description": "Optional detections to use instead of the configured detector",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"label": map[string]interface{}{"type": "string"},
								"boxes": map[string]interface{}{
									"type":  "array",
									"items": normalizedBoxSchema,
								},
							},
							"required": []string{"label", "boxes"},
						},
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
