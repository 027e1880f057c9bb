package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the screenshot",
	}
}

func flowProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the Maestro flow YAML file",
	}
}

func boxProperties(props map[string]interface{}) map[string]interface{} {
	props["x1"] = map[string]interface{}{
		"type":        "integer",
		"description": "Left edge X coordinate (0-based)",
	}
	props["y1"] = map[string]interface{}{
		"type":        "integer",
		"description": "Top edge Y coordinate (0-based)",
	}
	props["x2"] = map[string]interface{}{
		"type":        "integer",
		"description": "Right edge X coordinate (exclusive)",
	}
	props["y2"] = map[string]interface{}{
		"type":        "integer",
		"description": "Bottom edge Y coordinate (exclusive)",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Screen Analysis
		{
			Name:        "screen_detect_elements",
			Description: "Detect UI elements on a screenshot, merge overlapping detections and return them in reading order with their bounding boxes, texts and element types. Optionally returns an annotated preview image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return a base64 PNG with every element outlined. Default false",
						"default":     false,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Scale factor of the preview image. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "screen_find_element",
			Description: "Find the element matching a description such as \"click on 'Heslo'\" or \"Search button\" and return its bounding box and its position as percentages of the screen (\"65%,43%\"). Not finding an element is a normal result, not an error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"target": map[string]interface{}{
						"type":        "string",
						"description": "Element description; quoted text is matched literally, a trailing word like 'button' or 'field' is used as a type hint",
					},
					"candidates": map[string]interface{}{
						"type":        "integer",
						"description": "Number of best scoring elements to list. Default 3",
						"default":     3,
					},
				},
				"required": []string{"path", "target"},
			},
		},
		{
			Name:        "screen_resolve_point",
			Description: "Convert a bounding box to the percentage point of its center, as written into Maestro flows. Pass width and height, or a screenshot path to read them from.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": boxProperties(map[string]interface{}{
					"path": pathProperty(),
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Screen width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Screen height in pixels",
					},
				}),
				"required": []string{"x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "screen_read_region",
			Description: "Read the text inside a region of a screenshot with OCR. Requires Tesseract.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": boxProperties(map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Flow Operations
		{
			Name:        "flow_list_steps",
			Description: "List the steps of a Maestro flow with their index, command, point and element description. Steps with point TODO%,TODO% are pending.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"flow_path": flowProperty(),
				},
				"required": []string{"flow_path"},
			},
		},
		{
			Name:        "flow_update_from_screenshot",
			Description: "Match every coordinate step of a Maestro flow against a screenshot and write the resolved points into the flow. Steps without a match keep their value. The rest of the file is left byte for byte.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"flow_path": flowProperty(),
					"dry_run": map[string]interface{}{
						"type":        "boolean",
						"description": "Report what would change without writing the flow. Default false",
						"default":     false,
					},
				},
				"required": []string{"path", "flow_path"},
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
