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
		"description": "Absolute path to the sonar image file (rows are range bins, columns azimuth bins)",
	}
}

// withSonarOverrides adds the optional sonar geometry arguments to a
// property set.
func withSonarOverrides(props map[string]interface{}) map[string]interface{} {
	props["min_range"] = map[string]interface{}{
		"type":        "number",
		"description": "Optional range in meters of the last image row. Defaults to the configured value",
	}
	props["max_range"] = map[string]interface{}{
		"type":        "number",
		"description": "Optional range in meters of the first image row. Defaults to the configured value",
	}
	props["horizontal_aperture"] = map[string]interface{}{
		"type":        "number",
		"description": "Optional azimuth field of view in radians. Defaults to the configured value",
	}
	return props
}

func intProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "sonar_image_load",
			Description: "Load a sonar image and return its shape, format and intensity statistics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "sonar_detect_tags",
			Description: "Detect AcTag fiducials in a sonar image. Returns each tag's id, pixel and range/azimuth corners, orientation and Hamming distance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSonarOverrides(map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sonar_annotate_tags",
			Description: "Detect tags and return the image as base64-encoded PNG with every tag outlined. The first corner of each tag is marked.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSonarOverrides(map[string]interface{}{
					"path": pathProperty(),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Optional outline color in hex (e.g. #00FF00). Default picks a color per tag id",
					},
					"show_ids": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw tag ids next to the tags. Default true",
						"default":     true,
					},
					"scale": intProperty("Optional integer upscale factor applied before drawing, at most 16. Default 1"),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sonar_crop_tag",
			Description: "Detect tags and return a base64-encoded PNG crop around one of them. Use this to inspect a detection closely.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSonarOverrides(map[string]interface{}{
					"path":   pathProperty(),
					"index":  intProperty("Index into the detected tags (0-based). Default 0"),
					"margin": intProperty("Pixels to include around the tag. Default 8"),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size), at most 16. Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name:        "sonar_measure_distance",
			Description: "Convert two pixels to range/azimuth and sonar-frame meters and measure the distance between them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSonarOverrides(map[string]interface{}{
					"path": pathProperty(),
					"row1": intProperty("Row of the first point (0 is the far range)"),
					"col1": intProperty("Column of the first point"),
					"row2": intProperty("Row of the second point"),
					"col2": intProperty("Column of the second point"),
				}),
				"required": []string{"path", "row1", "col1", "row2", "col2"},
			},
		},
		{
			Name:        "sonar_measure_tags",
			Description: "Detect tags and report their physical side lengths against the family's tag size. A size ratio far from 1 suggests wrong sonar parameters.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSonarOverrides(map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path"},
			},
		},

		// Rendering
		{
			Name:        "sonar_render_tag",
			Description: "Render a tag of the configured family as a base64-encoded PNG, for printing or building test scenes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":        intProperty("Tag id (index into the family's codewords)"),
					"cell_size": intProperty("Pixels per tag cell. Default 10"),
					"margin":    intProperty("Black margin in pixels. Default one cell"),
					"mirrored": map[string]interface{}{
						"type":        "boolean",
						"description": "Flip the tag left to right. Default false",
					},
				},
				"required": []string{"id"},
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
