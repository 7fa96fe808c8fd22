// Package server implements the MCP (Model Context Protocol) server for sonar
// tag detection.
//
// This package provides a JSON-RPC 2.0 server that exposes AcTag detection
// and sonar image helpers through the MCP protocol.
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
// Image Information:
//   - sonar_image_load: Shape, format and intensity statistics
//
// Detection:
//   - sonar_detect_tags: Detect tags and report ids and corners
//   - sonar_annotate_tags: PNG with detected tags outlined
//   - sonar_crop_tag: PNG crop around one detected tag
//
// Measurement:
//   - sonar_measure_distance: Physical distance between two pixels
//   - sonar_measure_tags: Physical size of each detected tag
//
// Rendering:
//   - sonar_render_tag: PNG of a family tag
//
// Tools that take a sonar image accept optional min_range, max_range and
// horizontal_aperture arguments overriding the configured geometry for
// that call.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls. The cache persists for the
// lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	det, err := actag.New(cfg)
//	if err != nil {
//	    return err
//	}
//	srv := server.New(det, logger)
//	if err := srv.Run(); err != nil {
//	    return err
//	}
package server
