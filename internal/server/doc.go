// Package server implements the MCP (Model Context Protocol) server for
// constellation overlays.
//
// This package provides a JSON-RPC 2.0 server that exposes the NightGuide
// pipeline and its individual stages through the MCP protocol, so an MCP
// client can annotate a night-sky photograph or inspect one step at a time.
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Catalog:
//   - constellation_catalog: List patterns or show one pattern's points and edges
//
// Sky Survey:
//   - sky_survey_stars: Find bright stars across a whole image
//
// Pipeline Stages:
//   - constellation_find_stars: Extract the brightest blobs in a region
//   - constellation_match: Order detected points against a catalog pattern
//
// Full Pipeline:
//   - constellation_overlay: Detect, match and draw every constellation
//
// constellation_overlay uses detections passed inline when present and the
// detector configured with WithDetector otherwise. Images may be given by
// path or uploaded as base64; uploads are staged in a uniquely named temp
// file that is removed when the call returns. When no output_path is given
// the annotated PNG is returned as base64.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
// Staged uploads are evicted together with their temp file.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A pipeline run that halts (no detections, unreadable image, unwritable
// output) is not a protocol error: constellation_overlay reports it in the
// result with success false.
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New(server.WithDetector(det))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
