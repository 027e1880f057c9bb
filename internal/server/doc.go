// Package server implements the MCP (Model Context Protocol) server for
// screen coordinate tools.
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
// Screen Analysis:
//   - screen_detect_elements: Detected and merged elements in reading order
//   - screen_find_element: Best element for a description, with its point
//   - screen_resolve_point: Bounding box to "X%,Y%"
//   - screen_read_region: OCR of one region
//
// Flow Operations:
//   - flow_list_steps: Steps of a Maestro flow and their points
//   - flow_update_from_screenshot: Resolve the flow's points against a screenshot
//
// Each tools/call runs under its own timeout. Tool failures are returned as
// JSON-RPC errors with code -32000 and the cause in the data field; an
// element that is not found is a normal result.
package server
