package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireKeyID extracts the required numeric "id" argument. JSON numbers
// arrive as float64, so fractional or non-positive values are rejected.
func requireKeyID(request mcp.CallToolRequest) (int64, error) {
	v, err := request.RequireFloat("id")
	if err != nil {
		return 0, fmt.Errorf("missing required parameter %q", "id")
	}
	if v <= 0 || v != float64(int64(v)) {
		return 0, fmt.Errorf("parameter %q must be a positive integer", "id")
	}
	return int64(v), nil
}

// optionalInt extracts an optional integer argument from the tool request.
func optionalInt(request mcp.CallToolRequest, key string, defaultVal int) int {
	return request.GetInt(key, defaultVal)
}

// optionalBool returns the boolean argument and whether it was supplied.
func optionalBool(request mcp.CallToolRequest, key string) (bool, bool) {
	args := request.GetArguments()
	if args == nil {
		return false, false
	}
	raw, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := raw.(bool)
	return b, ok
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// clamp constrains val to [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
