package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shoplist/adminapi/internal/catalog"
	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
)

// registerTools registers all admin MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- API keys -----

	srv.AddTool(
		mcp.NewTool("adminapi_list_api_keys",
			mcp.WithDescription(
				"List all API keys with their name, preview, permissions, rate limit, "+
					"IP restrictions, expiry, active flag and usage counter. The raw "+
					"secret is never returned.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListAPIKeys,
	)

	srv.AddTool(
		mcp.NewTool("adminapi_api_key_usage",
			mcp.WithDescription(
				"Get aggregate usage statistics and the most recent usage records for "+
					"one API key. Records are ordered newest first.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the API key"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records to return (default 50, max 500)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of records to skip for pagination"),
			),
		),
		s.handleAPIKeyUsage,
	)

	srv.AddTool(
		mcp.NewTool("adminapi_set_api_key_active",
			mcp.WithDescription(
				"Activate or deactivate an API key. Without the active argument the "+
					"current state is flipped. A deactivated key is refused by the gate "+
					"with \"API key is deactivated\".",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the API key"),
			),
			mcp.WithBoolean("active",
				mcp.Description("Desired state. Omit to toggle."),
			),
		),
		s.handleSetAPIKeyActive,
	)

	srv.AddTool(
		mcp.NewTool("adminapi_delete_api_key",
			mcp.WithDescription(
				"Delete an API key together with all of its usage records. This cannot be undone.",
			),
			mcp.WithToolAnnotation(destructiveAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the API key"),
			),
		),
		s.handleDeleteAPIKey,
	)

	// ----- Catalogue and statistics -----

	srv.AddTool(
		mcp.NewTool("adminapi_list_endpoints",
			mcp.WithDescription(
				"List the endpoint catalogue grouped by category. Each entry carries the "+
					"permission identifier that API keys reference, its method and path, "+
					"and the number of recorded requests.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListEndpoints,
	)

	srv.AddTool(
		mcp.NewTool("adminapi_get_stats",
			mcp.WithDescription(
				"Get summary statistics: key counts, total requests, requests in the "+
					"last 24 hours and requests answered with an error status.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleGetStats,
	)

	srv.AddTool(
		mcp.NewTool("adminapi_recent_logs",
			mcp.WithDescription(
				"Get the most recent usage records across all API keys, newest first.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records to return (default 50, max 500)"),
			),
		),
		s.handleRecentLogs,
	)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *MCPServer) handleListAPIKeys(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		return toolError("failed to list API keys: %v", err)
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	return successJSON(map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

type usageSummary struct {
	TotalRequests     int64      `json:"total_requests"`
	Successful        int64      `json:"successful_requests"`
	Failed            int64      `json:"failed_requests"`
	SuccessRate       float64    `json:"success_rate"`
	AvgResponseTimeMs float64    `json:"avg_response_time_ms"`
	FirstUsed         *time.Time `json:"first_used,omitempty"`
	LastUsed          *time.Time `json:"last_used,omitempty"`
}

func (s *MCPServer) handleAPIKeyUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireKeyID(request)
	if err != nil {
		return toolError("%v", err)
	}
	limit := clamp(optionalInt(request, "limit", 50), 1, 500)
	offset := optionalInt(request, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	key, err := s.store.GetAPIKey(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return toolError("API key %d not found", id)
	}
	if err != nil {
		return toolError("failed to load API key %d: %v", id, err)
	}

	stats, err := s.store.KeyUsageStats(ctx, id)
	if err != nil {
		return toolError("failed to aggregate usage for key %d: %v", id, err)
	}
	records, err := s.store.ListUsageRecords(ctx, id, limit, offset)
	if err != nil {
		return toolError("failed to list usage for key %d: %v", id, err)
	}
	if records == nil {
		records = []model.UsageRecord{}
	}

	return successJSON(map[string]interface{}{
		"key": key,
		"stats": usageSummary{
			TotalRequests:     stats.TotalRequests,
			Successful:        stats.Successful,
			Failed:            stats.Failed,
			SuccessRate:       stats.SuccessRate(),
			AvgResponseTimeMs: stats.AvgResponseTimeMs,
			FirstUsed:         stats.FirstUsed,
			LastUsed:          stats.LastUsed,
		},
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *MCPServer) handleSetAPIKeyActive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireKeyID(request)
	if err != nil {
		return toolError("%v", err)
	}

	key, err := s.store.GetAPIKey(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return toolError("API key %d not found", id)
	}
	if err != nil {
		return toolError("failed to load API key %d: %v", id, err)
	}

	active, ok := optionalBool(request, "active")
	if !ok {
		active = !key.IsActive
	}
	if err := s.store.SetAPIKeyActive(ctx, id, active); err != nil {
		return toolError("failed to update API key %d: %v", id, err)
	}

	s.logger.Info("api key state changed via MCP", "key_id", id, "active", active)
	return successJSON(map[string]interface{}{
		"id":        id,
		"name":      key.Name,
		"is_active": active,
	})
}

func (s *MCPServer) handleDeleteAPIKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireKeyID(request)
	if err != nil {
		return toolError("%v", err)
	}
	err = s.store.DeleteAPIKey(ctx, id)
	if errors.Is(err, config.ErrNotFound) {
		return toolError("API key %d not found", id)
	}
	if err != nil {
		return toolError("failed to delete API key %d: %v", id, err)
	}

	s.logger.Info("api key deleted via MCP", "key_id", id)
	return successJSON(map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
}

type endpointInfo struct {
	catalog.Endpoint
	Requests int64 `json:"requests"`
}

type endpointGroup struct {
	Category  string         `json:"category"`
	Endpoints []endpointInfo `json:"endpoints"`
}

func (s *MCPServer) handleListEndpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := s.store.EndpointRequestCounts(ctx)
	if err != nil {
		return toolError("failed to count requests: %v", err)
	}

	groups := catalog.Grouped()
	out := make([]endpointGroup, len(groups))
	for i, g := range groups {
		out[i] = endpointGroup{Category: g.Category, Endpoints: make([]endpointInfo, len(g.Endpoints))}
		for j, e := range g.Endpoints {
			out[i].Endpoints[j] = endpointInfo{Endpoint: e, Requests: counts[e.ID]}
		}
	}
	return successJSON(map[string]interface{}{
		"groups":     out,
		"total":      len(catalog.All()),
		"unknown_id": catalog.Unknown,
	})
}

func (s *MCPServer) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	total, err := s.store.CountAPIKeys(ctx)
	if err != nil {
		return toolError("failed to count API keys: %v", err)
	}
	active, err := s.store.CountActiveAPIKeys(ctx)
	if err != nil {
		return toolError("failed to count active API keys: %v", err)
	}
	totals, err := s.store.UsageTotals(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return toolError("failed to total usage: %v", err)
	}

	return successJSON(map[string]interface{}{
		"api_keys":        total,
		"active_api_keys": active,
		"total_requests":  totals.Total,
		"requests_24h":    totals.Since,
		"error_requests":  totals.Errors,
		"endpoints":       len(catalog.All()),
	})
}

func (s *MCPServer) handleRecentLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := clamp(optionalInt(request, "limit", 50), 1, 500)
	records, err := s.store.RecentUsageRecords(ctx, limit)
	if err != nil {
		return toolError("failed to list usage records: %v", err)
	}
	if records == nil {
		records = []model.UsageRecord{}
	}
	return successJSON(map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}
