package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shoplist/adminapi/internal/catalog"
	"github.com/shoplist/adminapi/internal/model"
)

// ListEndpoints returns the full endpoint catalogue.
// GET /api/endpoints
func (h *AdminHandler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"endpoints": catalog.All(),
	})
}

// AvailableEndpoints returns the identifiers a key may be granted, flat and
// grouped by category.
// GET /api/endpoints/available
func (h *AdminHandler) AvailableEndpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"endpoints":  catalog.All(),
		"categories": catalog.Grouped(),
	})
}

type endpointStatus struct {
	ID       string `json:"id"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	Served   bool   `json:"served"`
	Requests int64  `json:"requests"`
}

// EndpointsStatus reports the stored endpoint configurations keyed by
// "METHOD:path", and for every catalogue entry whether this server answers
// it and how many key-authenticated requests it has seen.
// GET /api/endpoints/status
func (h *AdminHandler) EndpointsStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfgs, err := h.store.ListEndpointConfigs(ctx)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to load endpoint configurations: "+err.Error())
		return
	}
	counts, err := h.store.EndpointRequestCounts(ctx)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to count endpoint requests: "+err.Error())
		return
	}

	configurations := make(map[string]model.EndpointConfig, len(cfgs))
	enabled := 0
	for _, c := range cfgs {
		configurations[c.Method+":"+c.Path] = c
		if c.Enabled {
			enabled++
		}
	}

	all := catalog.All()
	statuses := make([]endpointStatus, 0, len(all))
	for _, e := range all {
		statuses = append(statuses, endpointStatus{
			ID:       e.ID,
			Method:   e.Method,
			Path:     e.Path,
			Served:   h.served[e.ID],
			Requests: counts[e.ID],
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"total_endpoints": len(cfgs),
		"enabled":         enabled,
		"disabled":        len(cfgs) - enabled,
		"configurations":  configurations,
		"endpoints":       statuses,
	})
}

type configureRequest struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	RateLimit    *int   `json:"rateLimit"`
	AuthRequired bool   `json:"authRequired"`
	CacheTTL     *int   `json:"cacheTtl"`
	Enabled      *bool  `json:"enabled"`
}

// ConfigureEndpoint creates or replaces the configuration of one
// method+path pair.
// POST /api/endpoints/configure
func (h *AdminHandler) ConfigureEndpoint(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	path := strings.TrimSpace(req.Path)
	if method == "" || path == "" {
		writeFailure(w, http.StatusBadRequest, "Method and path are required")
		return
	}

	cfg := model.EndpointConfig{
		Method:       method,
		Path:         path,
		Enabled:      true,
		RateLimit:    model.DefaultRateLimit,
		AuthRequired: req.AuthRequired,
		CacheTTL:     300,
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.RateLimit != nil {
		cfg.RateLimit = *req.RateLimit
	}
	if req.CacheTTL != nil {
		cfg.CacheTTL = *req.CacheTTL
	}
	if cfg.RateLimit < 0 || cfg.CacheTTL < 0 {
		writeFailure(w, http.StatusBadRequest, "rateLimit and cacheTtl must not be negative")
		return
	}

	if err := h.store.UpsertEndpointConfigs(r.Context(), []model.EndpointConfig{cfg}); err != nil {
		status, msg := classifyDBError(err, "Failed to configure endpoint")
		writeFailure(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, model.SuccessResponse{
		Success: true,
		Message: fmt.Sprintf("Endpoint %s %s configured successfully", method, path),
	})
}

// ListLogs returns the latest usage records across all keys.
// GET /api/logs?limit=N
func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", 100), 1, 1000)
	logs, err := h.store.RecentUsageRecords(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load logs: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
