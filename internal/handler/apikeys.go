package handler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
	"github.com/shoplist/adminapi/internal/service"
)

// usagePageSize is the number of usage records per page of the usage view.
const usagePageSize = 50

// maxUsagePage bounds ?page= so the row offset cannot overflow.
const maxUsagePage = 100000

// ListAPIKeys returns all API keys. Digests are never included.
// GET /api/api-keys
func (h *AdminHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to list API keys: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"keys":    keys,
	})
}

type createKeyResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	APIKey     string `json:"api_key"`
	KeyPreview string `json:"key_preview"`
	ID         int64  `json:"id"`
}

// CreateAPIKey generates a new key. The secret is only ever returned here.
// POST /api/api-keys
func (h *AdminHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req service.NewKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFailure(w, http.StatusBadRequest, "Name is required")
		return
	}

	key, raw, err := service.CreateAPIKey(r.Context(), h.store, req, h.now())
	if err != nil {
		if errors.Is(err, service.ErrInvalidKeyRequest) {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		status, msg := classifyDBError(err, "Failed to create API key")
		writeFailure(w, status, msg)
		return
	}

	h.logger.Info("api key created", "id", key.ID, "name", key.Name, "preview", key.KeyPreview)
	writeJSON(w, http.StatusCreated, createKeyResponse{
		Success:    true,
		Message:    "API key created successfully",
		APIKey:     raw,
		KeyPreview: key.KeyPreview,
		ID:         key.ID,
	})
}

type toggleKeyRequest struct {
	Status   string `json:"status"`
	IsActive *bool  `json:"is_active"`
}

// ToggleAPIKey activates or deactivates a key. The body names the new state
// as {"status": "active"|"inactive"} or {"is_active": bool}; an empty body
// flips the current state.
// PATCH /api/api-keys/{id}
func (h *AdminHandler) ToggleAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Key ID is required")
		return
	}
	var req toggleKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var active bool
	switch {
	case req.IsActive != nil:
		active = *req.IsActive
	case req.Status != "":
		active = req.Status == "active"
	default:
		key, err := h.store.GetAPIKey(r.Context(), id)
		if err != nil {
			h.keyError(w, err, "Failed to toggle API key")
			return
		}
		active = !key.IsActive
	}

	if err := h.store.SetAPIKeyActive(r.Context(), id, active); err != nil {
		h.keyError(w, err, "Failed to toggle API key")
		return
	}

	state := "inactive"
	if active {
		state = "active"
	}
	h.logger.Info("api key toggled", "id", id, "state", state)
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "API key " + state})
}

// DeleteAPIKey removes a key together with its usage records.
// DELETE /api/api-keys/{id}
func (h *AdminHandler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Key ID is required")
		return
	}
	if err := h.store.DeleteAPIKey(r.Context(), id); err != nil {
		h.keyError(w, err, "Failed to delete API key")
		return
	}
	h.logger.Info("api key deleted", "id", id)
	writeJSON(w, http.StatusOK, model.SuccessResponse{Success: true, Message: "API key deleted successfully"})
}

func (h *AdminHandler) keyError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, config.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, "API key not found")
		return
	}
	writeFailure(w, http.StatusInternalServerError, fallback+": "+err.Error())
}

type keyInfo struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	KeyPreview string     `json:"key_preview"`
	UsageCount int64      `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
	IsActive   bool       `json:"is_active"`
}

type usageStatsView struct {
	TotalRequests   int64      `json:"total_requests"`
	FirstUsed       *time.Time `json:"first_used"`
	LastUsed        *time.Time `json:"last_used"`
	AvgResponseTime string     `json:"avg_response_time"`
	SuccessRate     string     `json:"success_rate"`
	Successful      int64      `json:"successful_requests"`
	Failed          int64      `json:"failed_requests"`
}

type keyUsageResponse struct {
	Success    bool                `json:"success"`
	KeyInfo    keyInfo             `json:"key_info"`
	Logs       []model.UsageRecord `json:"logs"`
	Stats      usageStatsView      `json:"stats"`
	Pagination model.Pagination    `json:"pagination"`
}

// APIKeyUsage returns one key's counters, a page of its usage records and
// aggregate statistics.
// GET /api/api-keys/{id}/usage?page=N
func (h *AdminHandler) APIKeyUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Key ID is required")
		return
	}
	ctx := r.Context()

	key, err := h.store.GetAPIKey(ctx, id)
	if err != nil {
		h.keyError(w, err, "Failed to load API key")
		return
	}

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxUsagePage {
		page = maxUsagePage
	}
	logs, err := h.store.ListUsageRecords(ctx, id, usagePageSize, (page-1)*usagePageSize)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to load usage records: "+err.Error())
		return
	}
	total, err := h.store.CountUsageRecords(ctx, id)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to count usage records: "+err.Error())
		return
	}
	stats, err := h.store.KeyUsageStats(ctx, id)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to aggregate usage: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, keyUsageResponse{
		Success: true,
		KeyInfo: keyInfo{
			ID:         key.ID,
			Name:       key.Name,
			KeyPreview: key.KeyPreview,
			UsageCount: key.UsageCount,
			CreatedAt:  key.CreatedAt,
			LastUsed:   key.LastUsed,
			IsActive:   key.IsActive,
		},
		Logs:       logs,
		Stats:      newUsageStatsView(stats),
		Pagination: model.NewPagination(page, usagePageSize, total),
	})
}

func newUsageStatsView(s model.UsageStats) usageStatsView {
	return usageStatsView{
		TotalRequests:   s.TotalRequests,
		FirstUsed:       s.FirstUsed,
		LastUsed:        s.LastUsed,
		AvgResponseTime: fmt.Sprintf("%dms", int64(math.Round(s.AvgResponseTimeMs))),
		SuccessRate:     fmt.Sprintf("%.1f%%", s.SuccessRate()),
		Successful:      s.Successful,
		Failed:          s.Failed,
	}
}
