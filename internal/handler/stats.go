package handler

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/shoplist/adminapi/internal/catalog"
)

type statsResponse struct {
	APIKeys     int64  `json:"api_keys"`
	APIRequests string `json:"api_requests"`
	Endpoints   string `json:"endpoints"`
	DBSize      string `json:"db_size"`
	DBModified  string `json:"db_modified"`
}

// Stats returns the dashboard summary: key count, requests today/total,
// enabled/total endpoints and database size.
// GET /api/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keys, err := h.store.CountAPIKeys(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count API keys: "+err.Error())
		return
	}

	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	totals, err := h.store.UsageTotals(ctx, today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count requests: "+err.Error())
		return
	}

	cfgs, err := h.store.ListEndpointConfigs(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load endpoint configurations: "+err.Error())
		return
	}
	routes := make(map[string]bool)
	for _, e := range catalog.All() {
		routes[e.Method+" "+e.Path] = true
	}
	disabled := 0
	for _, c := range cfgs {
		if !c.Enabled && routes[c.Method+" "+c.Path] {
			disabled++
		}
	}
	total := len(routes)

	resp := statsResponse{
		APIKeys:     keys,
		APIRequests: fmt.Sprintf("%d/%d", totals.Since, totals.Total),
		Endpoints:   fmt.Sprintf("%d/%d", total-disabled, total),
		DBSize:      "Unknown",
		DBModified:  "Unknown",
	}
	if size, mod, err := h.store.DatabaseSize(ctx); err == nil {
		resp.DBSize = formatKB(size)
		if mod != nil {
			resp.DBModified = mod.Format("2006-01-02 15:04:05")
		}
	} else {
		h.logger.Warn("database size unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

type detailedStatsResponse struct {
	Success       bool    `json:"success"`
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	MemoryUsage   string  `json:"memory_usage"`
	Goroutines    int     `json:"goroutines"`
	Uptime        int64   `json:"uptime"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	StartTime     float64 `json:"start_time"`
	CurrentTime   float64 `json:"current_time"`
}

// DetailedStats returns request and error totals together with process
// figures for the monitoring view.
// GET /api/stats/detailed
func (h *AdminHandler) DetailedStats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.store.UsageTotals(r.Context(), h.started)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to count requests: "+err.Error())
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := h.now()
	uptime := int64(now.Sub(h.started).Seconds())
	writeJSON(w, http.StatusOK, detailedStatsResponse{
		Success:       true,
		TotalRequests: totals.Total,
		TotalErrors:   totals.Errors,
		MemoryUsage:   fmt.Sprintf("%.1f MB", float64(mem.HeapAlloc)/(1<<20)),
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        uptime,
		UptimeSeconds: uptime,
		StartTime:     unixSeconds(h.started),
		CurrentTime:   unixSeconds(now),
	})
}

// Uptime reports when the process started and how long it has been running.
// GET /api/uptime
func (h *AdminHandler) Uptime(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	d := now.Sub(h.started).Round(time.Second)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"start_time":     h.started.UTC(),
		"uptime_seconds": int64(d.Seconds()),
		"uptime":         d.String(),
	})
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
