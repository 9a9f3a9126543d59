package handler

import (
	"net/http"
	"testing"

	"github.com/shoplist/adminapi/internal/catalog"
)

func TestListEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/endpoints", nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Success   bool               `json:"success"`
		Endpoints []catalog.Endpoint `json:"endpoints"`
	}
	decodeJSON(t, rr, &resp)
	if !resp.Success || len(resp.Endpoints) != len(catalog.All()) {
		t.Errorf("got %d endpoints, want %d", len(resp.Endpoints), len(catalog.All()))
	}
}

func TestAvailableEndpointsGrouped(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/endpoints/available", nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Categories []catalog.Group `json:"categories"`
	}
	decodeJSON(t, rr, &resp)

	var n int
	for _, g := range resp.Categories {
		if g.Category == "" {
			t.Error("group without a category name")
		}
		n += len(g.Endpoints)
	}
	if n != len(catalog.All()) {
		t.Errorf("grouped %d endpoints, want %d", n, len(catalog.All()))
	}
}

func TestConfigureEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/endpoints/configure", toJSON(t, map[string]interface{}{
		"method":  "get",
		"path":    "/api/logs",
		"enabled": false,
	}))
	assertStatus(t, rr, http.StatusOK)

	var msg map[string]interface{}
	decodeJSON(t, rr, &msg)
	if msg["message"] != "Endpoint GET /api/logs configured successfully" {
		t.Errorf("message = %v", msg["message"])
	}

	// Reconfiguring replaces the previous entry.
	rr = env.do(t, "POST", "/api/endpoints/configure", toJSON(t, map[string]interface{}{
		"method":    "GET",
		"path":      "/api/logs",
		"rateLimit": 10,
		"enabled":   false,
	}))
	assertStatus(t, rr, http.StatusOK)

	rr = env.do(t, "GET", "/api/endpoints/status", nil)
	assertStatus(t, rr, http.StatusOK)

	var status struct {
		Total          int `json:"total_endpoints"`
		Enabled        int `json:"enabled"`
		Disabled       int `json:"disabled"`
		Configurations map[string]struct {
			RateLimit int  `json:"rate_limit"`
			CacheTTL  int  `json:"cache_ttl"`
			Enabled   bool `json:"enabled"`
		} `json:"configurations"`
	}
	decodeJSON(t, rr, &status)
	if status.Total != 1 || status.Enabled != 0 || status.Disabled != 1 {
		t.Errorf("status = %+v", status)
	}
	cfg, ok := status.Configurations["GET:/api/logs"]
	if !ok {
		t.Fatalf("missing configuration, got %v", status.Configurations)
	}
	if cfg.RateLimit != 10 || cfg.CacheTTL != 300 || cfg.Enabled {
		t.Errorf("configuration = %+v", cfg)
	}
}

func TestConfigureEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing method", map[string]interface{}{"path": "/api/logs"}},
		{"missing path", map[string]interface{}{"method": "GET"}},
		{"negative rate limit", map[string]interface{}{"method": "GET", "path": "/api/logs", "rateLimit": -1}},
		{"negative ttl", map[string]interface{}{"method": "GET", "path": "/api/logs", "cacheTtl": -5}},
	}
	for _, tt := range tests {
		rr := env.do(t, "POST", "/api/endpoints/configure", toJSON(t, tt.body))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rr.Code)
		}
	}
}

func TestEndpointsStatusCountsRequests(t *testing.T) {
	env := newTestEnv(t)
	env.admin.MarkServed("stats_get")
	key := env.seedKey(t, "k", "stats_get")
	env.seedUsage(t, key.ID, "stats_get", 200, 1)
	env.seedUsage(t, key.ID, "stats_get", 200, 1)

	rr := env.do(t, "GET", "/api/endpoints/status", nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Endpoints []endpointStatus `json:"endpoints"`
	}
	decodeJSON(t, rr, &resp)

	found := false
	for _, e := range resp.Endpoints {
		switch e.ID {
		case "stats_get":
			found = true
			if !e.Served || e.Requests != 2 {
				t.Errorf("stats_get = %+v", e)
			}
		case "captcha_get":
			if e.Served {
				t.Error("captcha_get reported as served")
			}
		}
	}
	if !found {
		t.Error("stats_get missing from status")
	}
}

func TestListLogs(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "k")
	for i := 0; i < 5; i++ {
		env.seedUsage(t, key.ID, "stats_get", 200, 1)
	}

	rr := env.do(t, "GET", "/api/logs?limit=3", nil)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Logs []map[string]interface{} `json:"logs"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Logs) != 3 {
		t.Errorf("got %d logs, want 3", len(resp.Logs))
	}

	rr = env.do(t, "GET", "/api/logs?limit=0", nil)
	decodeJSON(t, rr, &resp)
	if len(resp.Logs) != 1 {
		t.Errorf("limit=0 returned %d logs, want the clamped minimum of 1", len(resp.Logs))
	}
}
