package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/shoplist/adminapi/internal/config"
)

func TestCreateAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/api-keys", toJSON(t, map[string]interface{}{
		"name":                 "reporting",
		"description":          "nightly export",
		"endpoint_permissions": []string{" stats_get ", "logs_get"},
		"rate_limit":           120,
		"ip_restrictions":      []string{"10.0.0.0/8"},
		"expires_days":         30,
	}))
	assertStatus(t, rr, http.StatusCreated)

	var resp createKeyResponse
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.Message != "API key created successfully" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.APIKey == "" || !strings.HasPrefix(resp.APIKey, resp.KeyPreview[:8]) {
		t.Errorf("api_key = %q, key_preview = %q", resp.APIKey, resp.KeyPreview)
	}

	key, err := env.store.GetAPIKeyByHash(context.Background(), config.HashAPIKey(resp.APIKey))
	if err != nil {
		t.Fatalf("GetAPIKeyByHash: %v", err)
	}
	if key.ID != resp.ID || key.RateLimit != 120 || !key.IsActive {
		t.Errorf("stored key = %+v", key)
	}
	if len(key.EndpointPermissions) != 2 || key.EndpointPermissions[0] != "stats_get" {
		t.Errorf("permissions = %v, want trimmed [stats_get logs_get]", key.EndpointPermissions)
	}
	if key.ExpiresAt == nil {
		t.Error("expected expires_at to be set")
	}
}

func TestCreateAPIKeyValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"missing name", map[string]interface{}{"endpoint_permissions": []string{"stats_get"}}, "Name is required"},
		{"blank name", map[string]interface{}{"name": "   "}, "Name is required"},
		{"unknown permission", map[string]interface{}{"name": "x", "endpoint_permissions": []string{"bogus"}}, "bogus"},
		{"bad cidr", map[string]interface{}{"name": "x", "ip_restrictions": []string{"10.0.0.0/99"}}, "10.0.0.0/99"},
		{"negative rate limit", map[string]interface{}{"name": "x", "rate_limit": -1}, "rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/api-keys", toJSON(t, tt.body))
			assertStatus(t, rr, http.StatusBadRequest)

			var resp map[string]interface{}
			decodeJSON(t, rr, &resp)
			if resp["success"] != false {
				t.Errorf("success = %v, want false", resp["success"])
			}
			if msg, _ := resp["error"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want it to mention %q", msg, tt.want)
			}
		})
	}
}

func TestListAPIKeysHidesDigest(t *testing.T) {
	env := newTestEnv(t)
	env.seedKey(t, "one", "stats_get")
	env.seedKey(t, "two")

	rr := env.do(t, "GET", "/api/api-keys", nil)
	assertStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "key_hash") {
		t.Errorf("response exposes key digests: %s", rr.Body.String())
	}

	var resp struct {
		Success bool                     `json:"success"`
		Keys    []map[string]interface{} `json:"keys"`
	}
	decodeJSON(t, rr, &resp)
	if !resp.Success || len(resp.Keys) != 2 {
		t.Errorf("got success=%v, %d keys", resp.Success, len(resp.Keys))
	}
}

func TestToggleAPIKey(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "toggle", "stats_get")
	path := "/api/api-keys/" + strconv.FormatInt(key.ID, 10)
	ctx := context.Background()

	tests := []struct {
		name       string
		body       string
		wantActive bool
		wantMsg    string
	}{
		{"status inactive", `{"status":"inactive"}`, false, "API key inactive"},
		{"status active", `{"status":"active"}`, true, "API key active"},
		{"is_active false", `{"is_active":false}`, false, "API key inactive"},
		{"empty body flips", ``, true, "API key active"},
		{"empty object flips", `{}`, false, "API key inactive"},
	}
	for _, tt := range tests {
		rr := env.do(t, "PATCH", path, strings.NewReader(tt.body))
		assertStatus(t, rr, http.StatusOK)

		var resp map[string]interface{}
		decodeJSON(t, rr, &resp)
		if resp["message"] != tt.wantMsg {
			t.Errorf("%s: message = %v, want %q", tt.name, resp["message"], tt.wantMsg)
		}
		got, err := env.store.GetAPIKey(ctx, key.ID)
		if err != nil {
			t.Fatalf("GetAPIKey: %v", err)
		}
		if got.IsActive != tt.wantActive {
			t.Errorf("%s: is_active = %v, want %v", tt.name, got.IsActive, tt.wantActive)
		}
	}
}

func TestToggleAPIKeyNotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "PATCH", "/api/api-keys/999", toJSON(t, map[string]bool{"is_active": true}))
	assertStatus(t, rr, http.StatusNotFound)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["error"] != "API key not found" {
		t.Errorf("error = %v", resp["error"])
	}

	rr = env.do(t, "PATCH", "/api/api-keys/abc", nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestDeleteAPIKeyRemovesUsage(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "doomed", "stats_get")
	env.seedUsage(t, key.ID, "stats_get", 200, 5)
	path := "/api/api-keys/" + strconv.FormatInt(key.ID, 10)

	rr := env.do(t, "DELETE", path, nil)
	assertStatus(t, rr, http.StatusOK)

	ctx := context.Background()
	if _, err := env.store.GetAPIKey(ctx, key.ID); err == nil {
		t.Error("expected key to be gone")
	}
	n, err := env.store.CountUsageRecords(ctx, key.ID)
	if err != nil {
		t.Fatalf("CountUsageRecords: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d orphaned usage records, want 0", n)
	}

	rr = env.do(t, "DELETE", path, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestAPIKeyUsage(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "busy", "stats_get")
	for i := 0; i < 3; i++ {
		env.seedUsage(t, key.ID, "stats_get", 200, 10)
	}
	env.seedUsage(t, key.ID, "stats_get", 500, 30)

	rr := env.do(t, "GET", "/api/api-keys/"+strconv.FormatInt(key.ID, 10)+"/usage", nil)
	assertStatus(t, rr, http.StatusOK)

	var resp keyUsageResponse
	decodeJSON(t, rr, &resp)
	if !resp.Success || resp.KeyInfo.Name != "busy" {
		t.Errorf("key_info = %+v", resp.KeyInfo)
	}
	if len(resp.Logs) != 4 {
		t.Errorf("got %d logs, want 4", len(resp.Logs))
	}
	if resp.Stats.TotalRequests != 4 || resp.Stats.Successful != 3 || resp.Stats.Failed != 1 {
		t.Errorf("stats = %+v", resp.Stats)
	}
	if resp.Stats.SuccessRate != "75.0%" {
		t.Errorf("success_rate = %q, want 75.0%%", resp.Stats.SuccessRate)
	}
	if resp.Stats.AvgResponseTime != "15ms" {
		t.Errorf("avg_response_time = %q, want 15ms", resp.Stats.AvgResponseTime)
	}
	if resp.Pagination.Total != 4 || resp.Pagination.Page != 1 || resp.Pagination.HasMore {
		t.Errorf("pagination = %+v", resp.Pagination)
	}
}

func TestAPIKeyUsagePaging(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "paged")
	for i := 0; i < usagePageSize+5; i++ {
		env.seedUsage(t, key.ID, "stats_get", 200, 1)
	}
	base := "/api/api-keys/" + strconv.FormatInt(key.ID, 10) + "/usage"

	rr := env.do(t, "GET", base, nil)
	var first keyUsageResponse
	decodeJSON(t, rr, &first)
	if len(first.Logs) != usagePageSize || !first.Pagination.HasMore {
		t.Errorf("page 1: %d logs, has_more=%v", len(first.Logs), first.Pagination.HasMore)
	}

	rr = env.do(t, "GET", base+"?page=2", nil)
	var second keyUsageResponse
	decodeJSON(t, rr, &second)
	if len(second.Logs) != 5 || second.Pagination.HasMore {
		t.Errorf("page 2: %d logs, has_more=%v", len(second.Logs), second.Pagination.HasMore)
	}
}

func TestAPIKeyUsageHugePage(t *testing.T) {
	env := newTestEnv(t)
	key := env.seedKey(t, "far")
	env.seedUsage(t, key.ID, "stats_get", 200, 1)

	rr := env.do(t, "GET", "/api/api-keys/"+strconv.FormatInt(key.ID, 10)+"/usage?page=9223372036854775807", nil)
	assertStatus(t, rr, http.StatusOK)

	var resp keyUsageResponse
	decodeJSON(t, rr, &resp)
	if len(resp.Logs) != 0 {
		t.Errorf("got %d logs, want 0", len(resp.Logs))
	}
	if resp.Pagination.Page != maxUsagePage || resp.Pagination.HasMore {
		t.Errorf("pagination = %+v, want page clamped to %d", resp.Pagination, maxUsagePage)
	}
}

func TestAPIKeyUsageUnknownKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/api-keys/42/usage", nil)
	assertStatus(t, rr, http.StatusNotFound)
}
