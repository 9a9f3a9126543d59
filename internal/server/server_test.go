package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/service"
	"github.com/shoplist/adminapi/internal/telemetry"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testPassword = "supersecretpassword"

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *config.Store
	gate    *service.Gate
	metrics *telemetry.Metrics
}

// newTestEnv creates a fresh test environment with an in-memory config store,
// an in-memory session store and a fully wired Server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := service.NewSessions(service.NewMemorySessionStore(), time.Hour, nil, logger)
	gate := service.NewGate(sessions, service.NewEvaluator(store, nil), service.GateOptions{})
	metrics := telemetry.New()

	cfg := DefaultConfig()
	srv := New(cfg, store, gate, service.NewAdminPassword(testPassword, ""), metrics, logger)

	return &testEnv{server: srv, store: store, gate: gate, metrics: metrics}
}

// createKey stores an API key and returns its id and raw secret.
func (e *testEnv) createKey(t *testing.T, req service.NewKeyRequest) (int64, string) {
	t.Helper()
	if req.Name == "" {
		req.Name = "test key"
	}
	key, raw, err := service.CreateAPIKey(context.Background(), e.store, req, time.Now())
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return key.ID, raw
}

// adminCookie logs in with the admin password and returns the session cookie.
func (e *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	body := jsonBody(t, map[string]string{"password": testPassword})
	rr := e.do(t, "POST", "/admin/login", body, nil)
	assertStatus(t, rr, http.StatusOK)

	for _, c := range rr.Result().Cookies() {
		if c.Name == e.gate.CookieName() && c.Value != "" {
			return c
		}
	}
	t.Fatal("adminCookie: no session cookie in login response")
	return nil
}

// do executes an HTTP request against the test server and returns the recorder.
// headers is an optional map of header key-value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doAdmin executes an HTTP request carrying the admin session cookie.
func (e *testEnv) doAdmin(t *testing.T, method, path string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doAPIKey executes an HTTP request authenticated with an API key.
func (e *testEnv) doAPIKey(t *testing.T, method, path string, body io.Reader, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"X-API-Key": apiKey,
	})
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func assertContentType(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := rr.Header().Get("Content-Type")
	if got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// assertDenied checks a 401 response carrying the given reason.
func assertDenied(t *testing.T, rr *httptest.ResponseRecorder, reason string) {
	t.Helper()
	assertStatus(t, rr, http.StatusUnauthorized)
	assertContentType(t, rr, "application/json")

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != reason {
		t.Errorf("error = %q, want %q", resp["error"], reason)
	}
	if resp["message"] != "Authentication required" {
		t.Errorf("message = %q, want %q", resp["message"], "Authentication required")
	}
}

func intPtr(n int) *int { return &n }

// ---------------------------------------------------------------------------
// Health check tests
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
	checks, ok := resp["checks"].(map[string]interface{})
	if !ok {
		t.Fatal("expected checks to be a map")
	}
	if checks["database"] != "ok" {
		t.Errorf("database check = %v, want ok", checks["database"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, "GET", "/api/stats", nil, nil)

	rr := env.do(t, "GET", "/metrics", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "adminapi_gate_decisions_total") {
		t.Error("expected gate decision counter in metrics output")
	}
}

// ---------------------------------------------------------------------------
// Credential resolution and denial
// ---------------------------------------------------------------------------

func TestAnonymousDenied(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/stats", nil, nil)
	assertDenied(t, rr, "API key required")
}

func TestInvalidAPIKey(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doAPIKey(t, "GET", "/api/stats", nil, "not-a-real-key")
	assertDenied(t, rr, "Invalid API key")
}

func TestDeactivatedAPIKey(t *testing.T) {
	env := newTestEnv(t)
	id, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})

	if err := env.store.SetAPIKeyActive(context.Background(), id, false); err != nil {
		t.Fatalf("SetAPIKeyActive: %v", err)
	}

	rr := env.doAPIKey(t, "GET", "/api/stats", nil, raw)
	assertDenied(t, rr, "API key is deactivated")
}

func TestEndpointNotPermitted(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})

	rr := env.doAPIKey(t, "GET", "/api/logs", nil, raw)
	assertDenied(t, rr, "Access denied to endpoint: logs_get")
}

func TestIPRestrictions(t *testing.T) {
	env := newTestEnv(t)

	// httptest requests come from 192.0.2.1.
	_, outside := env.createKey(t, service.NewKeyRequest{
		EndpointPermissions: []string{"stats_get"},
		IPRestrictions:      []string{"10.0.0.0/8"},
	})
	rr := env.doAPIKey(t, "GET", "/api/stats", nil, outside)
	assertDenied(t, rr, "IP address 192.0.2.1 not allowed")

	_, inside := env.createKey(t, service.NewKeyRequest{
		EndpointPermissions: []string{"stats_get"},
		IPRestrictions:      []string{"192.0.2.0/24"},
	})
	rr = env.doAPIKey(t, "GET", "/api/stats", nil, inside)
	assertStatus(t, rr, http.StatusOK)
}

func TestForwardedForIgnored(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.createKey(t, service.NewKeyRequest{
		EndpointPermissions: []string{"stats_get"},
		IPRestrictions:      []string{"10.1.2.3"},
	})

	rr := env.do(t, "GET", "/api/stats", nil, map[string]string{
		"X-API-Key":       raw,
		"X-Forwarded-For": "10.1.2.3",
		"X-Real-IP":       "10.1.2.3",
	})
	assertDenied(t, rr, "IP address 192.0.2.1 not allowed")
}

func TestStorageUnavailable(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})

	env.store.Close()

	rr := env.doAPIKey(t, "GET", "/api/stats", nil, raw)
	assertStatus(t, rr, http.StatusServiceUnavailable)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "Service temporarily unavailable" {
		t.Errorf("error = %q, want generic unavailable message", resp["error"])
	}
	if strings.Contains(rr.Body.String(), "closed") {
		t.Errorf("response leaks the storage error: %s", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Allowed requests and usage accounting
// ---------------------------------------------------------------------------

func TestAPIKeyAllowedRecordsUsage(t *testing.T) {
	env := newTestEnv(t)
	id, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})

	rr := env.doAPIKey(t, "GET", "/api/stats", nil, raw)
	assertStatus(t, rr, http.StatusOK)

	ctx := context.Background()
	key, err := env.store.GetAPIKey(ctx, id)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if key.UsageCount != 1 {
		t.Errorf("usage_count = %d, want 1", key.UsageCount)
	}
	if key.LastUsed == nil {
		t.Error("expected last_used to be set")
	}

	recs, err := env.store.ListUsageRecords(ctx, id, 10, 0)
	if err != nil {
		t.Fatalf("ListUsageRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d usage records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.EndpointID != "stats_get" || rec.Method != "GET" || rec.Path != "/api/stats" {
		t.Errorf("record = %+v", rec)
	}
	if rec.ResponseStatus != http.StatusOK {
		t.Errorf("response_status = %d, want 200", rec.ResponseStatus)
	}
	if rec.IPAddress != "192.0.2.1" {
		t.Errorf("ip_address = %q, want 192.0.2.1", rec.IPAddress)
	}
}

func TestDeniedRequestNotRecorded(t *testing.T) {
	env := newTestEnv(t)
	id, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})

	env.doAPIKey(t, "GET", "/api/logs", nil, raw)

	n, err := env.store.CountUsageRecords(context.Background(), id)
	if err != nil {
		t.Fatalf("CountUsageRecords: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d usage records for a denied request, want 0", n)
	}
	key, _ := env.store.GetAPIKey(context.Background(), id)
	if key.UsageCount != 0 {
		t.Errorf("usage_count = %d, want 0", key.UsageCount)
	}
}

func TestKeyRateLimit(t *testing.T) {
	env := newTestEnv(t)
	id, raw := env.createKey(t, service.NewKeyRequest{
		EndpointPermissions: []string{"stats_get"},
		RateLimit:           intPtr(2),
	})

	for i := 0; i < 2; i++ {
		rr := env.doAPIKey(t, "GET", "/api/stats", nil, raw)
		assertStatus(t, rr, http.StatusOK)
	}

	rr := env.doAPIKey(t, "GET", "/api/stats", nil, raw)
	assertStatus(t, rr, http.StatusTooManyRequests)
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "Rate limit exceeded" {
		t.Errorf("error = %q, want %q", resp["error"], "Rate limit exceeded")
	}

	recs, err := env.store.ListUsageRecords(context.Background(), id, 10, 0)
	if err != nil {
		t.Fatalf("ListUsageRecords: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d usage records, want 3", len(recs))
	}
	var limited int
	for _, rec := range recs {
		if rec.ResponseStatus == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 1 {
		t.Errorf("got %d records with status 429, want 1", limited)
	}
}

// ---------------------------------------------------------------------------
// Admin sessions
// ---------------------------------------------------------------------------

func TestAdminSessionBypassesKeyChecks(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.adminCookie(t)

	rr := env.doAdmin(t, "GET", "/api/stats", nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if _, ok := resp["api_keys"]; !ok {
		t.Errorf("expected api_keys in stats response, got %v", resp)
	}
}

func TestAdminSessionWinsOverAPIKey(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.adminCookie(t)

	req := httptest.NewRequest("GET", "/api/logs", nil)
	req.AddCookie(cookie)
	req.Header.Set("X-API-Key", "garbage")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)
	assertStatus(t, rr, http.StatusOK)
}

func TestStaleCookieFallsBackToAPIKey(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.AddCookie(&http.Cookie{Name: env.gate.CookieName(), Value: "expired-token"})
	req.Header.Set("X-API-Key", raw)
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)
	assertStatus(t, rr, http.StatusOK)
}

func TestAdminLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/admin/login", jsonBody(t, map[string]string{"password": "nope"}), nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["success"] != false || resp["error"] != "Invalid password" {
		t.Errorf("resp = %v", resp)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("expected no cookie on failed login")
	}
}

func TestAdminFormLoginRedirects(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/admin/login", strings.NewReader("password="+testPassword))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)

	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].HttpOnly {
		t.Errorf("expected one HttpOnly session cookie, got %v", cookies)
	}
}

func TestAdminLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.adminCookie(t)

	rr := env.doAdmin(t, "POST", "/admin/logout", nil, cookie)
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}

	rr = env.doAdmin(t, "GET", "/api/stats", nil, cookie)
	assertDenied(t, rr, "API key required")
}

func TestDashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/admin", nil, nil)
	assertStatus(t, rr, http.StatusFound)
	if loc := rr.Header().Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}

	rr = env.doAdmin(t, "GET", "/admin", nil, env.adminCookie(t))
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "<html") {
		t.Error("expected the dashboard page")
	}
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestUnknownAPIPathIsGated(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/does-not-exist", nil, nil)
	assertDenied(t, rr, "API key required")

	_, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"stats_get"}})
	rr = env.doAPIKey(t, "GET", "/api/does-not-exist", nil, raw)
	assertDenied(t, rr, "Access denied to endpoint: unknown")

	rr = env.doAdmin(t, "GET", "/api/does-not-exist", nil, env.adminCookie(t))
	assertStatus(t, rr, http.StatusNotFound)
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "API endpoint not found" {
		t.Errorf("error = %q, want %q", resp["error"], "API endpoint not found")
	}
}

func TestUnknownPermissionReachesNotFound(t *testing.T) {
	env := newTestEnv(t)
	id, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"unknown"}})

	rr := env.doAPIKey(t, "GET", "/api/nothing/here", nil, raw)
	assertStatus(t, rr, http.StatusNotFound)

	recs, err := env.store.ListUsageRecords(context.Background(), id, 10, 0)
	if err != nil {
		t.Fatalf("ListUsageRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].EndpointID != "unknown" || recs[0].ResponseStatus != http.StatusNotFound {
		t.Errorf("records = %+v", recs)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "PUT", "/api/stats", nil, nil)
	assertDenied(t, rr, "API key required")

	rr = env.doAdmin(t, "PUT", "/api/stats", nil, env.adminCookie(t))
	assertStatus(t, rr, http.StatusMethodNotAllowed)
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "Method not supported" {
		t.Errorf("error = %q, want %q", resp["error"], "Method not supported")
	}
}

func TestCatalogueRouteServedElsewhere(t *testing.T) {
	env := newTestEnv(t)
	_, raw := env.createKey(t, service.NewKeyRequest{EndpointPermissions: []string{"captcha_get"}})

	rr := env.doAPIKey(t, "GET", "/api/captcha", nil, raw)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestDocsArePublic(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/docs/data", "/openapi.json"} {
		rr := env.do(t, "GET", path, nil, nil)
		assertStatus(t, rr, http.StatusOK)

		var doc map[string]interface{}
		decodeJSON(t, rr, &doc)
		if doc["openapi"] == nil {
			t.Errorf("%s: expected an OpenAPI document", path)
		}
	}
}

func TestListRoutesShareSegment(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.adminCookie(t)

	rr := env.doAdmin(t, "POST", "/api/lists", jsonBody(t, map[string]string{"name": "Groceries"}), cookie)
	assertStatus(t, rr, http.StatusCreated)
	var created struct {
		List struct {
			UUID string `json:"uuid"`
		} `json:"list"`
	}
	decodeJSON(t, rr, &created)
	if created.List.UUID == "" {
		t.Fatal("expected a list uuid")
	}

	rr = env.doAdmin(t, "GET", "/api/lists/"+created.List.UUID+"/articles", nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	rr = env.doAdmin(t, "DELETE", "/api/lists/"+created.List.UUID, nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	rr = env.doAdmin(t, "GET", "/api/lists/"+created.List.UUID+"/articles", nil, cookie)
	assertStatus(t, rr, http.StatusNotFound)
}

// ---------------------------------------------------------------------------
// Key lifecycle over HTTP
// ---------------------------------------------------------------------------

func TestKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.adminCookie(t)

	rr := env.doAdmin(t, "POST", "/api/api-keys", jsonBody(t, map[string]interface{}{
		"name":                 "reporting",
		"endpoint_permissions": []string{"stats_get", "uptime_get"},
	}), cookie)
	assertStatus(t, rr, http.StatusCreated)

	var created struct {
		Success bool   `json:"success"`
		APIKey  string `json:"api_key"`
		ID      int64  `json:"id"`
	}
	decodeJSON(t, rr, &created)
	if !created.Success || created.APIKey == "" || created.ID == 0 {
		t.Fatalf("create response = %+v", created)
	}

	rr = env.doAPIKey(t, "GET", "/api/uptime", nil, created.APIKey)
	assertStatus(t, rr, http.StatusOK)

	rr = env.doAdmin(t, "PATCH", "/api/api-keys/"+itoa(created.ID), jsonBody(t, map[string]bool{"is_active": false}), cookie)
	assertStatus(t, rr, http.StatusOK)

	rr = env.doAPIKey(t, "GET", "/api/uptime", nil, created.APIKey)
	assertDenied(t, rr, "API key is deactivated")

	rr = env.doAdmin(t, "GET", "/api/api-keys/"+itoa(created.ID)+"/usage", nil, cookie)
	assertStatus(t, rr, http.StatusOK)
	var usage struct {
		Logs []map[string]interface{} `json:"logs"`
	}
	decodeJSON(t, rr, &usage)
	if len(usage.Logs) != 1 {
		t.Errorf("got %d usage logs, want 1", len(usage.Logs))
	}

	rr = env.doAdmin(t, "DELETE", "/api/api-keys/"+itoa(created.ID), nil, cookie)
	assertStatus(t, rr, http.StatusOK)

	rr = env.doAPIKey(t, "GET", "/api/uptime", nil, created.APIKey)
	assertDenied(t, rr, "Invalid API key")
}

func TestCreateKeyRejectsUnknownPermission(t *testing.T) {
	env := newTestEnv(t)

	rr := env.doAdmin(t, "POST", "/api/api-keys", jsonBody(t, map[string]interface{}{
		"name":                 "bad",
		"endpoint_permissions": []string{"no_such_endpoint"},
	}), env.adminCookie(t))
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestCORSCredentials(t *testing.T) {
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := service.NewSessions(service.NewMemorySessionStore(), time.Hour, nil, logger)
	gate := service.NewGate(sessions, service.NewEvaluator(store, nil), service.GateOptions{})

	preflight := func(srv *Server, origin string) http.Header {
		req := httptest.NewRequest("OPTIONS", "/api/stats", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		return rr.Header()
	}

	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantOrigin  string
		wantCreds string
	}{
		{"wildcard never allows credentials", []string{"*"}, "https://evil.example", "*", ""},
		{"listed origin gets credentials", []string{"https://admin.example"}, "https://admin.example", "https://admin.example", "true"},
		{"unlisted origin is refused", []string{"https://admin.example"}, "https://evil.example", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CORSOrigins = tt.origins
			srv := New(cfg, store, gate, service.NewAdminPassword(testPassword, ""), nil, logger)

			h := preflight(srv, tt.origin)
			if got := h.Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := h.Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCreds)
			}
		})
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
