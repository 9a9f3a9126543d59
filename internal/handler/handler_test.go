package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
	"github.com/shoplist/adminapi/internal/service"
)

const testPassword = "supersecretpassword"

// testEnv holds shared state for handler integration tests.
type testEnv struct {
	store   *config.Store
	admin   *AdminHandler
	shop    *ShopHandler
	auth    *AuthHandler
	gate    *service.Gate
	probe   *Prober
	router  chi.Router
	started time.Time
}

// newTestEnv creates a fresh test environment with an in-memory config store
// and a Chi router with the handlers mounted directly (no access gate).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	started := time.Now().Add(-90 * time.Second)
	probe := NewProber("", "", time.Second)
	admin := NewAdminHandler(store, probe, started, logger)
	shop := NewShopHandler(store, logger)

	sessions := service.NewSessions(service.NewMemorySessionStore(), time.Hour, nil, logger)
	gate := service.NewGate(sessions, service.NewEvaluator(store, nil), service.GateOptions{})
	pages := fstest.MapFS{
		"login.html": {Data: []byte("<html>login</html>")},
		"index.html": {Data: []byte("<html>dashboard</html>")},
	}
	auth := NewAuthHandler(gate, service.NewAdminPassword(testPassword, ""), false, pages, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", admin.Stats)
		r.Get("/stats/detailed", admin.DetailedStats)
		r.Get("/uptime", admin.Uptime)

		r.Get("/api-keys", admin.ListAPIKeys)
		r.Post("/api-keys", admin.CreateAPIKey)
		r.Patch("/api-keys/{id}", admin.ToggleAPIKey)
		r.Delete("/api-keys/{id}", admin.DeleteAPIKey)
		r.Get("/api-keys/{id}/usage", admin.APIKeyUsage)

		r.Get("/endpoints", admin.ListEndpoints)
		r.Get("/endpoints/available", admin.AvailableEndpoints)
		r.Get("/endpoints/status", admin.EndpointsStatus)
		r.Post("/endpoints/configure", admin.ConfigureEndpoint)
		r.Get("/logs", admin.ListLogs)

		r.Get("/database/info", admin.DatabaseInfo)
		r.Get("/database/analyze", admin.AnalyzeDatabase)
		r.Get("/database/test/{type}", admin.TestDatabase)

		r.Get("/ping/{target}", admin.Ping)
		r.Get("/frontend/status", admin.FrontendStatus)

		r.Get("/users", shop.ListUsers)
		r.Post("/users", shop.CreateUser)
		r.Get("/articles", shop.ListArticles)
		r.Post("/articles", shop.CreateArticle)
		r.Patch("/articles", shop.UpdateArticle)
		r.Delete("/articles", shop.DeleteArticle)
		r.Put("/articles/{uuid}", shop.UpdateArticleByID)
		r.Delete("/articles/{uuid}", shop.DeleteArticleByID)
		r.Get("/lists", shop.ListLists)
		r.Post("/lists", shop.CreateList)
		r.Patch("/lists", shop.RenameList)
		r.Delete("/lists", shop.DeleteList)
		r.Delete("/lists/{uuid}", shop.DeleteListByID)
		r.Get("/lists/{listUuid}/articles", shop.ListArticlesInList)
		r.Post("/lists/{listUuid}/articles", shop.CreateListArticle)
		r.Get("/categories", shop.ListCategories)
		r.Post("/categories", shop.CreateCategory)
		r.Patch("/categories", shop.UpdateCategory)
		r.Delete("/categories", shop.DeleteCategory)
	})
	r.Get("/admin/login", auth.LoginPage)
	r.Post("/admin/login", auth.Login)
	r.Post("/admin/logout", auth.Logout)
	r.Get("/admin", auth.Dashboard)

	return &testEnv{
		store:   store,
		admin:   admin,
		shop:    shop,
		auth:    auth,
		gate:    gate,
		probe:   probe,
		router:  r,
		started: started,
	}
}

// seedKey stores an API key with the given permissions and returns it.
func (e *testEnv) seedKey(t *testing.T, name string, perms ...string) *model.APIKey {
	t.Helper()
	key, _, err := service.CreateAPIKey(context.Background(), e.store, service.NewKeyRequest{
		Name:                name,
		EndpointPermissions: perms,
	}, time.Now())
	if err != nil {
		t.Fatalf("seedKey: %v", err)
	}
	return key
}

// seedUsage appends a usage record for key.
func (e *testEnv) seedUsage(t *testing.T, keyID int64, endpointID string, status int, ms int64) {
	t.Helper()
	rec := &model.UsageRecord{
		APIKeyID:       keyID,
		EndpointID:     endpointID,
		Method:         "GET",
		Path:           "/api/test",
		IPAddress:      "192.0.2.1",
		ResponseStatus: status,
		ResponseTimeMs: ms,
		Timestamp:      time.Now().UTC(),
	}
	if err := e.store.InsertUsageRecord(context.Background(), rec); err != nil {
		t.Fatalf("seedUsage: %v", err)
	}
}

// do executes an HTTP request against the test router and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func toJSON(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}
