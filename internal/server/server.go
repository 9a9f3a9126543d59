package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shoplist/adminapi/internal/catalog"
	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/handler"
	"github.com/shoplist/adminapi/internal/openapi"
	"github.com/shoplist/adminapi/internal/server/middleware"
	"github.com/shoplist/adminapi/internal/service"
	"github.com/shoplist/adminapi/internal/telemetry"
	"github.com/shoplist/adminapi/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	MaxBodySize     int64 // bytes
	RateLimit       int   // requests per minute per peer address, 0 disables
	CookieSecure    bool
	MetricsPath     string // empty disables the metrics endpoint
	FrontendURL     string
	BackendURL      string
	PingTimeout     time.Duration
	SweepInterval   time.Duration
	SampleInterval  time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		MaxBodySize:     1 << 20, // 1MB
		MetricsPath:     "/metrics",
		FrontendURL:     "http://localhost:3000",
		BackendURL:      "http://localhost:4000",
		PingTimeout:     3 * time.Second,
		SweepInterval:   10 * time.Minute,
		SampleInterval:  15 * time.Second,
	}
}

// Server is the top-level HTTP server of the admin API. It owns the Chi
// router, the store, and the access gate every /api route passes through.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	gate       *service.Gate
	password   *service.AdminPassword
	metrics    *telemetry.Metrics
	admin      *handler.AdminHandler
	httpServer *http.Server
	started    time.Time
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
// metrics may be nil.
func New(cfg Config, store *config.Store, gate *service.Gate, password *service.AdminPassword, metrics *telemetry.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		gate:     gate,
		password: password,
		metrics:  metrics,
		started:  time.Now(),
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, s.metrics))
	r.Use(chimw.Recoverer)
	// The admin session is a cookie, so credentialed requests are only
	// allowed from an explicit origin list.
	allowCredentials := len(s.cfg.CORSOrigins) > 0 && !slices.Contains(s.cfg.CORSOrigins, "*")
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", s.gate.APIKeyHeader(), "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
	}

	// --- Health checks and metrics (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.cfg.MetricsPath != "" && s.metrics != nil {
		r.Handle(s.cfg.MetricsPath, s.metrics.Handler())
	}

	// --- OpenAPI document (no auth required) ---
	docs := handler.NewDocsHandler(openapi.Generate(catalog.All(), openapi.Options{
		APIKeyHeader: s.gate.APIKeyHeader(),
		CookieName:   s.gate.CookieName(),
	}))
	r.Get("/openapi.json", docs.ServeDocument)
	for _, p := range catalog.PublicPaths() {
		r.Get(p, docs.ServeDocument)
	}

	// --- Gated API routes ---
	recorder := service.NewUsageRecorder(s.store, s.logger, s.metrics.UsageFailed)
	guard := middleware.NewGuard(s.gate, recorder, middleware.NewKeyLimiter(), s.metrics, s.logger)

	probe := handler.NewProber(s.cfg.FrontendURL, s.cfg.BackendURL, s.cfg.PingTimeout)
	s.admin = handler.NewAdminHandler(s.store, probe, s.started, s.logger)
	routes := apiRoutes(s.admin, handler.NewShopHandler(s.store, s.logger))

	for _, e := range catalog.All() {
		h, ok := routes[e.ID]
		if ok {
			s.admin.MarkServed(e.ID)
		} else {
			h = handler.NotServed
		}
		r.Method(e.Method, e.Path, guard.Protect(e.ID, h))
	}

	// Unmapped /api paths and wrong methods still require a credential
	// allowed for the unknown sentinel before the caller learns anything.
	notFound := guard.Protect(catalog.Unknown, http.HandlerFunc(handler.NotServed))
	notAllowed := guard.Protect(catalog.Unknown, http.HandlerFunc(handler.MethodNotSupported))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			notFound.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			notAllowed.ServeHTTP(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	// --- Admin login and embedded pages ---
	var pages fs.FS
	if s.cfg.EnableUI {
		pages = ui.Pages()
	}
	auth := handler.NewAuthHandler(s.gate, s.password, s.cfg.CookieSecure, pages, s.logger)
	r.Get("/admin/login", auth.LoginPage)
	r.Post("/admin/login", auth.Login)
	r.Get("/admin/logout", auth.Logout)
	r.Post("/admin/logout", auth.Logout)
	r.With(middleware.RequireAdmin(s.gate, "/admin/login")).Get("/admin", auth.Dashboard)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	s.router = r
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}

// apiRoutes maps endpoint ids to the handlers this server implements.
// Catalogue entries missing here belong to the user-facing backend.
func apiRoutes(admin *handler.AdminHandler, shop *handler.ShopHandler) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"users_get":     shop.ListUsers,
		"users_post":    shop.CreateUser,
		"articles_get":  shop.ListArticles,
		"articles_post": shop.CreateArticle,

		"articles_patch":       shop.UpdateArticle,
		"articles_delete":      shop.DeleteArticle,
		"articles_uuid_put":    shop.UpdateArticleByID,
		"articles_uuid_delete": shop.DeleteArticleByID,
		"lists_get":            shop.ListLists,
		"lists_post":           shop.CreateList,
		"lists_patch":          shop.RenameList,
		"lists_delete":         shop.DeleteList,
		"lists_uuid_delete":    shop.DeleteListByID,
		"list_articles_get":    shop.ListArticlesInList,
		"list_articles_post":   shop.CreateListArticle,
		"categories_get":       shop.ListCategories,
		"categories_post":      shop.CreateCategory,
		"categories_patch":     shop.UpdateCategory,
		"categories_delete":    shop.DeleteCategory,

		"stats_get":                admin.Stats,
		"stats_detailed_get":       admin.DetailedStats,
		"uptime_get":               admin.Uptime,
		"api_keys_get":             admin.ListAPIKeys,
		"api_keys_post":            admin.CreateAPIKey,
		"api_keys_patch":           admin.ToggleAPIKey,
		"api_keys_delete":          admin.DeleteAPIKey,
		"api_keys_usage_get":       admin.APIKeyUsage,
		"endpoints_get":            admin.ListEndpoints,
		"endpoints_available_get":  admin.AvailableEndpoints,
		"endpoints_status_get":     admin.EndpointsStatus,
		"endpoints_configure_post": admin.ConfigureEndpoint,
		"logs_get":                 admin.ListLogs,
		"database_info_get":        admin.DatabaseInfo,
		"database_analyze_get":     admin.AnalyzeDatabase,
		"database_test_get":        admin.TestDatabase,
		"ping_google_get":          admin.Ping,
		"ping_cloudflare_get":      admin.Ping,
		"ping_frontend_get":        admin.Ping,
		"ping_backend_get":         admin.Ping,
		"frontend_status_get":      admin.FrontendStatus,
	}
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store answers a
// ping, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"database": "ok"}

	if err := s.store.Ping(r.Context()); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// snapshot gathers the gauge values sampled into the metrics.
func (s *Server) snapshot(ctx context.Context) (telemetry.Snapshot, error) {
	total, err := s.store.CountAPIKeys(ctx)
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	active, err := s.store.CountActiveAPIKeys(ctx)
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	pool := s.store.PoolStats()
	return telemetry.Snapshot{
		APIKeys:       total,
		ActiveAPIKeys: active,
		DBOpenConns:   pool.OpenConnections,
		DBInUse:       pool.InUse,
	}, nil
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go s.gate.Sessions().Run(ctx, s.cfg.SweepInterval)
	s.metrics.Start(s.snapshot, s.cfg.SampleInterval)

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		s.metrics.Shutdown()
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.metrics.Shutdown()
	if err := s.store.Close(); err != nil {
		s.logger.Warn("close store", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
