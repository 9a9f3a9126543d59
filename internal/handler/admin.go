package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shoplist/adminapi/internal/config"
)

// AdminHandler serves the operator endpoints: API keys, endpoint
// configuration, access logs, statistics, database diagnostics and
// connectivity probes.
type AdminHandler struct {
	store   *config.Store
	logger  *slog.Logger
	now     func() time.Time
	started time.Time
	probe   *Prober
	served  map[string]bool
}

// NewAdminHandler creates a new AdminHandler. started is the process start
// time reported by the uptime endpoints.
func NewAdminHandler(store *config.Store, probe *Prober, started time.Time, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		store:   store,
		logger:  logger,
		now:     time.Now,
		started: started,
		probe:   probe,
		served:  make(map[string]bool),
	}
}

// MarkServed records the endpoint ids this server has handlers for. The
// endpoint status view reports the rest as served elsewhere.
func (h *AdminHandler) MarkServed(ids ...string) {
	for _, id := range ids {
		h.served[id] = true
	}
}

// NotServed answers catalogue routes that exist for permission
// configuration but are implemented by the user-facing backend.
func NotServed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "API endpoint not found")
}

// MethodNotSupported answers a known path requested with the wrong method.
func MethodNotSupported(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not supported")
}
