package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/httprate"

	"github.com/shoplist/adminapi/internal/model"
	"github.com/shoplist/adminapi/internal/service"
	"github.com/shoplist/adminapi/internal/telemetry"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authorized principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Principal is the identity a request was authorized as. Key is nil for
// admin sessions.
type Principal struct {
	Kind       service.IdentityKind
	Key        *model.APIKey
	EndpointID string
}

// IsAdmin reports whether the request carries a live admin session.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Kind == service.IdentityAdmin
}

// GetPrincipal extracts the authorized principal from the context.
// Returns nil if the request did not pass through a Guard.
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// PeerIP returns the host part of the connection's remote address.
// Forwarding headers are never consulted.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Guard puts the access gate in front of API handlers. Each protected
// route is wrapped with its endpoint id; API-key requests that pass are
// rate limited per key and recorded once the handler has finished.
type Guard struct {
	gate     *service.Gate
	recorder *service.UsageRecorder
	limiter  *KeyLimiter
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

// NewGuard wires the gate, recorder and per-key limiter together. metrics
// may be nil.
func NewGuard(gate *service.Gate, recorder *service.UsageRecorder, limiter *KeyLimiter, metrics *telemetry.Metrics, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{gate: gate, recorder: recorder, limiter: limiter, metrics: metrics, logger: logger}
}

// Protect returns next guarded for endpointID.
func (g *Guard) Protect(endpointID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := PeerIP(r)
		id := g.gate.Resolve(r)

		key, err := g.gate.Authorize(r.Context(), id, endpointID, ip)
		if err != nil {
			g.deny(w, r, id, endpointID, ip, err)
			return
		}
		g.metrics.GateDecision(id.Kind.String(), "allow")

		p := &Principal{Kind: id.Kind, Key: key, EndpointID: endpointID}
		r = r.WithContext(context.WithValue(r.Context(), AuthPrincipalKey, p))

		if key == nil {
			next.ServeHTTP(w, r)
			return
		}

		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			rec := recover()
			status := ww.status
			if rec != nil {
				status = http.StatusInternalServerError
			} else if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			g.record(r, key, endpointID, ip, status, start)
			if rec != nil {
				panic(rec)
			}
		}()

		if g.limiter != nil && g.limiter.Limited(ww, r, key) {
			writeJSONError(ww, http.StatusTooManyRequests, model.ErrorResponse{Error: "Rate limit exceeded"})
			return
		}
		next.ServeHTTP(ww, r)
	})
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, id service.Identity, endpointID, ip string, err error) {
	kind := service.DenialKind(err)
	g.metrics.GateDecision(id.Kind.String(), kind)

	var denial *service.DenialError
	if errors.As(err, &denial) && !errors.Is(err, service.ErrStorageUnavailable) {
		g.logger.Warn("access denied",
			"endpoint_id", endpointID,
			"reason", denial.Reason,
			"remote_ip", ip,
			"request_id", GetRequestID(r.Context()),
		)
		writeJSONError(w, http.StatusUnauthorized, model.ErrorResponse{
			Error:   denial.Reason,
			Message: "Authentication required",
		})
		return
	}

	g.logger.Error("access gate unavailable",
		"endpoint_id", endpointID,
		"error", err,
		"request_id", GetRequestID(r.Context()),
	)
	writeJSONError(w, http.StatusServiceUnavailable, model.ErrorResponse{
		Error:   "Service temporarily unavailable",
		Message: "Authentication required",
	})
}

func (g *Guard) record(r *http.Request, key *model.APIKey, endpointID, ip string, status int, start time.Time) {
	if g.recorder == nil {
		return
	}
	size := r.ContentLength
	if size < 0 {
		size = 0
	}
	g.metrics.UsageRecorded()
	g.recorder.Record(r.Context(), model.UsageRecord{
		APIKeyID:       key.ID,
		EndpointID:     endpointID,
		Method:         r.Method,
		Path:           r.URL.Path,
		IPAddress:      ip,
		UserAgent:      r.UserAgent(),
		PayloadSize:    size,
		ResponseStatus: status,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		Timestamp:      start,
	})
}

// RequireAdmin redirects requests without a live admin session to
// loginPath.
func RequireAdmin(gate *service.Gate, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate.Resolve(r).Kind != service.IdentityAdmin {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, &Principal{Kind: service.IdentityAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ---------------------------------------------------------------------------
// Per-key rate limiting
// ---------------------------------------------------------------------------

// KeyLimiter enforces each API key's requests-per-minute limit. Keys that
// share a limit share a limiter, counting under their own id.
type KeyLimiter struct {
	mu       sync.Mutex
	window   time.Duration
	limiters map[int]*httprate.RateLimiter
}

// NewKeyLimiter returns a limiter with a one-minute window.
func NewKeyLimiter() *KeyLimiter {
	return &KeyLimiter{window: time.Minute, limiters: make(map[int]*httprate.RateLimiter)}
}

// Limited counts the request against key and reports whether it is over
// the key's limit. A limit of zero means unlimited. Rate limit headers are
// set on w either way.
func (l *KeyLimiter) Limited(w http.ResponseWriter, r *http.Request, key *model.APIKey) bool {
	if key.RateLimit <= 0 {
		return false
	}
	return l.limiterFor(key.RateLimit).OnLimit(w, r, strconv.FormatInt(key.ID, 10))
}

func (l *KeyLimiter) limiterFor(limit int) *httprate.RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl, ok := l.limiters[limit]
	if !ok {
		rl = httprate.NewRateLimiter(limit, l.window)
		l.limiters[limit] = rl
	}
	return rl
}

func writeJSONError(w http.ResponseWriter, status int, body model.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}
