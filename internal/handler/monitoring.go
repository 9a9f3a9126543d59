package handler

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"
)

// pingAttempts is the number of probes per ping request.
const pingAttempts = 3

// Prober measures connectivity to named targets. A target is either
// tcp://host:port, probed with a TCP handshake, or an http(s) URL, probed
// with a GET that counts any response as reachable.
type Prober struct {
	targets map[string]string
	timeout time.Duration
	client  *http.Client
}

// NewProber creates a prober for the public DNS resolvers plus the given
// frontend and backend URLs.
func NewProber(frontendURL, backendURL string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{
		targets: map[string]string{
			"google":     "tcp://8.8.8.8:53",
			"cloudflare": "tcp://1.1.1.1:53",
			"frontend":   frontendURL,
			"backend":    backendURL,
		},
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// SetTarget replaces the address probed for name.
func (p *Prober) SetTarget(name, addr string) {
	p.targets[name] = addr
}

// PingResult is the outcome of one probe.
type PingResult struct {
	Time   float64 `json:"time"`
	Status string  `json:"status"`
}

// Ping probes target pingAttempts times and returns the round trip of each
// attempt in milliseconds. The first failing attempt ends the run.
func (p *Prober) Ping(ctx context.Context, target string) ([]PingResult, error) {
	addr, ok := p.targets[target]
	if !ok || addr == "" {
		return nil, fmt.Errorf("unknown ping target %q", target)
	}
	results := make([]PingResult, 0, pingAttempts)
	for i := 0; i < pingAttempts; i++ {
		start := time.Now()
		if err := p.probe(ctx, addr); err != nil {
			return results, err
		}
		ms := float64(time.Since(start).Microseconds()) / 1000
		results = append(results, PingResult{Time: ms, Status: "success"})
	}
	return results, nil
}

func (p *Prober) probe(ctx context.Context, addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("parse target %q: %w", addr, err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if u.Scheme == "tcp" {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Address returns the address probed for name.
func (p *Prober) Address(name string) string {
	return p.targets[name]
}

// Ping probes one of the configured targets.
// GET /api/ping/google, /api/ping/cloudflare, /api/ping/frontend, /api/ping/backend
func (h *AdminHandler) Ping(w http.ResponseWriter, r *http.Request) {
	target := path.Base(r.URL.Path)

	results, err := h.probe.Ping(r.Context(), target)
	if err != nil {
		h.logger.Debug("ping failed", "target", target, "error", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"target":  target,
			"error":   fmt.Sprintf("%s not reachable: %v", target, err),
		})
		return
	}

	var sum float64
	for _, res := range results {
		sum += res.Time
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"target":       target,
		"results":      results,
		"average_time": sum / float64(len(results)),
	})
}

// FrontendStatus reports whether the frontend answers.
// GET /api/frontend/status
func (h *AdminHandler) FrontendStatus(w http.ResponseWriter, r *http.Request) {
	addr := h.probe.Address("frontend")
	ctx, cancel := context.WithTimeout(r.Context(), h.probe.timeout)
	defer cancel()

	if err := h.probe.probe(ctx, addr); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"status":  "offline",
			"message": "Frontend not detected at " + addr,
		})
		return
	}

	port := ""
	if u, err := url.Parse(addr); err == nil {
		port = u.Port()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  "running",
		"port":    port,
	})
}
