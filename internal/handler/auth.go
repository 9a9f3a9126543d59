package handler

import (
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/shoplist/adminapi/internal/service"
)

// AuthHandler serves the admin login flow and the embedded admin pages.
// Admin sessions live server side; the browser only holds the opaque
// session token in a cookie.
type AuthHandler struct {
	sessions   *service.Sessions
	password   *service.AdminPassword
	cookieName string
	secure     bool
	pages      fs.FS
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. pages holds login.html and
// index.html; it may be nil when the UI is disabled.
func NewAuthHandler(gate *service.Gate, password *service.AdminPassword, secure bool, pages fs.FS, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		sessions:   gate.Sessions(),
		password:   password,
		cookieName: gate.CookieName(),
		secure:     secure,
		pages:      pages,
		logger:     logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// LoginPage serves the login form.
// GET /admin/login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, "login.html")
}

// Dashboard serves the admin dashboard. The route is wrapped in
// middleware.RequireAdmin.
// GET /admin
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, "index.html")
}

// Login checks the admin password and opens a session. Browsers posting
// the form are redirected to the dashboard; JSON clients get
// {"success": true}.
// POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	wantsJSON := isJSON(r)

	var password string
	if wantsJSON {
		var req loginRequest
		if err := readJSON(r, &req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		password = req.Password
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		password = r.PostForm.Get("password")
	}

	if !h.password.Verify(password) {
		h.logger.Warn("admin login failed", "remote_addr", r.RemoteAddr)
		if wantsJSON {
			writeFailure(w, http.StatusUnauthorized, "Invalid password")
			return
		}
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("create admin session", "error", err)
		if wantsJSON {
			writeFailure(w, http.StatusServiceUnavailable, "Session store unavailable")
			return
		}
		http.Error(w, "Session store unavailable", http.StatusServiceUnavailable)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessions.TTL() / time.Second),
	})
	h.logger.Info("admin logged in", "remote_addr", r.RemoteAddr)

	if wantsJSON {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// Logout destroys the session named by the cookie, clears the cookie and
// redirects to the login page.
// GET|POST /admin/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookieName); err == nil && c.Value != "" {
		if err := h.sessions.Destroy(r.Context(), c.Value); err != nil {
			h.logger.Warn("destroy admin session", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		MaxAge:   -1,
	})
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (h *AuthHandler) servePage(w http.ResponseWriter, r *http.Request, name string) {
	if h.pages == nil {
		http.Error(w, "UI not available", http.StatusNotFound)
		return
	}
	f, err := h.pages.Open(name)
	if err != nil {
		http.Error(w, "UI not available", http.StatusNotFound)
		return
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		http.Error(w, "UI not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if rs, ok := f.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, stat.ModTime(), rs)
		return
	}
	io.Copy(w, f) //nolint:errcheck
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mt, "application/json")
}
