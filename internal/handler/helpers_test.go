package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ---------------------------------------------------------------------------
// queryInt tests
// ---------------------------------------------------------------------------

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		key        string
		defaultVal int
		want       int
	}{
		{"returns default for missing param", "/test", "limit", 25, 25},
		{"parses integer param", "/test?limit=100", "limit", 25, 100},
		{"returns default for non-integer", "/test?limit=abc", "limit", 25, 25},
		{"parses zero", "/test?page=0", "page", 10, 0},
		{"parses negative", "/test?page=-5", "page", 0, -5},
		{"returns default for empty value", "/test?limit=", "limit", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryInt(r, tt.key, tt.defaultVal)
			if got != tt.want {
				t.Errorf("queryInt(%q, %d) = %d, want %d", tt.key, tt.defaultVal, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// pathInt64 tests
// ---------------------------------------------------------------------------

func TestPathInt64(t *testing.T) {
	tests := []struct {
		value  string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/api-keys/"+tt.value, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", tt.value)
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		got, ok := pathInt64(r, "id")
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("pathInt64(%q) = (%d, %v), want (%d, %v)", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

// ---------------------------------------------------------------------------
// clampInt tests
// ---------------------------------------------------------------------------

func TestClampInt(t *testing.T) {
	tests := []struct {
		name string
		val  int
		min  int
		max  int
		want int
	}{
		{"within range", 50, 0, 100, 50},
		{"at min", 0, 0, 100, 0},
		{"at max", 100, 0, 100, 100},
		{"below min clamps to min", -5, 0, 100, 0},
		{"above max clamps to max", 500, 0, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampInt(tt.val, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("clampInt(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// classifyDBError tests
// ---------------------------------------------------------------------------

func TestClassifyDBError(t *testing.T) {
	tests := []struct {
		err  string
		want int
	}{
		{"UNIQUE constraint failed: categories.name", http.StatusConflict},
		{"duplicate key value violates unique constraint", http.StatusConflict},
		{"NOT NULL constraint failed: articles.name", http.StatusBadRequest},
		{"FOREIGN KEY constraint failed", http.StatusBadRequest},
		{"disk I/O error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, msg := classifyDBError(errors.New(tt.err), "Failed")
		if status != tt.want {
			t.Errorf("classifyDBError(%q) status = %d, want %d", tt.err, status, tt.want)
		}
		if !strings.HasPrefix(msg, "Failed: ") {
			t.Errorf("classifyDBError(%q) message = %q", tt.err, msg)
		}
	}
}

// ---------------------------------------------------------------------------
// formatKB tests
// ---------------------------------------------------------------------------

func TestFormatKB(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0.00 KB"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{4096 * 3, "12.00 KB"},
	}
	for _, tt := range tests {
		if got := formatKB(tt.n); got != tt.want {
			t.Errorf("formatKB(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// readJSON tests
// ---------------------------------------------------------------------------

func TestReadJSONEmptyBody(t *testing.T) {
	r := httptest.NewRequest("PATCH", "/", strings.NewReader(""))
	v := struct{ Name string }{Name: "unchanged"}
	if err := readJSON(r, &v); err != nil {
		t.Fatalf("readJSON: %v", err)
	}
	if v.Name != "unchanged" {
		t.Errorf("Name = %q, want unchanged", v.Name)
	}
}

func TestReadJSONMalformed(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
	var v map[string]interface{}
	if err := readJSON(r, &v); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

// ---------------------------------------------------------------------------
// writeError / writeFailure / writeJSON tests
// ---------------------------------------------------------------------------

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "Invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"error":"Invalid input"}` {
		t.Errorf("body = %s", body)
	}
}

func TestWriteFailure(t *testing.T) {
	w := httptest.NewRecorder()
	writeFailure(w, http.StatusNotFound, "API key not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"success":false,"error":"API key not found"}` {
		t.Errorf("body = %s", body)
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, `"hello":"world"`) {
		t.Errorf("expected JSON body, got: %s", body)
	}
}
