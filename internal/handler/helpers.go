package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shoplist/adminapi/internal/model"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": message} envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ErrorResponse{Error: message})
}

// writeFailure writes the {"success": false, "error": message} envelope used
// by the key management endpoints.
func writeFailure(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.FailureResponse{Success: false, Error: message})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure. An empty body leaves v
// untouched.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// pathInt64 parses the named chi URL parameter as a positive integer.
func pathInt64(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// classifyDBError maps common database errors to appropriate HTTP status codes.
// Returns (httpStatus, cleanMessage).
func classifyDBError(err error, fallbackMsg string) (int, string) {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	// Unique constraint violations → 409 Conflict
	case strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry"):
		return http.StatusConflict, fallbackMsg + ": " + msg

	// NOT NULL violations → 400 Bad Request
	case strings.Contains(lower, "not null constraint") ||
		strings.Contains(lower, "null value in column") ||
		strings.Contains(lower, "column cannot be null"):
		return http.StatusBadRequest, fallbackMsg + ": " + msg

	// Foreign key violations → 400 Bad Request
	case strings.Contains(lower, "foreign key") ||
		strings.Contains(lower, "fk constraint"):
		return http.StatusBadRequest, fallbackMsg + ": " + msg

	default:
		return http.StatusInternalServerError, fallbackMsg + ": " + msg
	}
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// formatKB renders a byte count the way the dashboard shows sizes.
func formatKB(n int64) string {
	return strconv.FormatFloat(float64(n)/1024, 'f', 2, 64) + " KB"
}
