package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type tableView struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// DatabaseInfo lists the managed tables with their row counts.
// GET /api/database/info
func (h *AdminHandler) DatabaseInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tables, err := h.store.TableCounts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to inspect database: "+err.Error())
		return
	}
	views := make([]tableView, len(tables))
	for i, t := range tables {
		views[i] = tableView{Name: t.Name, Rows: t.RowCount}
	}

	size := "Unknown"
	if n, _, err := h.store.DatabaseSize(ctx); err == nil {
		size = formatKB(n)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":   h.store.Location(),
		"driver": h.store.Driver(),
		"size":   size,
		"tables": views,
	})
}

// AnalyzeDatabase summarises size, record counts and the response status
// distribution of the usage log.
// GET /api/database/analyze
func (h *AdminHandler) AnalyzeDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tables, err := h.store.TableCounts(ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "Analysis failed: " + err.Error(),
		})
		return
	}

	var total int64
	largest := "None"
	var largestRows int64
	for _, t := range tables {
		total += t.RowCount
		if t.RowCount > largestRows {
			largestRows = t.RowCount
			largest = fmt.Sprintf("%s (%d records)", t.Name, t.RowCount)
		}
	}

	statuses, err := h.store.StatusDistribution(ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "Analysis failed: " + err.Error(),
		})
		return
	}

	size := "Unknown"
	if n, _, err := h.store.DatabaseSize(ctx); err == nil {
		size = formatKB(n)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":             true,
		"total_size":          size,
		"total_records":       total,
		"total_tables":        len(tables),
		"largest_table":       largest,
		"status_distribution": statuses,
	})
}

type dbTestResult struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	Details    *string `json:"details"`
	DurationMs int64   `json:"duration_ms"`
}

// TestDatabase runs one diagnostic against the store: connection, read,
// write or integrity. Failures are reported in the body with status 200.
// GET /api/database/test/{type}
func (h *AdminHandler) TestDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testType := chi.URLParam(r, "type")
	start := time.Now()

	var res dbTestResult
	switch testType {
	case "connection":
		if err := h.store.Ping(ctx); err != nil {
			res = failedTest("Connection failed", err)
		} else {
			res = dbTestResult{Success: true, Message: "Connection successful (" + h.store.Driver() + ")"}
		}
	case "read":
		if tables, err := h.store.TableCounts(ctx); err != nil {
			res = failedTest("Read failed", err)
		} else {
			res = dbTestResult{Success: true, Message: fmt.Sprintf("Read %d tables successfully", len(tables))}
		}
	case "write":
		if err := h.store.ProbeWrite(ctx); err != nil {
			res = failedTest("Write failed", err)
		} else {
			res = dbTestResult{Success: true, Message: "Write test successful (rolled back)"}
		}
	case "integrity":
		result, err := h.store.IntegrityCheck(ctx)
		if err != nil {
			res = failedTest("Integrity check failed", err)
			break
		}
		res = dbTestResult{Success: result == "ok", Message: "Integrity check: " + result}
		if !res.Success {
			res.Details = &result
		}
	default:
		res = dbTestResult{Message: "Unknown test type: " + testType}
	}

	res.DurationMs = time.Since(start).Milliseconds()
	writeJSON(w, http.StatusOK, res)
}

func failedTest(msg string, err error) dbTestResult {
	detail := err.Error()
	return dbTestResult{Message: msg + ": " + detail, Details: &detail}
}
