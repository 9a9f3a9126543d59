package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shoplist/adminapi/internal/model"
)

const usageColumns = `id, api_key_id, endpoint_id, method, path, ip_address, user_agent,
	payload_size, response_status, response_time_ms, timestamp`

// InsertUsageRecord appends one usage record. The ID is populated after
// insert; a zero Timestamp is set to now.
func (s *Store) InsertUsageRecord(ctx context.Context, rec *model.UsageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Timestamp = rec.Timestamp.UTC()

	const q = `INSERT INTO api_key_usage_logs
		(api_key_id, endpoint_id, method, path, ip_address, user_agent,
		 payload_size, response_status, response_time_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := s.insertID(ctx, q,
		rec.APIKeyID, rec.EndpointID, rec.Method, rec.Path, rec.IPAddress, rec.UserAgent,
		rec.PayloadSize, rec.ResponseStatus, rec.ResponseTimeMs, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	rec.ID = id
	return nil
}

// ListUsageRecords returns one page of a key's usage records, newest first.
func (s *Store) ListUsageRecords(ctx context.Context, keyID int64, limit, offset int) ([]model.UsageRecord, error) {
	recs := []model.UsageRecord{}
	q := s.db.Rebind("SELECT " + usageColumns + ` FROM api_key_usage_logs
		WHERE api_key_id = ? ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &recs, q, keyID, limit, offset); err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}
	return recs, nil
}

// RecentUsageRecords returns the latest usage records across all keys.
func (s *Store) RecentUsageRecords(ctx context.Context, limit int) ([]model.UsageRecord, error) {
	recs := []model.UsageRecord{}
	q := s.db.Rebind("SELECT " + usageColumns + ` FROM api_key_usage_logs
		ORDER BY timestamp DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &recs, q, limit); err != nil {
		return nil, fmt.Errorf("list recent usage records: %w", err)
	}
	return recs, nil
}

// KeyUsageStats aggregates the usage records of one key.
func (s *Store) KeyUsageStats(ctx context.Context, keyID int64) (model.UsageStats, error) {
	var agg struct {
		Total      int64           `db:"total"`
		Successful sql.NullInt64   `db:"successful"`
		AvgMs      sql.NullFloat64 `db:"avg_ms"`
	}
	q := s.db.Rebind(`SELECT COUNT(*) AS total,
		SUM(CASE WHEN response_status >= 200 AND response_status < 300 THEN 1 ELSE 0 END) AS successful,
		AVG(response_time_ms) AS avg_ms
		FROM api_key_usage_logs WHERE api_key_id = ?`)
	if err := s.db.GetContext(ctx, &agg, q, keyID); err != nil {
		return model.UsageStats{}, fmt.Errorf("aggregate usage: %w", err)
	}

	stats := model.UsageStats{
		TotalRequests:     agg.Total,
		Successful:        agg.Successful.Int64,
		Failed:            agg.Total - agg.Successful.Int64,
		AvgResponseTimeMs: agg.AvgMs.Float64,
	}
	if agg.Total == 0 {
		return stats, nil
	}

	// Selected as plain columns so every driver scans them as timestamps.
	first, err := s.usageTimestamp(ctx, keyID, "ASC")
	if err != nil {
		return model.UsageStats{}, err
	}
	last, err := s.usageTimestamp(ctx, keyID, "DESC")
	if err != nil {
		return model.UsageStats{}, err
	}
	stats.FirstUsed, stats.LastUsed = first, last
	return stats, nil
}

func (s *Store) usageTimestamp(ctx context.Context, keyID int64, order string) (*time.Time, error) {
	var ts time.Time
	q := s.db.Rebind(`SELECT timestamp FROM api_key_usage_logs WHERE api_key_id = ?
		ORDER BY timestamp ` + order + ` LIMIT 1`)
	if err := s.db.GetContext(ctx, &ts, q, keyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("usage timestamp: %w", err)
	}
	return &ts, nil
}

// CountUsageRecords returns the number of usage records of a key.
func (s *Store) CountUsageRecords(ctx context.Context, keyID int64) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM api_key_usage_logs WHERE api_key_id = ?"), keyID); err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}
	return n, nil
}

// RequestTotals summarises the usage log across all keys.
type RequestTotals struct {
	Total  int64 `db:"total"`
	Since  int64 `db:"since"`
	Errors int64 `db:"errors"`
}

// UsageTotals counts all usage records, those at or after since, and those
// answered with a status of 400 or above.
func (s *Store) UsageTotals(ctx context.Context, since time.Time) (RequestTotals, error) {
	var row struct {
		Total  int64         `db:"total"`
		Since  sql.NullInt64 `db:"since"`
		Errors sql.NullInt64 `db:"errors"`
	}
	q := s.db.Rebind(`SELECT COUNT(*) AS total,
		SUM(CASE WHEN timestamp >= ? THEN 1 ELSE 0 END) AS since,
		SUM(CASE WHEN response_status >= 400 THEN 1 ELSE 0 END) AS errors
		FROM api_key_usage_logs`)
	if err := s.db.GetContext(ctx, &row, q, since.UTC()); err != nil {
		return RequestTotals{}, fmt.Errorf("usage totals: %w", err)
	}
	return RequestTotals{Total: row.Total, Since: row.Since.Int64, Errors: row.Errors.Int64}, nil
}

// EndpointRequestCounts returns the number of usage records per endpoint id.
func (s *Store) EndpointRequestCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EndpointID string `db:"endpoint_id"`
		N          int64  `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT endpoint_id, COUNT(*) AS n FROM api_key_usage_logs GROUP BY endpoint_id"); err != nil {
		return nil, fmt.Errorf("endpoint request counts: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.EndpointID] = r.N
	}
	return out, nil
}

// StatusDistribution returns the number of usage records per response status.
func (s *Store) StatusDistribution(ctx context.Context) (map[int]int64, error) {
	var rows []struct {
		Status int   `db:"response_status"`
		N      int64 `db:"n"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT response_status, COUNT(*) AS n FROM api_key_usage_logs GROUP BY response_status"); err != nil {
		return nil, fmt.Errorf("status distribution: %w", err)
	}
	out := make(map[int]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
