package config

import (
	"context"
	"fmt"
	"os"
	"time"
)

// ManagedTables lists the tables this store creates, in migration order.
var ManagedTables = []string{
	"api_keys",
	"api_key_usage_logs",
	"endpoint_configs",
	"users",
	"categories",
	"shopping_lists",
	"articles",
}

// TableInfo describes one managed table.
type TableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// TableCounts returns the row count of every managed table.
func (s *Store) TableCounts(ctx context.Context) ([]TableInfo, error) {
	out := make([]TableInfo, 0, len(ManagedTables))
	for _, t := range ManagedTables {
		var n int64
		// Table names come from ManagedTables, never from input.
		if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+t); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		out = append(out, TableInfo{Name: t, RowCount: n})
	}
	return out, nil
}

// DatabaseSize returns the on-disk size of the database in bytes and, for
// file-backed SQLite, the file's modification time. Engines that cannot
// report a size return zero.
func (s *Store) DatabaseSize(ctx context.Context) (int64, *time.Time, error) {
	switch s.dialect.name {
	case "sqlite":
		if s.path == "" {
			var pages, pageSize int64
			if err := s.db.GetContext(ctx, &pages, "PRAGMA page_count"); err != nil {
				return 0, nil, fmt.Errorf("page count: %w", err)
			}
			if err := s.db.GetContext(ctx, &pageSize, "PRAGMA page_size"); err != nil {
				return 0, nil, fmt.Errorf("page size: %w", err)
			}
			return pages * pageSize, nil, nil
		}
		fi, err := os.Stat(s.path)
		if err != nil {
			return 0, nil, fmt.Errorf("stat database file: %w", err)
		}
		mod := fi.ModTime()
		return fi.Size(), &mod, nil
	case "postgres":
		var n int64
		err := s.db.GetContext(ctx, &n, "SELECT pg_database_size(current_database())")
		return n, nil, err
	case "mysql":
		var n int64
		err := s.db.GetContext(ctx, &n, `SELECT COALESCE(SUM(data_length + index_length), 0)
			FROM information_schema.tables WHERE table_schema = DATABASE()`)
		return n, nil, err
	}
	return 0, nil, nil
}

// ProbeWrite performs a write that leaves no trace, inside a rolled-back
// transaction. It is used by the database write test.
func (s *Store) ProbeWrite(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO endpoint_configs
		(method, path, enabled, rate_limit, auth_required, cache_ttl, configured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		"PROBE", "/__write_probe__", false, 0, false, 0, time.Now().UTC()); err != nil {
		return fmt.Errorf("probe insert: %w", err)
	}
	return nil
}

// IntegrityCheck runs the engine's consistency check and returns its
// verdict, "ok" when the database is sound. Only SQLite has one; other
// engines report "ok" once they answer a ping.
func (s *Store) IntegrityCheck(ctx context.Context) (string, error) {
	if s.dialect.name != "sqlite" {
		if err := s.db.PingContext(ctx); err != nil {
			return "", err
		}
		return "ok", nil
	}
	var result string
	if err := s.db.GetContext(ctx, &result, "PRAGMA integrity_check"); err != nil {
		return "", fmt.Errorf("integrity check: %w", err)
	}
	return result, nil
}

// Location describes where the data lives: the SQLite file path, ":memory:"
// for an in-memory store, or the driver name for server engines.
func (s *Store) Location() string {
	if s.dialect.name != "sqlite" {
		return s.dialect.name
	}
	if s.path == "" {
		return ":memory:"
	}
	return s.path
}
