package config

import (
	"fmt"
	"strings"
)

// dialect captures the DDL differences between the supported engines.
type dialect struct {
	name       string
	sqlxDriver string
	serial     string // auto-increment primary key column
	text       string // indexed string column
	time       string
	bool       string
}

var dialects = map[string]dialect{
	"sqlite": {
		name:       "sqlite",
		sqlxDriver: "sqlite",
		serial:     "INTEGER PRIMARY KEY AUTOINCREMENT",
		text:       "TEXT",
		time:       "DATETIME",
		bool:       "INTEGER",
	},
	"postgres": {
		name:       "postgres",
		sqlxDriver: "pgx",
		serial:     "BIGSERIAL PRIMARY KEY",
		text:       "TEXT",
		time:       "TIMESTAMPTZ",
		bool:       "BOOLEAN",
	},
	"mysql": {
		name:       "mysql",
		sqlxDriver: "mysql",
		serial:     "BIGINT AUTO_INCREMENT PRIMARY KEY",
		text:       "VARCHAR(255)",
		time:       "DATETIME(6)",
		bool:       "BOOLEAN",
	},
}

func (d dialect) migrations() []string {
	r := strings.NewReplacer(
		"{serial}", d.serial,
		"{text}", d.text,
		"{time}", d.time,
		"{bool}", d.bool,
	)
	raw := []string{
		`CREATE TABLE IF NOT EXISTS api_keys (
			id {serial},
			name {text} NOT NULL,
			key_hash {text} UNIQUE NOT NULL,
			key_preview {text} NOT NULL,
			endpoint_permissions TEXT NOT NULL,
			rate_limit INTEGER NOT NULL DEFAULT 60,
			ip_restrictions TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at {time} NOT NULL,
			expires_at {time} NULL,
			is_active {bool} NOT NULL DEFAULT TRUE,
			last_used {time} NULL,
			usage_count BIGINT NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS api_key_usage_logs (
			id {serial},
			api_key_id BIGINT NOT NULL REFERENCES api_keys(id) ON DELETE CASCADE,
			endpoint_id {text} NOT NULL,
			method {text} NOT NULL,
			path TEXT NOT NULL,
			ip_address {text} NOT NULL,
			user_agent TEXT NOT NULL,
			payload_size BIGINT NOT NULL DEFAULT 0,
			response_status INTEGER NOT NULL,
			response_time_ms BIGINT NOT NULL,
			timestamp {time} NOT NULL
		)`,

		`CREATE INDEX idx_usage_logs_key ON api_key_usage_logs(api_key_id, timestamp)`,
		`CREATE INDEX idx_usage_logs_timestamp ON api_key_usage_logs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS endpoint_configs (
			id {serial},
			method {text} NOT NULL,
			path {text} NOT NULL,
			enabled {bool} NOT NULL DEFAULT TRUE,
			rate_limit INTEGER NOT NULL DEFAULT 0,
			auth_required {bool} NOT NULL DEFAULT TRUE,
			cache_ttl INTEGER NOT NULL DEFAULT 0,
			configured_at {time} NOT NULL,
			UNIQUE(method, path)
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			uuid {text} PRIMARY KEY,
			username {text} UNIQUE NOT NULL,
			email {text} NOT NULL,
			password_hash TEXT NOT NULL,
			created_at {time} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			uuid {text} PRIMARY KEY,
			name {text} NOT NULL,
			icon {text} NOT NULL,
			created_at {time} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS shopping_lists (
			uuid {text} PRIMARY KEY,
			name {text} NOT NULL,
			user_uuid {text} NULL,
			created_at {time} NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS articles (
			uuid {text} PRIMARY KEY,
			name {text} NOT NULL,
			category_uuid {text} NULL,
			user_uuid {text} NULL,
			list_uuid {text} NULL REFERENCES shopping_lists(uuid) ON DELETE CASCADE,
			created_at {time} NOT NULL
		)`,
	}

	out := make([]string, len(raw))
	for i, m := range raw {
		out[i] = r.Replace(m)
	}
	return out
}

func (s *Store) migrate() error {
	for _, m := range s.dialect.migrations() {
		if _, err := s.db.Exec(m); err != nil {
			// CREATE INDEX has no portable IF NOT EXISTS; re-running a
			// migration against an existing schema is a no-op.
			if isAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "duplicate key name") ||
		strings.Contains(msg, "duplicate column")
}
