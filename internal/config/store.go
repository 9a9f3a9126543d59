package config

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/shoplist/adminapi/internal/model"
)

// Store is the relational store behind the admin API. It persists API keys,
// their usage logs, endpoint configuration and the shopping-list data, over
// a single pooled connection set shared by all requests.
type Store struct {
	db      *sqlx.DB
	dialect dialect
	path    string // sqlite database file, empty for in-memory and server engines
}

// NewStore opens a SQLite store in dataDir. Pass empty string for in-memory.
func NewStore(dataDir string) (*Store, error) {
	return Open(DatabaseConfig{Driver: "sqlite", DataDir: dataDir})
}

// Open connects to the database described by cfg, sizes the connection
// pool and applies the schema migrations.
func Open(cfg DatabaseConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	s := &Store{dialect: d}
	var err error
	switch driver {
	case "sqlite":
		s.db, s.path, err = openSQLite(cfg)
	case "postgres":
		s.db, err = openPostgres(cfg)
	case "mysql":
		s.db, err = openMySQL(cfg)
	}
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// One writer at a time; the in-memory database also lives and dies
		// with its single connection.
		s.db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			s.db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			s.db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		s.db.SetConnMaxLifetime(Duration(cfg.ConnMaxLifetime, 5*time.Minute))
	}

	if err := s.migrate(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func openSQLite(cfg DatabaseConfig) (*sqlx.DB, string, error) {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	dsn, path := cfg.DSN, ""
	if dsn == "" {
		if cfg.DataDir == "" {
			dsn = ":memory:?" + pragmas
		} else {
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return nil, "", fmt.Errorf("create data dir: %w", err)
			}
			path = filepath.Join(cfg.DataDir, "adminapi.db")
			dsn = path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
		}
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open sqlite database: %w", err)
	}
	return db, path, nil
}

func openPostgres(cfg DatabaseConfig) (*sqlx.DB, error) {
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	db := sqlx.NewDb(stdlib.OpenDB(*connCfg), "pgx")
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

func openMySQL(cfg DatabaseConfig) (*sqlx.DB, error) {
	mc, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// DATETIME columns must scan into time.Time and be stored in UTC.
	mc.ParseTime = true
	mc.Loc = time.UTC
	// UPDATE reports matched rows, as the other engines do.
	mc.ClientFoundRows = true

	db, err := sqlx.Connect("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the configured engine name: sqlite, postgres or mysql.
func (s *Store) Driver() string {
	return s.dialect.name
}

// PoolStats returns the connection pool statistics.
func (s *Store) PoolStats() sql.DBStats {
	return s.db.Stats()
}

// insertID runs an INSERT and returns the generated id. PostgreSQL does not
// report LastInsertId, so the statement is extended with RETURNING there.
func (s *Store) insertID(ctx context.Context, q string, args ...interface{}) (int64, error) {
	if s.dialect.name == "postgres" {
		var id int64
		err := s.db.QueryRowxContext(ctx, s.db.Rebind(q+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execAffecting runs a statement and maps zero affected rows to ErrNotFound.
func (s *Store) execAffecting(ctx context.Context, op, q string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// API Key management
// ---------------------------------------------------------------------------

// apiKeyRow is a flat struct that maps 1:1 to the api_keys table. The
// permission and IP lists are stored as JSON arrays.
type apiKeyRow struct {
	ID                  int64      `db:"id"`
	Name                string     `db:"name"`
	KeyHash             string     `db:"key_hash"`
	KeyPreview          string     `db:"key_preview"`
	EndpointPermissions string     `db:"endpoint_permissions"`
	RateLimit           int        `db:"rate_limit"`
	IPRestrictions      string     `db:"ip_restrictions"`
	Description         string     `db:"description"`
	CreatedAt           time.Time  `db:"created_at"`
	ExpiresAt           *time.Time `db:"expires_at"`
	IsActive            bool       `db:"is_active"`
	LastUsed            *time.Time `db:"last_used"`
	UsageCount          int64      `db:"usage_count"`
}

const apiKeyColumns = `id, name, key_hash, key_preview, endpoint_permissions, rate_limit,
	ip_restrictions, description, created_at, expires_at, is_active, last_used, usage_count`

func (r apiKeyRow) toModel() (*model.APIKey, error) {
	perms, err := decodeList(r.EndpointPermissions)
	if err != nil {
		return nil, fmt.Errorf("decode endpoint permissions of key %d: %w", r.ID, err)
	}
	ips, err := decodeList(r.IPRestrictions)
	if err != nil {
		return nil, fmt.Errorf("decode ip restrictions of key %d: %w", r.ID, err)
	}
	return &model.APIKey{
		ID:                  r.ID,
		Name:                r.Name,
		KeyHash:             r.KeyHash,
		KeyPreview:          r.KeyPreview,
		EndpointPermissions: perms,
		RateLimit:           r.RateLimit,
		IPRestrictions:      ips,
		Description:         r.Description,
		CreatedAt:           r.CreatedAt,
		ExpiresAt:           r.ExpiresAt,
		IsActive:            r.IsActive,
		LastUsed:            r.LastUsed,
		UsageCount:          r.UsageCount,
	}, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" || s == "[]" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAPIKey inserts a new API key record. KeyHash must already be set
// (use HashAPIKey). The ID and CreatedAt fields are populated after insert.
func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	perms, err := encodeList(key.EndpointPermissions)
	if err != nil {
		return fmt.Errorf("encode endpoint permissions: %w", err)
	}
	ips, err := encodeList(key.IPRestrictions)
	if err != nil {
		return fmt.Errorf("encode ip restrictions: %w", err)
	}
	key.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO api_keys
		(name, key_hash, key_preview, endpoint_permissions, rate_limit, ip_restrictions,
		 description, created_at, expires_at, is_active, usage_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	id, err := s.insertID(ctx, q,
		key.Name, key.KeyHash, key.KeyPreview, perms, key.RateLimit, ips,
		key.Description, key.CreatedAt, key.ExpiresAt, key.IsActive)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	key.ID = id
	return nil
}

// GetAPIKey looks up an API key by ID.
func (s *Store) GetAPIKey(ctx context.Context, id int64) (*model.APIKey, error) {
	var row apiKeyRow
	q := s.db.Rebind("SELECT " + apiKeyColumns + " FROM api_keys WHERE id = ?")
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return row.toModel()
}

// GetAPIKeyByHash looks up an API key by its SHA-256 hash.
func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	var row apiKeyRow
	q := s.db.Rebind("SELECT " + apiKeyColumns + " FROM api_keys WHERE key_hash = ?")
	if err := s.db.GetContext(ctx, &row, q, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get api key by hash: %w", err)
	}
	return row.toModel()
}

// ListAPIKeys returns all API keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]model.APIKey, error) {
	var rows []apiKeyRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT "+apiKeyColumns+" FROM api_keys ORDER BY created_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	keys := make([]model.APIKey, 0, len(rows))
	for _, r := range rows {
		k, err := r.toModel()
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, nil
}

// CountAPIKeys returns the number of stored keys.
func (s *Store) CountAPIKeys(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM api_keys"); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return n, nil
}

// CountActiveAPIKeys returns the number of keys with the active flag set.
func (s *Store) CountActiveAPIKeys(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n,
		s.db.Rebind("SELECT COUNT(*) FROM api_keys WHERE is_active = ?"), true); err != nil {
		return 0, fmt.Errorf("count active api keys: %w", err)
	}
	return n, nil
}

// SetAPIKeyActive sets the active flag of a key.
func (s *Store) SetAPIKeyActive(ctx context.Context, id int64, active bool) error {
	return s.execAffecting(ctx, "set api key active",
		"UPDATE api_keys SET is_active = ? WHERE id = ?", active, id)
}

// DeleteAPIKey removes a key together with its usage logs.
func (s *Store) DeleteAPIKey(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM api_key_usage_logs WHERE api_key_id = ?"), id); err != nil {
		return fmt.Errorf("delete usage logs: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM api_keys WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete api key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// RecordAPIKeyUse increments the usage counter and sets last_used in one
// statement, relying on the engine's single-statement atomicity.
func (s *Store) RecordAPIKeyUse(ctx context.Context, id int64, at time.Time) error {
	return s.execAffecting(ctx, "record api key use",
		"UPDATE api_keys SET usage_count = usage_count + 1, last_used = ? WHERE id = ?",
		at.UTC(), id)
}

// ---------------------------------------------------------------------------
// Utility
// ---------------------------------------------------------------------------

// HashAPIKey returns the hex-encoded SHA-256 hash of a raw API key string.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
