package config

import (
	"context"
	"fmt"
	"time"

	"github.com/shoplist/adminapi/internal/model"
)

// UpsertEndpointConfigs creates or replaces the configuration rows for the
// given method+path pairs in one transaction.
func (s *Store) UpsertEndpointConfigs(ctx context.Context, cfgs []model.EndpointConfig) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range cfgs {
		c := &cfgs[i]
		c.ConfiguredAt = now

		// Delete + insert is portable across the three engines, unlike
		// their individual upsert syntaxes.
		if _, err := tx.ExecContext(ctx,
			tx.Rebind("DELETE FROM endpoint_configs WHERE method = ? AND path = ?"),
			c.Method, c.Path); err != nil {
			return fmt.Errorf("replace endpoint config %s %s: %w", c.Method, c.Path, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO endpoint_configs
			(method, path, enabled, rate_limit, auth_required, cache_ttl, configured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			c.Method, c.Path, c.Enabled, c.RateLimit, c.AuthRequired, c.CacheTTL, c.ConfiguredAt); err != nil {
			return fmt.Errorf("insert endpoint config %s %s: %w", c.Method, c.Path, err)
		}
	}
	return tx.Commit()
}

// ListEndpointConfigs returns all stored endpoint configurations.
func (s *Store) ListEndpointConfigs(ctx context.Context) ([]model.EndpointConfig, error) {
	cfgs := []model.EndpointConfig{}
	if err := s.db.SelectContext(ctx, &cfgs, `SELECT method, path, enabled, rate_limit,
		auth_required, cache_ttl, configured_at FROM endpoint_configs ORDER BY path, method`); err != nil {
		return nil, fmt.Errorf("list endpoint configs: %w", err)
	}
	return cfgs, nil
}
