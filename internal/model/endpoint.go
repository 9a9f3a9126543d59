package model

import "time"

// EndpointConfig holds the operator-maintained settings for one method+path
// pair. Rows are created or replaced through the configure endpoint.
type EndpointConfig struct {
	Method       string    `json:"method" db:"method"`
	Path         string    `json:"path" db:"path"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	RateLimit    int       `json:"rate_limit" db:"rate_limit"`
	AuthRequired bool      `json:"auth_required" db:"auth_required"`
	CacheTTL     int       `json:"cache_ttl" db:"cache_ttl"`
	ConfiguredAt time.Time `json:"configured_at" db:"configured_at"`
}
