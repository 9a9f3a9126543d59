package model

import (
	"slices"
	"time"
)

// APIKey is the principal for non-interactive callers. The raw secret is
// never stored; only its SHA-256 digest and a short preview are persisted.
type APIKey struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	KeyHash             string     `json:"-"` // SHA-256 hex digest, never expose
	KeyPreview          string     `json:"key_preview"`
	EndpointPermissions []string   `json:"endpoint_permissions"`
	RateLimit           int        `json:"rate_limit"`
	IPRestrictions      []string   `json:"ip_restrictions"`
	Description         string     `json:"description"`
	CreatedAt           time.Time  `json:"created_at"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	IsActive            bool       `json:"is_active"`
	LastUsed            *time.Time `json:"last_used,omitempty"`
	UsageCount          int64      `json:"usage_count"`
}

// DefaultRateLimit is the per-minute request budget assigned to new keys
// when the creator does not specify one.
const DefaultRateLimit = 60

// Permits reports whether endpointID is in the key's permission set.
func (k *APIKey) Permits(endpointID string) bool {
	return slices.Contains(k.EndpointPermissions, endpointID)
}

// Expired reports whether the key has an expiry that lies before now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// UsageRecord is one append-only accounting fact written after an
// API-key-authenticated request completes.
type UsageRecord struct {
	ID             int64     `json:"id" db:"id"`
	APIKeyID       int64     `json:"api_key_id" db:"api_key_id"`
	EndpointID     string    `json:"endpoint_id" db:"endpoint_id"`
	Method         string    `json:"method" db:"method"`
	Path           string    `json:"path" db:"path"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	PayloadSize    int64     `json:"payload_size" db:"payload_size"`
	ResponseStatus int       `json:"response_status" db:"response_status"`
	ResponseTimeMs int64     `json:"response_time_ms" db:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
}

// UsageStats aggregates the usage records of a single key.
type UsageStats struct {
	TotalRequests     int64
	Successful        int64
	Failed            int64
	AvgResponseTimeMs float64
	FirstUsed         *time.Time
	LastUsed          *time.Time
}

// SuccessRate returns the share of requests answered with a 2xx status, in
// percent. A key without traffic has a rate of zero.
func (s UsageStats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.TotalRequests) * 100
}
