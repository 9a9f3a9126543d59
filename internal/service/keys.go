package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shoplist/adminapi/internal/catalog"
	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
)

// APIKeyPrefix starts every generated key.
const APIKeyPrefix = "ek_"

// ErrInvalidKeyRequest wraps every validation failure of NewKeyRequest.
var ErrInvalidKeyRequest = errors.New("invalid api key request")

// GenerateAPIKey returns a new random key: the prefix followed by the
// URL-safe base64 encoding of 32 random bytes.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return APIKeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// KeyPreview returns the displayable form of a key: its first 8 and last 4
// characters.
func KeyPreview(raw string) string {
	if len(raw) <= 12 {
		return raw
	}
	return raw[:8] + "..." + raw[len(raw)-4:]
}

// NewKeyRequest describes an API key to create.
type NewKeyRequest struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	EndpointPermissions []string `json:"endpoint_permissions"`
	RateLimit           *int     `json:"rate_limit"`
	IPRestrictions      []string `json:"ip_restrictions"`
	ExpiresDays         int      `json:"expires_days"`
}

// Validate checks the request and returns an error wrapping
// ErrInvalidKeyRequest on failure.
func (req *NewKeyRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidKeyRequest)
	}
	if err := catalog.Validate(trimAll(req.EndpointPermissions)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKeyRequest, err)
	}
	if err := ValidateIPRestrictions(trimAll(req.IPRestrictions)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKeyRequest, err)
	}
	if req.RateLimit != nil && *req.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidKeyRequest)
	}
	if req.ExpiresDays < 0 {
		return fmt.Errorf("%w: expires_days must not be negative", ErrInvalidKeyRequest)
	}
	return nil
}

// KeyCreator is what CreateAPIKey needs from the config store.
type KeyCreator interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
}

// CreateAPIKey validates req, generates a secret and stores the key. The
// returned secret is the only copy; the store keeps its digest.
func CreateAPIKey(ctx context.Context, store KeyCreator, req NewKeyRequest, now time.Time) (*model.APIKey, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	raw, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	rateLimit := model.DefaultRateLimit
	if req.RateLimit != nil {
		rateLimit = *req.RateLimit
	}

	key := &model.APIKey{
		Name:                strings.TrimSpace(req.Name),
		KeyHash:             config.HashAPIKey(raw),
		KeyPreview:          KeyPreview(raw),
		EndpointPermissions: trimAll(req.EndpointPermissions),
		RateLimit:           rateLimit,
		IPRestrictions:      trimAll(req.IPRestrictions),
		Description:         req.Description,
		IsActive:            true,
	}
	if req.ExpiresDays > 0 {
		exp := now.Add(time.Duration(req.ExpiresDays) * 24 * time.Hour).UTC()
		key.ExpiresAt = &exp
	}

	if err := store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", err
	}
	return key, raw, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
