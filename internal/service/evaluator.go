package service

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
)

// KeyStore is what the Evaluator needs from the config store.
type KeyStore interface {
	GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error)
	RecordAPIKeyUse(ctx context.Context, id int64, at time.Time) error
}

// Evaluator decides whether an API key may call an endpoint.
type Evaluator struct {
	store KeyStore
	now   func() time.Time
}

// NewEvaluator returns an Evaluator over store. A nil now uses time.Now.
func NewEvaluator(store KeyStore, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{store: store, now: now}
}

// Authorize checks secret against the stored keys for endpointID and the
// caller's IP. The checks run in a fixed order and the first failure wins.
// On success the key's usage counter and last-used time are updated in one
// statement and the key is returned as it was before the update.
func (e *Evaluator) Authorize(ctx context.Context, secret, endpointID, callerIP string) (*model.APIKey, error) {
	if secret == "" {
		return nil, deny(ErrMissingCredential, "API key required")
	}

	key, err := e.store.GetAPIKeyByHash(ctx, config.HashAPIKey(secret))
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, deny(ErrInvalidCredential, "Invalid API key")
		}
		return nil, unavailable(err)
	}

	if !key.IsActive {
		return nil, deny(ErrDeactivatedCredential, "API key is deactivated")
	}

	now := e.now()
	if key.Expired(now) {
		return nil, deny(ErrExpiredCredential, "API key has expired")
	}

	if !key.Permits(endpointID) {
		return nil, deny(ErrEndpointNotPermitted, "Access denied to endpoint: %s", endpointID)
	}

	if len(key.IPRestrictions) > 0 && !IPAllowed(callerIP, key.IPRestrictions) {
		return nil, deny(ErrIPNotAllowed, "IP address %s not allowed", callerIP)
	}

	if err := e.store.RecordAPIKeyUse(ctx, key.ID, now); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			// Deleted between lookup and update.
			return nil, deny(ErrInvalidCredential, "Invalid API key")
		}
		return nil, unavailable(err)
	}
	return key, nil
}

// IPAllowed reports whether ip equals one of the literal addresses in
// allowed or falls inside one of its CIDR ranges. Malformed entries match
// only by exact string comparison.
func IPAllowed(ip string, allowed []string) bool {
	addr, addrErr := netip.ParseAddr(ip)
	if addrErr == nil {
		addr = addr.Unmap()
	}

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if entry == ip {
			return true
		}
		if addrErr != nil {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			if prefix.Masked().Contains(addr) {
				return true
			}
			continue
		}
		if other, err := netip.ParseAddr(entry); err == nil && other.Unmap() == addr {
			return true
		}
	}
	return false
}

// ValidateIPRestrictions returns an error naming the first entry that is
// neither an IP address nor a CIDR range.
func ValidateIPRestrictions(entries []string) error {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, err := netip.ParsePrefix(entry); err != nil {
				return errors.New("invalid CIDR range: " + entry)
			}
			continue
		}
		if _, err := netip.ParseAddr(entry); err != nil {
			return errors.New("invalid IP address: " + entry)
		}
	}
	return nil
}
