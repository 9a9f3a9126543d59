package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shoplist/adminapi/internal/config"
	"github.com/shoplist/adminapi/internal/model"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// countingStore records every call the evaluator makes.
type countingStore struct {
	KeyStore
	mu      sync.Mutex
	lookups int
	uses    int
}

func (c *countingStore) GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	return c.KeyStore.GetAPIKeyByHash(ctx, hash)
}

func (c *countingStore) RecordAPIKeyUse(ctx context.Context, id int64, at time.Time) error {
	c.mu.Lock()
	c.uses++
	c.mu.Unlock()
	return c.KeyStore.RecordAPIKeyUse(ctx, id, at)
}

type failingStore struct{}

func (failingStore) GetAPIKeyByHash(context.Context, string) (*model.APIKey, error) {
	return nil, errors.New("database is locked")
}

func (failingStore) RecordAPIKeyUse(context.Context, int64, time.Time) error {
	return errors.New("database is locked")
}

func seedKey(t *testing.T, store *config.Store, mutate func(k *model.APIKey)) (*model.APIKey, string) {
	t.Helper()
	raw, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	key := &model.APIKey{
		Name:                "seed",
		KeyHash:             config.HashAPIKey(raw),
		KeyPreview:          KeyPreview(raw),
		EndpointPermissions: []string{"stats_get"},
		RateLimit:           model.DefaultRateLimit,
		IsActive:            true,
	}
	if mutate != nil {
		mutate(key)
	}
	if err := store.CreateAPIKey(context.Background(), key); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return key, raw
}

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestAuthorizeAllowIncrementsUsage(t *testing.T) {
	store := newTestStore(t)
	key, raw := seedKey(t, store, nil)
	ev := NewEvaluator(store, clock)

	got, err := ev.Authorize(context.Background(), raw, "stats_get", "127.0.0.1")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if got.ID != key.ID {
		t.Errorf("got key %d, want %d", got.ID, key.ID)
	}

	after, _ := store.GetAPIKey(context.Background(), key.ID)
	if after.UsageCount != 1 {
		t.Errorf("got usage count %d, want 1", after.UsageCount)
	}
	if after.LastUsed == nil || !after.LastUsed.Equal(fixedNow) {
		t.Errorf("got last used %v, want %v", after.LastUsed, fixedNow)
	}
}

func TestAuthorizeDenials(t *testing.T) {
	store := newTestStore(t)
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)

	_, active := seedKey(t, store, nil)
	_, inactive := seedKey(t, store, func(k *model.APIKey) { k.IsActive = false })
	_, expired := seedKey(t, store, func(k *model.APIKey) { k.ExpiresAt = &past })
	_, notYet := seedKey(t, store, func(k *model.APIKey) { k.ExpiresAt = &future })
	_, cidr := seedKey(t, store, func(k *model.APIKey) { k.IPRestrictions = []string{"192.168.1.0/24"} })
	_, literal := seedKey(t, store, func(k *model.APIKey) { k.IPRestrictions = []string{"10.0.0.7"} })

	tests := []struct {
		name       string
		secret     string
		endpointID string
		ip         string
		wantKind   error
		wantReason string
	}{
		{"missing", "", "stats_get", "127.0.0.1", ErrMissingCredential, "API key required"},
		{"unknown key", "ek_not_a_real_key", "stats_get", "127.0.0.1", ErrInvalidCredential, "Invalid API key"},
		{"inactive", inactive, "stats_get", "127.0.0.1", ErrDeactivatedCredential, "API key is deactivated"},
		{"expired", expired, "stats_get", "127.0.0.1", ErrExpiredCredential, "API key has expired"},
		{"endpoint not permitted", active, "users_get", "127.0.0.1", ErrEndpointNotPermitted, "Access denied to endpoint: users_get"},
		{"unknown sentinel", active, "unknown", "127.0.0.1", ErrEndpointNotPermitted, "Access denied to endpoint: unknown"},
		{"outside cidr", cidr, "stats_get", "192.168.2.1", ErrIPNotAllowed, "IP address 192.168.2.1 not allowed"},
		{"literal mismatch", literal, "stats_get", "10.0.0.8", ErrIPNotAllowed, "IP address 10.0.0.8 not allowed"},
		{"allowed inside cidr", cidr, "stats_get", "192.168.1.55", nil, ""},
		{"allowed literal", literal, "stats_get", "10.0.0.7", nil, ""},
		{"expiry in future", notYet, "stats_get", "127.0.0.1", nil, ""},
	}

	ev := NewEvaluator(store, clock)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Authorize(context.Background(), tt.secret, tt.endpointID, tt.ip)
			if tt.wantKind == nil {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("got %v, want kind %v", err, tt.wantKind)
			}
			var denial *DenialError
			if !errors.As(err, &denial) {
				t.Fatalf("expected *DenialError, got %T", err)
			}
			if denial.Reason != tt.wantReason {
				t.Errorf("got reason %q, want %q", denial.Reason, tt.wantReason)
			}
		})
	}
}

func TestAuthorizeDenialNeverMutatesKey(t *testing.T) {
	store := newTestStore(t)
	key, raw := seedKey(t, store, func(k *model.APIKey) { k.IPRestrictions = []string{"10.0.0.1"} })
	counting := &countingStore{KeyStore: store}
	ev := NewEvaluator(counting, clock)

	for i := 0; i < 5; i++ {
		if _, err := ev.Authorize(context.Background(), raw, "users_get", "10.0.0.1"); err == nil {
			t.Fatal("expected endpoint denial")
		}
		if _, err := ev.Authorize(context.Background(), raw, "stats_get", "10.9.9.9"); err == nil {
			t.Fatal("expected ip denial")
		}
		if _, err := ev.Authorize(context.Background(), "ek_wrong", "stats_get", "10.0.0.1"); err == nil {
			t.Fatal("expected invalid key denial")
		}
	}

	if counting.uses != 0 {
		t.Errorf("got %d usage updates, want 0", counting.uses)
	}
	after, _ := store.GetAPIKey(context.Background(), key.ID)
	if after.UsageCount != 0 || after.LastUsed != nil {
		t.Errorf("got usage_count=%d last_used=%v, want untouched", after.UsageCount, after.LastUsed)
	}
}

func TestAuthorizeStorageUnavailable(t *testing.T) {
	ev := NewEvaluator(failingStore{}, clock)
	_, err := ev.Authorize(context.Background(), "ek_anything", "stats_get", "127.0.0.1")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("got %v, want ErrStorageUnavailable", err)
	}
	var denial *DenialError
	if errors.As(err, &denial) && denial.Reason != "Service temporarily unavailable" {
		t.Errorf("got reason %q", denial.Reason)
	}
	if DenialKind(err) != "storage_unavailable" {
		t.Errorf("got kind %q", DenialKind(err))
	}
}

func TestIPAllowed(t *testing.T) {
	tests := []struct {
		ip      string
		allowed []string
		want    bool
	}{
		{"192.168.1.10", []string{"192.168.1.0/24"}, true},
		{"192.168.2.10", []string{"192.168.1.0/24"}, false},
		{"10.0.0.1", []string{"10.0.0.1"}, true},
		{"10.0.0.1", []string{" 10.0.0.1 "}, true},
		{"::ffff:10.0.0.1", []string{"10.0.0.0/8"}, true},
		{"2001:db8::1", []string{"2001:db8::/32"}, true},
		{"2001:db9::1", []string{"2001:db8::/32"}, false},
		{"10.0.0.1", []string{"not-an-ip", "10.0.0.0/33"}, false},
		{"unix-socket", []string{"unix-socket"}, true},
		{"10.0.0.1", nil, false},
	}
	for _, tt := range tests {
		if got := IPAllowed(tt.ip, tt.allowed); got != tt.want {
			t.Errorf("IPAllowed(%q, %v) = %v, want %v", tt.ip, tt.allowed, got, tt.want)
		}
	}
}

func TestValidateIPRestrictions(t *testing.T) {
	if err := ValidateIPRestrictions([]string{"10.0.0.1", "192.168.0.0/16", "::1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateIPRestrictions([]string{"10.0.0.300"}); err == nil {
		t.Error("expected error for bad address")
	}
	if err := ValidateIPRestrictions([]string{"10.0.0.0/40"}); err == nil {
		t.Error("expected error for bad prefix")
	}
}
