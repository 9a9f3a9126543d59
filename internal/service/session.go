package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an admin session stays valid after login.
const DefaultSessionTTL = 24 * time.Hour

// ErrSessionNotFound is returned by a SessionStore for an unknown token.
var ErrSessionNotFound = errors.New("session not found")

// Session is an authenticated admin login.
type Session struct {
	Token      string    `json:"token"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// SessionStore holds admin sessions by token. Implementations must be safe
// for concurrent use.
type SessionStore interface {
	Get(ctx context.Context, token string) (*Session, error)
	// Put stores s. The entry may be dropped once ttl has elapsed.
	Put(ctx context.Context, s *Session, ttl time.Duration) error
	// Touch checks and refreshes token in one step. A session at least ttl
	// old at now is deleted and reported invalid; a live one gets its
	// LastAccess set to now. Touch never recreates a deleted session.
	Touch(ctx context.Context, token string, now time.Time, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, token string) error
	// Sweep removes sessions created before cutoff and returns how many
	// were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// ---------------------------------------------------------------------------
// Session manager
// ---------------------------------------------------------------------------

// Sessions issues, validates and revokes admin sessions on top of a
// SessionStore. Expiry is checked against the injected clock on every
// lookup; Run additionally sweeps stale entries.
type Sessions struct {
	store  SessionStore
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSessions returns a session manager. A zero ttl uses DefaultSessionTTL
// and a nil now uses time.Now.
func NewSessions(store SessionStore, ttl time.Duration, now func() time.Time, logger *slog.Logger) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{store: store, ttl: ttl, now: now, logger: logger}
}

// TTL returns the session lifetime.
func (m *Sessions) TTL() time.Duration { return m.ttl }

// Create issues a new session.
func (m *Sessions) Create(ctx context.Context) (*Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Session{Token: token, CreatedAt: now, LastAccess: now}
	if err := m.store.Put(ctx, s, m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// Validate reports whether token names a live session. A live session has
// its last-access time refreshed; an expired one is deleted.
func (m *Sessions) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := m.store.Touch(ctx, token, m.now(), m.ttl)
	if err != nil {
		m.logger.Warn("session check failed", "error", err)
		return false
	}
	return ok
}

// Destroy removes a session. Unknown tokens are ignored.
func (m *Sessions) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := m.store.Delete(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// Sweep removes every session older than the TTL.
func (m *Sessions) Sweep(ctx context.Context) (int, error) {
	return m.store.Sweep(ctx, m.now().Add(-m.ttl))
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (m *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.logger.Debug("swept expired sessions", "count", n)
			}
		}
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

// MemorySessionStore keeps sessions in process memory. Sessions do not
// survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

// NewMemorySessionStore returns an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (m *MemorySessionStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessionStore) Put(_ context.Context, s *Session, _ time.Duration) error {
	m.mu.Lock()
	m.sessions[s.Token] = *s
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Touch(_ context.Context, token string, now time.Time, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return false, nil
	}
	if now.Sub(s.CreatedAt) >= ttl {
		delete(m.sessions, token)
		return false, nil
	}
	s.LastAccess = now
	m.sessions[token] = s
	return true, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for token, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
