package service

import (
	"context"
	"net/http"

	"github.com/shoplist/adminapi/internal/model"
)

// IdentityKind classifies the credential presented with a request.
type IdentityKind int

const (
	IdentityAnonymous IdentityKind = iota
	IdentityAdmin
	IdentityAPIKey
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityAdmin:
		return "admin"
	case IdentityAPIKey:
		return "api_key"
	}
	return "anonymous"
}

// Identity is the result of credential resolution. Secret is set only for
// IdentityAPIKey.
type Identity struct {
	Kind   IdentityKind
	Secret string
}

// GateOptions names the request fields the gate reads credentials from.
type GateOptions struct {
	APIKeyHeader string // default X-API-Key
	CookieName   string // default admin_session
}

// Gate resolves credentials and authorizes API requests. An admin session
// bypasses the Evaluator entirely.
type Gate struct {
	sessions  *Sessions
	evaluator *Evaluator
	header    string
	cookie    string
}

// NewGate wires a session manager and an evaluator into a gate.
func NewGate(sessions *Sessions, evaluator *Evaluator, opts GateOptions) *Gate {
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "X-API-Key"
	}
	if opts.CookieName == "" {
		opts.CookieName = "admin_session"
	}
	return &Gate{
		sessions:  sessions,
		evaluator: evaluator,
		header:    opts.APIKeyHeader,
		cookie:    opts.CookieName,
	}
}

// Sessions returns the gate's session manager.
func (g *Gate) Sessions() *Sessions { return g.sessions }

// CookieName returns the admin session cookie name.
func (g *Gate) CookieName() string { return g.cookie }

// APIKeyHeader returns the request header carrying API keys.
func (g *Gate) APIKeyHeader() string { return g.header }

// Resolve classifies the credentials on r. A live admin session wins over
// an API key header; a request with neither is anonymous. The header
// value is taken verbatim.
func (g *Gate) Resolve(r *http.Request) Identity {
	if c, err := r.Cookie(g.cookie); err == nil && c.Value != "" {
		if g.sessions.Validate(r.Context(), c.Value) {
			return Identity{Kind: IdentityAdmin}
		}
	}
	if secret := r.Header.Get(g.header); secret != "" {
		return Identity{Kind: IdentityAPIKey, Secret: secret}
	}
	return Identity{Kind: IdentityAnonymous}
}

// Authorize decides whether id may call endpointID from callerIP. Admins
// are allowed without consulting the key store and get a nil key.
// Anonymous callers are denied with ErrMissingCredential.
func (g *Gate) Authorize(ctx context.Context, id Identity, endpointID, callerIP string) (*model.APIKey, error) {
	if id.Kind == IdentityAdmin {
		return nil, nil
	}
	return g.evaluator.Authorize(ctx, id.Secret, endpointID, callerIP)
}
