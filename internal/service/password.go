package service

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminPassword verifies the single admin password. A bcrypt hash takes
// precedence over a plaintext password when both are configured.
type AdminPassword struct {
	hash  []byte
	plain string
}

// NewAdminPassword returns a verifier for the given plaintext password and
// bcrypt hash. Either may be empty.
func NewAdminPassword(plain, hash string) *AdminPassword {
	p := &AdminPassword{plain: plain}
	if hash != "" {
		p.hash = []byte(hash)
	}
	return p
}

// Configured reports whether any admin password is set. With none set
// every login attempt fails.
func (p *AdminPassword) Configured() bool {
	return len(p.hash) > 0 || p.plain != ""
}

// Verify reports whether candidate is the admin password.
func (p *AdminPassword) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	if len(p.hash) > 0 {
		return bcrypt.CompareHashAndPassword(p.hash, []byte(candidate)) == nil
	}
	if p.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.plain), []byte(candidate)) == 1
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
