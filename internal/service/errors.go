package service

import (
	"errors"
	"fmt"
)

// Denial kinds. A *DenialError unwraps to exactly one of these.
var (
	ErrMissingCredential     = errors.New("missing credential")
	ErrInvalidCredential     = errors.New("invalid credential")
	ErrDeactivatedCredential = errors.New("deactivated credential")
	ErrExpiredCredential     = errors.New("expired credential")
	ErrEndpointNotPermitted  = errors.New("endpoint not permitted")
	ErrIPNotAllowed          = errors.New("ip not allowed")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)

// ErrInvalidPassword is returned by Login for a wrong admin password.
var ErrInvalidPassword = errors.New("invalid password")

// DenialError is the terminal outcome of a failed authorization. Reason is
// the client-facing message; Cause carries the underlying store error for
// ErrStorageUnavailable and is never shown to clients.
type DenialError struct {
	Kind   error
	Reason string
	Cause  error
}

func (e *DenialError) Error() string {
	if e.Cause != nil {
		return e.Reason + ": " + e.Cause.Error()
	}
	return e.Reason
}

func (e *DenialError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func deny(kind error, format string, args ...interface{}) *DenialError {
	return &DenialError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func unavailable(cause error) *DenialError {
	return &DenialError{Kind: ErrStorageUnavailable, Reason: "Service temporarily unavailable", Cause: cause}
}

// DenialKind returns a short label for the kind of err, for metrics and
// logs. Errors that are not denials report "error".
func DenialKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid"
	case errors.Is(err, ErrDeactivatedCredential):
		return "deactivated"
	case errors.Is(err, ErrExpiredCredential):
		return "expired"
	case errors.Is(err, ErrEndpointNotPermitted):
		return "endpoint_not_permitted"
	case errors.Is(err, ErrIPNotAllowed):
		return "ip_not_allowed"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	}
	return "error"
}
