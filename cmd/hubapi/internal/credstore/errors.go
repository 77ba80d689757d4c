package credstore

import "errors"

var (
	// ErrInvalidCredential means the token is malformed, expired or rejected.
	// Callers treat it like an absent credential.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrConflict is returned when an identity with the same email exists.
	ErrConflict = errors.New("identity already exists")
	// ErrNotFound is returned when the addressed identity does not exist.
	ErrNotFound = errors.New("identity not found")
	// ErrUpstream wraps transport failures and 5xx responses.
	ErrUpstream = errors.New("credential store unavailable")
	// ErrNotConfigured is returned by admin calls without a service role key.
	ErrNotConfigured = errors.New("credential store admin access not configured")
)
