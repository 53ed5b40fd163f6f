package shared

import "errors"

var (
	// ErrUnauthenticated indicates the caller's identity could not be established.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrIdentityUnavailable indicates the identity backend could not be
	// reached. Callers should retry rather than treat the caller as anonymous.
	ErrIdentityUnavailable = errors.New("identity backend unavailable")
)
