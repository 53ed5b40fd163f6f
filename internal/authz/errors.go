package authz

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/assetdesk/internal/shared"
)

// Kind classifies authorization failures so callers can map them to responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindAccountInactiveOrMissing
	KindForbidden
	KindTransientStoreUnavailable
	KindStoreError
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAccountInactiveOrMissing:
		return "account_inactive_or_missing"
	case KindForbidden:
		return "forbidden"
	case KindTransientStoreUnavailable:
		return "transient_store_unavailable"
	case KindStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against *Error values of the same kind.
var (
	ErrAccountInactiveOrMissing  = errors.New("authz: account inactive or missing")
	ErrForbidden                 = errors.New("authz: forbidden")
	ErrTransientStoreUnavailable = errors.New("authz: permission store temporarily unavailable")
	ErrStoreError                = errors.New("authz: permission store error")
)

// Error is a classified authorization failure.
type Error struct {
	Kind Kind
	// Capability is set for KindForbidden when a specific flag was required.
	Capability *Capability
	// Admin marks a KindForbidden raised by RequireAdmin.
	Admin bool
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindForbidden:
		if e.Admin {
			return "authz: forbidden: admin role required"
		}
		if e.Capability != nil {
			return fmt.Sprintf("authz: forbidden: missing %s", e.Capability.String())
		}
		return ErrForbidden.Error()
	case KindAccountInactiveOrMissing:
		return ErrAccountInactiveOrMissing.Error()
	case KindTransientStoreUnavailable, KindStoreError:
		if e.Err != nil {
			return sentinelFor(e.Kind).Error() + ": " + e.Err.Error()
		}
		return sentinelFor(e.Kind).Error()
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "authz: unknown error"
	}
}

// Unwrap exposes the underlying store error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	sentinel := sentinelFor(e.Kind)
	return sentinel != nil && target == sentinel
}

func sentinelFor(k Kind) error {
	switch k {
	case KindAccountInactiveOrMissing:
		return ErrAccountInactiveOrMissing
	case KindForbidden:
		return ErrForbidden
	case KindTransientStoreUnavailable:
		return ErrTransientStoreUnavailable
	case KindStoreError:
		return ErrStoreError
	default:
		return nil
	}
}

// KindOf reports the classification of err. Identity failures from the
// auth collaborator report KindUnauthenticated.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var authzErr *Error
	if errors.As(err, &authzErr) {
		return authzErr.Kind
	}
	if errors.Is(err, shared.ErrUnauthenticated) {
		return KindUnauthenticated
	}
	return KindUnknown
}

func forbidden(c Capability) *Error {
	return &Error{Kind: KindForbidden, Capability: &c}
}
