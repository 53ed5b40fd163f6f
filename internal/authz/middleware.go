package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/assetdesk/internal/platform/httpx"
	"github.com/odyssey-erp/assetdesk/internal/shared"
)

type recordContextKey struct{}

// ContextWithRecord stores the caller's permission record in context.
func ContextWithRecord(ctx context.Context, rec PermissionRecord) context.Context {
	return context.WithValue(ctx, recordContextKey{}, rec)
}

// RecordFromContext returns the record placed by the gate middleware.
func RecordFromContext(ctx context.Context) (PermissionRecord, bool) {
	rec, ok := ctx.Value(recordContextKey{}).(PermissionRecord)
	return rec, ok
}

// Middleware wires the authorization gate into HTTP handlers.
type Middleware struct {
	Service    *Service
	Identities shared.IdentityResolver
	Logger     *slog.Logger
}

// RequireActive admits any caller with an active permission record.
func (m Middleware) RequireActive() func(http.Handler) http.Handler {
	return m.gate(func(ctx context.Context, id shared.Identity) (Allowed, error) {
		rec, err := m.Service.GetUserPermissions(ctx, id)
		if err != nil {
			return Allowed{}, err
		}
		return Allowed{record: rec}, nil
	})
}

// RequireCapability admits callers holding c, or admins.
func (m Middleware) RequireCapability(c Capability) func(http.Handler) http.Handler {
	return m.gate(func(ctx context.Context, id shared.Identity) (Allowed, error) {
		return m.Service.RequireCapability(ctx, id, c)
	})
}

// RequireAdmin admits callers whose role is admin.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.gate(m.Service.RequireAdmin)
}

func (m Middleware) gate(check func(context.Context, shared.Identity) (Allowed, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, err := m.identity(ctx, r)
			if err != nil {
				m.deny(w, r, err)
				return
			}
			allowed, err := check(ctx, id)
			if err != nil {
				m.deny(w, r, err)
				return
			}
			ctx = shared.ContextWithIdentity(ctx, id)
			ctx = ContextWithRecord(ctx, allowed.Record())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) identity(ctx context.Context, r *http.Request) (shared.Identity, error) {
	if id, ok := shared.IdentityFromContext(ctx); ok {
		return id, nil
	}
	if m.Identities == nil {
		return shared.Identity{}, shared.ErrUnauthenticated
	}
	return m.Identities.Resolve(ctx, r)
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	if m.Logger != nil {
		level := slog.LevelInfo
		if kind == KindStoreError || kind == KindUnknown {
			level = slog.LevelError
		}
		m.Logger.Log(r.Context(), level, "authz denied",
			slog.String("path", r.URL.Path),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
	}
	httpx.RespondError(w, HTTPError(err))
}

// HTTPError converts an authorization failure into the httpx sentinel
// matching its response status.
func HTTPError(err error) error {
	switch KindOf(err) {
	case KindUnauthenticated:
		return fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	case KindForbidden:
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, err.Error())
	case KindAccountInactiveOrMissing:
		return fmt.Errorf("%w: account inactive or missing", httpx.ErrForbidden)
	case KindTransientStoreUnavailable:
		return httpx.ErrUnavailable
	default:
		if errors.Is(err, shared.ErrIdentityUnavailable) {
			return httpx.ErrUnavailable
		}
		return err
	}
}
