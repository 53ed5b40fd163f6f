package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/assetdesk/internal/platform/db"
	"github.com/odyssey-erp/assetdesk/internal/shared"
)

// Service resolves permission records through the cache and answers
// capability checks.
type Service struct {
	store  Store
	cache  *PermissionCache
	logger *slog.Logger
}

// NewService wires a Service. A nil cache gets a fresh default-TTL cache.
func NewService(store Store, cache *PermissionCache, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewPermissionCache(DefaultPermissionTTL)
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// Cache exposes the underlying permission cache.
func (s *Service) Cache() *PermissionCache {
	return s.cache
}

// Invalidate drops any cached record for userID. Administrative writes
// must call it after a successful change and before reporting success.
func (s *Service) Invalidate(userID string) {
	s.cache.Invalidate(userID)
}

// GetUserPermissions returns the authoritative record for an authenticated
// identity. Missing and inactive accounts fail closed.
func (s *Service) GetUserPermissions(ctx context.Context, identity shared.Identity) (PermissionRecord, error) {
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return PermissionRecord{}, shared.ErrUnauthenticated
	}
	if rec, ok := s.cache.Get(userID); ok {
		return rec, nil
	}

	rec, err := s.store.PermissionsByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.cache.Invalidate(userID)
			return PermissionRecord{}, &Error{Kind: KindAccountInactiveOrMissing}
		}
		if db.IsTransient(err) {
			s.log(ctx, slog.LevelWarn, "permission store unavailable", userID, err)
			return PermissionRecord{}, &Error{Kind: KindTransientStoreUnavailable, Err: err}
		}
		s.log(ctx, slog.LevelError, "permission store query", userID, err)
		return PermissionRecord{}, &Error{Kind: KindStoreError, Err: err}
	}
	if !rec.IsActive {
		s.cache.Invalidate(userID)
		return PermissionRecord{}, &Error{Kind: KindAccountInactiveOrMissing}
	}
	rec.UserID = userID
	s.cache.Put(userID, rec)
	return rec, nil
}

// RequireCapability fetches the caller's record and checks c.
func (s *Service) RequireCapability(ctx context.Context, identity shared.Identity, c Capability) (Allowed, error) {
	rec, err := s.GetUserPermissions(ctx, identity)
	if err != nil {
		return Allowed{}, err
	}
	if !HasCapability(&rec, c) {
		return Allowed{}, forbidden(c)
	}
	return Allowed{record: rec}, nil
}

// RequireAdmin fetches the caller's record and requires the admin role.
// Capability flags are not consulted.
func (s *Service) RequireAdmin(ctx context.Context, identity shared.Identity) (Allowed, error) {
	rec, err := s.GetUserPermissions(ctx, identity)
	if err != nil {
		return Allowed{}, err
	}
	if !rec.IsAdmin() {
		return Allowed{}, &Error{Kind: KindForbidden, Admin: true}
	}
	return Allowed{record: rec}, nil
}

func (s *Service) log(ctx context.Context, level slog.Level, msg, userID string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Log(ctx, level, msg, slog.String("user_id", userID), slog.Any("error", err))
}
