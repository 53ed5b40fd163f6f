package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/odyssey-erp/assetdesk/internal/platform/cache"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrSelfLockout blocks admins from deactivating or deleting their own account.
	ErrSelfLockout = errors.New("users: cannot deactivate or delete your own account")
	// ErrEmptyUpdate indicates a permission update with no changes.
	ErrEmptyUpdate = errors.New("users: nothing to update")
)

const listCacheKey = "users:list"

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdatePermissions(ctx context.Context, id string, upd PermissionUpdate) error
	SetActive(ctx context.Context, id string, active bool) error
	Approve(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// Invalidator drops cached permissions for a user.
type Invalidator interface {
	Invalidate(userID string)
}

// Service handles user administration. Every successful write invalidates
// the user's cached permissions before returning.
type Service struct {
	repo        RepositoryPort
	permissions Invalidator
	lists       *cache.Store
	logger      *slog.Logger
}

// NewService builds Service instance. lists may be nil to disable list caching.
func NewService(repo RepositoryPort, permissions Invalidator, lists *cache.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, permissions: permissions, lists: lists, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if s.lists == nil {
		return s.repo.ListUsers(ctx)
	}
	var out []User
	err := s.lists.Fetch(ctx, listCacheKey, &out, func(ctx context.Context) (any, error) {
		return s.repo.ListUsers(ctx)
	})
	return out, err
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// UpdatePermissions changes role and capability flags.
func (s *Service) UpdatePermissions(ctx context.Context, id string, upd PermissionUpdate) error {
	if upd.Empty() {
		return ErrEmptyUpdate
	}
	return s.write(ctx, id, "update permissions", func() error {
		return s.repo.UpdatePermissions(ctx, id, upd)
	})
}

// SetActive activates or deactivates an account. actorID is the admin
// performing the change.
func (s *Service) SetActive(ctx context.Context, actorID, id string, active bool) error {
	if !active && actorID == id {
		return ErrSelfLockout
	}
	return s.write(ctx, id, "set active", func() error {
		return s.repo.SetActive(ctx, id, active)
	})
}

// Approve marks an account approved.
func (s *Service) Approve(ctx context.Context, id string) error {
	return s.write(ctx, id, "approve", func() error {
		return s.repo.Approve(ctx, id)
	})
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfLockout
	}
	return s.write(ctx, id, "delete", func() error {
		return s.repo.DeleteUser(ctx, id)
	})
}

func (s *Service) write(ctx context.Context, id, op string, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	if s.permissions != nil {
		s.permissions.Invalidate(id)
	}
	if s.lists != nil {
		s.lists.Delete(ctx, listCacheKey)
	}
	if s.logger != nil {
		s.logger.Info("user "+op, slog.String("user_id", id))
	}
	return nil
}
