package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/assetdesk/internal/authz"
	"github.com/odyssey-erp/assetdesk/internal/platform/cache"
	"github.com/odyssey-erp/assetdesk/internal/shared"
)

// memoryRepo backs both the users service and the authz store.
type memoryRepo struct {
	mu        sync.Mutex
	users     map[string]User
	listCalls int
	failWrite error
}

func newMemoryRepo(users ...User) *memoryRepo {
	repo := &memoryRepo{users: make(map[string]User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryRepo) ListUsers(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) GetUser(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) mutate(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite != nil {
		return r.failWrite
	}
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

func (r *memoryRepo) UpdatePermissions(ctx context.Context, id string, upd PermissionUpdate) error {
	return r.mutate(id, func(u *User) {
		if upd.Role != nil {
			u.Permissions.Role = *upd.Role
		}
		for c, on := range upd.Flags {
			u.Permissions.Capabilities = u.Permissions.Capabilities.With(c, on)
		}
	})
}

func (r *memoryRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.mutate(id, func(u *User) { u.Permissions.IsActive = active })
}

func (r *memoryRepo) Approve(ctx context.Context, id string) error {
	return r.mutate(id, func(u *User) { u.Permissions.IsApproved = true })
}

func (r *memoryRepo) DeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryRepo) PermissionsByUserID(ctx context.Context, userID string) (authz.PermissionRecord, error) {
	u, err := r.GetUser(ctx, userID)
	if err != nil {
		return authz.PermissionRecord{}, authz.ErrRecordNotFound
	}
	return u.Permissions, nil
}

func newUser(role authz.Role, caps ...authz.Capability) User {
	id := uuid.NewString()
	return User{
		ID:    id,
		Email: id[:8] + "@example.com",
		Name:  "User " + id[:4],
		Permissions: authz.PermissionRecord{
			UserID:       id,
			Role:         role,
			IsActive:     true,
			IsApproved:   true,
			Capabilities: authz.NewCapabilitySet(caps...),
		},
	}
}

func newServices(repo *memoryRepo) (*Service, *authz.Service) {
	gate := authz.NewService(repo, authz.NewPermissionCache(time.Hour), nil)
	return NewService(repo, gate, nil, nil), gate
}

func TestUpdatePermissionsInvalidatesCache(t *testing.T) {
	user := newUser(authz.RoleUser, authz.CanManageUsers)
	repo := newMemoryRepo(user)
	svc, gate := newServices(repo)
	ctx := context.Background()
	id := shared.Identity{UserID: user.ID}

	rec, err := gate.GetUserPermissions(ctx, id)
	require.NoError(t, err)
	require.True(t, rec.Capabilities.Has(authz.CanManageUsers))

	err = svc.UpdatePermissions(ctx, user.ID, PermissionUpdate{Flags: map[authz.Capability]bool{authz.CanManageUsers: false}})
	require.NoError(t, err)

	rec, err = gate.GetUserPermissions(ctx, id)
	require.NoError(t, err)
	require.False(t, rec.Capabilities.Has(authz.CanManageUsers))
}

func TestDeactivateRevokesImmediately(t *testing.T) {
	admin := newUser(authz.RoleAdmin)
	user := newUser(authz.RoleUser, authz.CanViewAssets)
	repo := newMemoryRepo(admin, user)
	svc, gate := newServices(repo)
	ctx := context.Background()

	_, err := gate.RequireCapability(ctx, shared.Identity{UserID: user.ID}, authz.CanViewAssets)
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, admin.ID, user.ID, false))
	_, err = gate.RequireCapability(ctx, shared.Identity{UserID: user.ID}, authz.CanViewAssets)
	require.ErrorIs(t, err, authz.ErrAccountInactiveOrMissing)
}

func TestDeleteUserRevokesImmediately(t *testing.T) {
	admin := newUser(authz.RoleAdmin)
	user := newUser(authz.RoleAdmin)
	repo := newMemoryRepo(admin, user)
	svc, gate := newServices(repo)
	ctx := context.Background()

	_, err := gate.RequireAdmin(ctx, shared.Identity{UserID: user.ID})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteUser(ctx, admin.ID, user.ID))
	_, err = gate.RequireAdmin(ctx, shared.Identity{UserID: user.ID})
	require.ErrorIs(t, err, authz.ErrAccountInactiveOrMissing)
}

func TestFailedWriteKeepsCache(t *testing.T) {
	user := newUser(authz.RoleUser, authz.CanCheckout)
	repo := newMemoryRepo(user)
	svc, gate := newServices(repo)
	ctx := context.Background()

	_, err := gate.GetUserPermissions(ctx, shared.Identity{UserID: user.ID})
	require.NoError(t, err)
	repo.failWrite = errors.New("write failed")

	err = svc.Approve(ctx, user.ID)
	require.Error(t, err)
	_, ok := gate.Cache().Get(user.ID)
	require.True(t, ok)
}

func TestSelfLockoutAndEmptyUpdate(t *testing.T) {
	admin := newUser(authz.RoleAdmin)
	svc, _ := newServices(newMemoryRepo(admin))
	ctx := context.Background()

	require.ErrorIs(t, svc.SetActive(ctx, admin.ID, admin.ID, false), ErrSelfLockout)
	require.NoError(t, svc.SetActive(ctx, admin.ID, admin.ID, true))
	require.ErrorIs(t, svc.DeleteUser(ctx, admin.ID, admin.ID), ErrSelfLockout)
	require.ErrorIs(t, svc.UpdatePermissions(ctx, admin.ID, PermissionUpdate{}), ErrEmptyUpdate)
	require.ErrorIs(t, svc.Approve(ctx, uuid.NewString()), ErrNotFound)
}

func TestListUsersCachedAndClearedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	lists := cache.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "assetdesk", time.Minute, nil)
	user := newUser(authz.RoleUser, authz.CanViewReports)
	repo := newMemoryRepo(user)
	gate := authz.NewService(repo, nil, nil)
	svc := NewService(repo, gate, lists, nil)
	ctx := context.Background()

	first, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.True(t, first[0].Permissions.Capabilities.Has(authz.CanViewReports))

	_, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)

	require.NoError(t, svc.Approve(ctx, user.ID))
	_, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.listCalls)
}
