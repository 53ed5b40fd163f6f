package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*SessionResolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionResolver(client, "assetdesk_session", time.Hour), mr
}

func TestSessionResolverBearerAndCookie(t *testing.T) {
	resolver, _ := newResolver(t)
	ctx := context.Background()
	id, err := resolver.Issue(ctx, Identity{UserID: "u-1", Email: "u1@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+id)
	got, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "u-1", got.UserID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: resolver.CookieName(), Value: id})
	got, err = resolver.Resolve(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "u1@example.com", got.Email)
}

func TestSessionResolverUnauthenticated(t *testing.T) {
	resolver, mr := newResolver(t)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.ErrorIs(t, err, ErrUnauthenticated)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer missing")
	_, err = resolver.Resolve(ctx, req)
	require.ErrorIs(t, err, ErrUnauthenticated)

	id, err := resolver.Issue(ctx, Identity{UserID: "u-2"})
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+id)
	_, err = resolver.Resolve(ctx, req)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionResolverRevoke(t *testing.T) {
	resolver, _ := newResolver(t)
	ctx := context.Background()
	id, err := resolver.Issue(ctx, Identity{UserID: "u-3"})
	require.NoError(t, err)
	require.NoError(t, resolver.Revoke(ctx, id))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+id)
	_, err = resolver.Resolve(ctx, req)
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = resolver.Issue(ctx, Identity{})
	require.Error(t, err)
}

func TestSessionResolverBackendDown(t *testing.T) {
	resolver, mr := newResolver(t)
	ctx := context.Background()
	id, err := resolver.Issue(ctx, Identity{UserID: "u-4"})
	require.NoError(t, err)

	mr.Close()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+id)
	_, err = resolver.Resolve(ctx, req)
	require.ErrorIs(t, err, ErrIdentityUnavailable)
	require.NotErrorIs(t, err, ErrUnauthenticated)
}
