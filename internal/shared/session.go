package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionResolver resolves identities from sessions issued by the auth
// provider and mirrored into Redis. The session id travels either in a
// cookie or as a bearer token.
type SessionResolver struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

type sessionPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// NewSessionResolver constructs a SessionResolver.
func NewSessionResolver(client *redis.Client, cookieName string, ttl time.Duration) *SessionResolver {
	return &SessionResolver{client: client, cookieName: cookieName, ttl: ttl}
}

// Resolve implements IdentityResolver.
func (sr *SessionResolver) Resolve(ctx context.Context, r *http.Request) (Identity, error) {
	id := sr.sessionID(r)
	if id == "" {
		return Identity{}, ErrUnauthenticated
	}
	payload, err := sr.client.Get(ctx, sr.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("%w: session lookup: %v", ErrIdentityUnavailable, err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Identity{}, fmt.Errorf("%w: decode session: %v", ErrUnauthenticated, err)
	}
	if strings.TrimSpace(stored.UserID) == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: stored.UserID, Email: stored.Email}, nil
}

// Issue stores a new session for the identity and returns its id.
func (sr *SessionResolver) Issue(ctx context.Context, identity Identity) (string, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return "", errors.New("session: user id required")
	}
	id := uuid.NewString()
	data, err := json.Marshal(sessionPayload{UserID: identity.UserID, Email: identity.Email})
	if err != nil {
		return "", err
	}
	if err := sr.client.Set(ctx, sr.redisKey(id), data, sr.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// Revoke deletes a session.
func (sr *SessionResolver) Revoke(ctx context.Context, id string) error {
	if err := sr.client.Del(ctx, sr.redisKey(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// CookieName returns the cookie identifier used for sessions.
func (sr *SessionResolver) CookieName() string {
	return sr.cookieName
}

func (sr *SessionResolver) sessionID(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sr.cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func (sr *SessionResolver) redisKey(id string) string {
	return "session:" + id
}
