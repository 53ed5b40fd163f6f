package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON read-through cache. Values live in Redis when a client is
// configured and reachable; otherwise they fall back to an in-process map
// with the same TTL. Redis failures are logged and never returned.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewStore builds a Store. client may be nil for a purely in-process cache.
func NewStore(client *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		local:  make(map[string]localEntry),
	}
}

// Get decodes the cached value for key into dest and reports whether it was found.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	payload, ok := s.load(ctx, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.Delete(ctx, key)
		return false, err
	}
	return true, nil
}

// Set stores value under key for the store TTL.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store(ctx, key, payload)
	return nil
}

// Delete removes the given keys from both tiers.
func (s *Store) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	s.mu.Lock()
	for _, key := range keys {
		delete(s.local, key)
	}
	s.mu.Unlock()
	if s.client == nil {
		return
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.key(key)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		s.warn("cache delete", err)
	}
}

// Fetch loads key into dest, calling loader and caching its result on a miss.
func (s *Store) Fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("platform/cache: loader required")
	}
	if ok, err := s.Get(ctx, key, dest); err == nil && ok {
		return nil
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store(ctx, key, payload)
	return json.Unmarshal(payload, dest)
}

func (s *Store) load(ctx context.Context, key string) ([]byte, bool) {
	if s.client != nil {
		payload, err := s.client.Get(ctx, s.key(key)).Bytes()
		switch {
		case err == nil:
			return payload, true
		case errors.Is(err, redis.Nil):
			return nil, false
		default:
			s.warn("cache get", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.local[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.payload, true
}

func (s *Store) store(ctx context.Context, key string, payload []byte) {
	if s.client != nil {
		err := s.client.Set(ctx, s.key(key), payload, s.ttl).Err()
		if err == nil {
			return
		}
		s.warn("cache set", err)
	}
	s.mu.Lock()
	s.local[key] = localEntry{payload: payload, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *Store) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
