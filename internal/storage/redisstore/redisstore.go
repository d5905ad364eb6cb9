// Package redisstore is a session backend on Redis. The token key expires
// together with the JWT it holds.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/tokenexp"
)

// Keys
const (
	TokenKey    = "grocery:auth_token"
	UserKey     = "grocery:cached_user"
	ThrottleKey = "grocery:login_throttle"
)

// KV is the subset of *redis.Client the store uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

var _ KV = (*redis.Client)(nil)

// Store implements session.TokenStore and session.UserCache.
type Store struct {
	kv  KV
	now func() time.Time
}

// Connect parses a redis:// URL, pings the server and returns a Store.
func Connect(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(c), nil
}

// New wraps an existing client.
func New(kv KV) *Store { return &Store{kv: kv, now: time.Now} }

// SaveToken stores the token; a JWT gets a TTL matching its exp.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	var ttl time.Duration
	if exp, ok := tokenexp.Expiry(token); ok {
		ttl = exp.Sub(s.now())
		if ttl <= 0 {
			return s.ClearToken(ctx)
		}
	}
	if err := s.kv.Set(ctx, TokenKey, token, ttl).Err(); err != nil {
		return fmt.Errorf("set token: %w", err)
	}
	return nil
}

// Token returns the token or errs.ErrNotFound.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, TokenKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errs.ErrNotFound
		}
		return "", fmt.Errorf("get token: %w", err)
	}
	return v, nil
}

// ClearToken deletes the token key.
func (s *Store) ClearToken(ctx context.Context) error {
	if err := s.kv.Del(ctx, TokenKey).Err(); err != nil {
		return fmt.Errorf("del token: %w", err)
	}
	return nil
}

// PutUser overwrites the cached user.
func (s *Store) PutUser(ctx context.Context, u model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.Set(ctx, UserKey, b, 0).Err(); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	return nil
}

// User returns the cached user or errs.ErrNotFound.
func (s *Store) User(ctx context.Context) (model.User, error) {
	b, err := s.kv.Get(ctx, UserKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	var u model.User
	if err := json.Unmarshal(b, &u); err != nil {
		return model.User{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

// ClearUser deletes the cached user key.
func (s *Store) ClearUser(ctx context.Context) error {
	if err := s.kv.Del(ctx, UserKey).Err(); err != nil {
		return fmt.Errorf("del user: %w", err)
	}
	return nil
}

// LoadThrottle implements limiter.State.
func (s *Store) LoadThrottle(ctx context.Context) ([]byte, error) {
	b, err := s.kv.Get(ctx, ThrottleKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("get throttle: %w", err)
	}
	return b, nil
}

// SaveThrottle implements limiter.State.
func (s *Store) SaveThrottle(ctx context.Context, data []byte) error {
	if err := s.kv.Set(ctx, ThrottleKey, data, 0).Err(); err != nil {
		return fmt.Errorf("set throttle: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error { return s.kv.Close() }
