// Package session owns the persisted auth token and the cached current user.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

// TokenStore persists one opaque token under a fixed key.
// Token returns errs.ErrNotFound when nothing is stored; ClearToken is idempotent.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	Token(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}

// UserCache persists a single user record; PutUser replaces any prior one.
// User returns errs.ErrNotFound when empty; ClearUser is idempotent.
type UserCache interface {
	PutUser(ctx context.Context, u model.User) error
	User(ctx context.Context) (model.User, error)
	ClearUser(ctx context.Context) error
}

// Backend is a durable store that provides both halves of the session.
type Backend interface {
	TokenStore
	UserCache
}

// Store is the session owner. The current user is read from durable storage
// at most once per empty in-memory slot; later reads are served from memory.
type Store struct {
	tokens TokenStore
	users  UserCache
	log    *zap.Logger

	mu     sync.RWMutex
	loaded bool
	user   model.User
	group  singleflight.Group
}

// New builds a Store over the given backends. A nil logger means no logging.
func New(tokens TokenStore, users UserCache, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{tokens: tokens, users: users, log: log}
}

// FromBackend builds a Store over a single backend.
func FromBackend(b Backend, log *zap.Logger) *Store { return New(b, b, log) }

// SaveToken unconditionally overwrites the stored token.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	if err := s.tokens.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Token returns the stored token or errs.ErrNotFound.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.tokens.Token(ctx)
}

// ClearToken removes the token; removing an absent token is not an error.
func (s *Store) ClearToken(ctx context.Context) error {
	if err := s.tokens.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// SetCurrentUser persists u and places it in the in-memory slot.
func (s *Store) SetCurrentUser(ctx context.Context, u model.User) error {
	if err := s.users.PutUser(ctx, u); err != nil {
		return fmt.Errorf("cache user: %w", err)
	}
	s.mu.Lock()
	s.user, s.loaded = u, true
	s.mu.Unlock()
	return nil
}

// CurrentUser returns the cached user, or errs.ErrNotFound when none is stored.
func (s *Store) CurrentUser(ctx context.Context) (model.User, error) {
	s.mu.RLock()
	if s.loaded {
		u := s.user
		s.mu.RUnlock()
		return u, nil
	}
	s.mu.RUnlock()

	// concurrent first readers share one durable read; it outlives any
	// single caller's cancellation
	ch := s.group.DoChan("user", func() (any, error) {
		s.mu.RLock()
		if s.loaded {
			u := s.user
			s.mu.RUnlock()
			return u, nil
		}
		s.mu.RUnlock()

		u, err := s.users.User(context.WithoutCancel(ctx))
		if err != nil {
			return model.User{}, err
		}
		s.mu.Lock()
		if !s.loaded {
			s.user, s.loaded = u, true
		} else {
			u = s.user
		}
		s.mu.Unlock()
		return u, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return model.User{}, ctx.Err()
	case res = <-ch:
	}
	v, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	return v.(model.User), nil
}

// LoggedIn reports whether both a token and a cached user are present.
// A token without a user counts as logged out.
func (s *Store) LoggedIn(ctx context.Context) (bool, error) {
	if _, err := s.tokens.Token(ctx); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read token: %w", err)
	}
	if _, err := s.CurrentUser(ctx); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.log.Info("token present without cached user, treating as logged out")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClearSession clears the token, the in-memory user and the durable user, in that order.
func (s *Store) ClearSession(ctx context.Context) error {
	if err := s.ClearToken(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.user, s.loaded = model.User{}, false
	s.mu.Unlock()
	if err := s.users.ClearUser(ctx); err != nil {
		return fmt.Errorf("clear cached user: %w", err)
	}
	return nil
}

// Close releases backends that hold resources. A backend shared by both
// halves is closed once.
func (s *Store) Close() error {
	var errList []error
	if c, ok := s.tokens.(io.Closer); ok {
		errList = append(errList, c.Close())
	}
	if c, ok := s.users.(io.Closer); ok && any(s.users) != any(s.tokens) {
		errList = append(errList, c.Close())
	}
	return errors.Join(errList...)
}
