package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
)

// TokenKey is the preferences key holding the auth token.
const TokenKey = "auth_token"

// Store implements session.TokenStore and session.UserCache.
type Store struct{ db *DB }

// NewStore constructs a session backend over db.
func NewStore(db *DB) *Store { return &Store{db: db} }

// SaveToken upserts the token row.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	const q = `
INSERT INTO preferences (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := s.db.Pool.Exec(ctx, q, TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Token selects the token or returns errs.ErrNotFound.
func (s *Store) Token(ctx context.Context) (string, error) {
	const q = `SELECT value FROM preferences WHERE key=$1`
	var v string
	if err := s.db.Pool.QueryRow(ctx, q, TokenKey).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errs.ErrNotFound
		}
		return "", fmt.Errorf("select token: %w", err)
	}
	return v, nil
}

// ClearToken deletes the token row if present.
func (s *Store) ClearToken(ctx context.Context) error {
	const q = `DELETE FROM preferences WHERE key=$1`
	if _, err := s.db.Pool.Exec(ctx, q, TokenKey); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// PutUser replaces the cached row in one transaction.
func (s *Store) PutUser(ctx context.Context, u model.User) (err error) {
	tx, err := s.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM cached_user`); err != nil {
		return fmt.Errorf("clear cached user: %w", err)
	}
	const ins = `
INSERT INTO cached_user (id, name, email, profile_picture)
VALUES ($1, $2, $3, $4)`
	if _, err = tx.Exec(ctx, ins, u.ID, u.Name, u.Email, u.ProfilePicture); err != nil {
		return fmt.Errorf("insert cached user: %w", err)
	}
	return nil
}

// User selects the cached row or returns errs.ErrNotFound.
func (s *Store) User(ctx context.Context) (model.User, error) {
	const q = `SELECT id, name, email, profile_picture FROM cached_user LIMIT 1`
	var u model.User
	if err := s.db.Pool.QueryRow(ctx, q).Scan(&u.ID, &u.Name, &u.Email, &u.ProfilePicture); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, errs.ErrNotFound
		}
		return model.User{}, fmt.Errorf("select cached user: %w", err)
	}
	return u, nil
}

// ClearUser deletes the cached row if present.
func (s *Store) ClearUser(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM cached_user`); err != nil {
		return fmt.Errorf("delete cached user: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}
