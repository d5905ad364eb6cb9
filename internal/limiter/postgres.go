package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with sliding window and lockout.
// Counters survive process restarts.
type PG struct {
	pool pgxQuerier
	p    Policy
}

var _ Limiter = (*PG)(nil)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter over any pool or connection.
func NewPG(q pgxQuerier, p Policy) *PG {
	return &PG{pool: q, p: p}
}

func nonNil(origin []byte) []byte {
	if origin == nil {
		return []byte{}
	}
	return origin
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, account string, origin []byte) (bool, time.Duration, error) {
	if l.p.MaxFails <= 0 {
		return true, 0, nil
	}
	const q = `SELECT blocked_until, updated_at FROM login_throttle WHERE account=$1 AND origin=$2`
	var blockedUntil time.Time
	var updatedAt time.Time
	err := l.pool.QueryRow(ctx, q, account, nonNil(origin)).Scan(&blockedUntil, &updatedAt)
	switch {
	case err == nil:
		if blockedUntil.After(time.Now()) {
			return false, time.Until(blockedUntil), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success removes the counters for (account, origin).
func (l *PG) Success(ctx context.Context, account string, origin []byte) error {
	const q = `DELETE FROM login_throttle WHERE account=$1 AND origin=$2`
	_, err := l.pool.Exec(ctx, q, account, nonNil(origin))
	return err
}

// Failure records a failed attempt; may set a block until a future time.
func (l *PG) Failure(ctx context.Context, account string, origin []byte) (bool, time.Duration, error) {
	if l.p.MaxFails <= 0 {
		return false, 0, nil
	}
	now := time.Now()
	origin = nonNil(origin)

	const q = `
INSERT INTO login_throttle (account, origin, fail_count, blocked_until, updated_at)
VALUES ($1,$2,1,'epoch',now())
ON CONFLICT (account, origin) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - login_throttle.updated_at > $3::interval THEN 1 ELSE login_throttle.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, account, origin, l.p.Window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails >= l.p.MaxFails {
		blockUntil := now.Add(l.p.BlockFor)
		const upd = `UPDATE login_throttle SET blocked_until=$3 WHERE account=$1 AND origin=$2`
		if _, err := l.pool.Exec(ctx, upd, account, origin, blockUntil); err != nil {
			return false, 0, err
		}
		return true, l.p.BlockFor, nil
	}
	return false, 0, nil
}
