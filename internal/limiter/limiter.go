// Package limiter throttles login attempts per account and origin.
package limiter

import (
	"context"
	"crypto/sha256"
	"strings"
	"time"
)

// Limiter controls login attempts and temporary lockouts. origin is an
// opaque discriminator (a hashed client IP on the server, nil on the client).
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, account string, origin []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, account string, origin []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, account string, origin []byte) (bool, time.Duration, error)
}

// Policy is the sliding-window lockout configuration shared by implementations.
// MaxFails <= 0 disables throttling.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Account normalizes an email so "A@x.io " and "a@x.io" share a counter.
func Account(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
