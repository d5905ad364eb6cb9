// Package tokenexp reads the expiry of a bearer token without verifying it.
// The client never holds the signing key; expiry is only a local hint.
package tokenexp

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry returns the exp claim of a JWT. ok is false for opaque tokens and
// for JWTs without exp.
func Expiry(tok string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, false
	}
	e, err := claims.GetExpirationTime()
	if err != nil || e == nil {
		return time.Time{}, false
	}
	return e.Time, true
}

// Expired reports whether tok carries an exp at or before now.
func Expired(tok string, now time.Time) bool {
	exp, ok := Expiry(tok)
	return ok && !now.Before(exp)
}
