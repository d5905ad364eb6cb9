package devapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func Test_bearerToken(t *testing.T) {
	t.Parallel()

	if got, err := bearerToken("Bearer abc.def.ghi"); err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}
	if got, err := bearerToken("  bearer x "); err != nil || got != "x" {
		t.Fatalf("case-insensitive: got=%q err=%v", got, err)
	}
	for _, h := range []string{"", "Basic foo", "Bearer   ", "Bearer"} {
		if _, err := bearerToken(h); err == nil {
			t.Fatalf("want error for %q", h)
		}
	}
}

func Test_signer_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := signer{key: []byte("secret"), ttl: time.Hour, now: func() time.Time { return now }}

	tok, err := s.issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := s.verify(tok)
	if err != nil || id != 7 {
		t.Fatalf("verify: id=%d err=%v", id, err)
	}

	// within leeway
	now = now.Add(time.Hour + 10*time.Second)
	if _, err := s.verify(tok); err != nil {
		t.Fatalf("leeway: %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := s.verify(tok); err == nil {
		t.Fatalf("want expired")
	}
}

func Test_signer_Rejects(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s := signer{key: []byte("secret"), ttl: time.Hour, now: time.Now}

	cases := map[string]string{
		"wrong key":    makeJWT(t, "7", []byte("other"), jwt.SigningMethodHS256, now, time.Hour),
		"wrong alg":    makeJWT(t, "7", []byte("secret"), jwt.SigningMethodHS512, now, time.Hour),
		"bad subject":  makeJWT(t, "abc", []byte("secret"), jwt.SigningMethodHS256, now, time.Hour),
		"zero subject": makeJWT(t, "0", []byte("secret"), jwt.SigningMethodHS256, now, time.Hour),
		"not yet":      makeJWT(t, "7", []byte("secret"), jwt.SigningMethodHS256, now.Add(time.Hour), time.Hour),
		"garbage":      "not.a.jwt",
	}
	for name, tok := range cases {
		if _, err := s.verify(tok); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}
