// Package crypto implements password hashing for the development API server.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 19 * 1024 // 19 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16

	scheme = "argon2id"
)

// ErrBadHash is returned for an encoded hash that cannot be parsed.
var ErrBadHash = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

func derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// HashPassword returns "argon2id$<salt>$<key>" with a fresh random salt.
func HashPassword(password string) (string, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", err
	}
	key := derive([]byte(password), salt)
	return scheme + "$" + b64.EncodeToString(salt) + "$" + b64.EncodeToString(key), nil
}

// VerifyPassword checks password against an encoded hash in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != scheme {
		return false, ErrBadHash
	}
	salt, err := b64.DecodeString(parts[1])
	if err != nil {
		return false, ErrBadHash
	}
	want, err := b64.DecodeString(parts[2])
	if err != nil {
		return false, ErrBadHash
	}
	got := derive([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
