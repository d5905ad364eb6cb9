// Package filestore keeps the session in a per-user config directory:
// token.json (optionally sealed) and user.json.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/and161185/grocery-keeper/internal/crypto/sealbox"
	"github.com/and161185/grocery-keeper/internal/errs"
	"github.com/and161185/grocery-keeper/internal/model"
	"github.com/and161185/grocery-keeper/internal/tokenexp"
)

const (
	tokenFile = "token.json"
	userFile  = "user.json"
	keyFile   = "key.bin"
	saltFile  = "salt.bin"

	throttleFile = "throttle.json"

	tokenPurpose = "grocery/token"
	saltLen      = 16
)

type tokenRecord struct {
	Token  string `json:"token,omitempty"`
	Sealed []byte `json:"sealed,omitempty"`
}

// Store is a directory-backed session backend. Safe for concurrent use
// within one process.
type Store struct {
	dir string
	key        []byte // nil when sealing is off
	now        func() time.Time
	passphrase string

	mu sync.Mutex
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithPassphrase derives the sealing key from passphrase and a salt kept
// in salt.bin instead of keeping a random key in key.bin.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) { s.passphrase = passphrase }
}

// DefaultDir returns the per-user config directory for the app.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "grocery"), nil
}

// Open prepares dir. With seal set the token is encrypted with a key kept
// in key.bin, created on first use, or derived from WithPassphrase.
func Open(dir string, seal bool, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if seal {
		master, err := s.masterKey()
		if err != nil {
			return nil, err
		}
		if s.key, err = sealbox.Subkey(master, tokenPurpose); err != nil {
			return nil, fmt.Errorf("derive token key: %w", err)
		}
	}
	return s, nil
}

func (s *Store) masterKey() ([]byte, error) {
	if s.passphrase == "" {
		key, err := loadOrCreate(filepath.Join(s.dir, keyFile), sealbox.KeyLen, sealbox.NewKey)
		if err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
		return key, nil
	}
	salt, err := loadOrCreate(filepath.Join(s.dir, saltFile), saltLen, newSalt)
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	return sealbox.KeyFromPassphrase([]byte(s.passphrase), salt), nil
}

func newSalt() ([]byte, error) { return sealbox.Rand(saltLen) }

// loadOrCreate reads n bytes from path, writing gen's output on first use.
func loadOrCreate(path string, n int, gen func() ([]byte, error)) ([]byte, error) {
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(b) != n {
			return nil, fmt.Errorf("%s: bad length %d", path, len(b))
		}
		return b, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read: %w", err)
	}
	b, err = gen()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if err := writeFileAtomic(path, b); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return b, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// SaveToken implements session.TokenStore.
func (s *Store) SaveToken(_ context.Context, token string) error {
	rec := tokenRecord{Token: token}
	if s.key != nil {
		sealed, err := sealbox.Seal(s.key, []byte(token), []byte(tokenPurpose))
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		rec = tokenRecord{Sealed: sealed}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(tokenFile, rec)
}

// Token implements session.TokenStore. An expired JWT is reported as absent.
func (s *Store) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	var rec tokenRecord
	err := s.readJSON(tokenFile, &rec)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	tok := rec.Token
	if len(rec.Sealed) > 0 {
		if s.key == nil {
			return "", errors.New("token is sealed but sealing is disabled")
		}
		plain, err := sealbox.Open(s.key, rec.Sealed, []byte(tokenPurpose))
		if err != nil {
			return "", fmt.Errorf("open sealed token: %w", err)
		}
		tok = string(plain)
	}
	if tok == "" {
		return "", errs.ErrNotFound
	}
	if tokenexp.Expired(tok, s.now()) {
		return "", errs.ErrNotFound
	}
	return tok, nil
}

// ClearToken implements session.TokenStore.
func (s *Store) ClearToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(tokenFile)
}

// PutUser implements session.UserCache.
func (s *Store) PutUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(userFile, u)
}

// User implements session.UserCache.
func (s *Store) User(context.Context) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var u model.User
	if err := s.readJSON(userFile, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// ClearUser implements session.UserCache.
func (s *Store) ClearUser(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(userFile)
}

// LoadThrottle implements limiter.State.
func (s *Store) LoadThrottle(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(filepath.Join(s.dir, throttleFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", throttleFile, err)
	}
	return b, nil
}

// SaveThrottle implements limiter.State.
func (s *Store) SaveThrottle(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(filepath.Join(s.dir, throttleFile), data); err != nil {
		return fmt.Errorf("write %s: %w", throttleFile, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, name), b); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *Store) remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
