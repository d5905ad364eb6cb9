package limiter

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/and161185/grocery-keeper/internal/errs"
)

type entry struct {
	Fails        int       `json:"fails"`
	UpdatedAt    time.Time `json:"updated_at"`
	BlockedUntil time.Time `json:"blocked_until,omitempty"`
}

// State persists counters between processes. LoadThrottle returns
// errs.ErrNotFound when nothing was saved yet.
type State interface {
	LoadThrottle(ctx context.Context) ([]byte, error)
	SaveThrottle(ctx context.Context, data []byte) error
}

// Memory is an in-process limiter with the same window semantics as PG.
// With a State attached the counters are reloaded before and saved after
// every call, so separate processes sharing the State share a lockout.
type Memory struct {
	p     Policy
	now   func() time.Time
	state State

	mu      sync.Mutex
	entries map[string]*entry
}

var _ Limiter = (*Memory)(nil)

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{p: p, now: time.Now, entries: make(map[string]*entry)}
}

// NewDurable constructs a limiter whose counters live in st.
func NewDurable(st State, p Policy) *Memory {
	m := NewMemory(p)
	m.state = st
	return m
}

func key(account string, origin []byte) string { return account + "|" + hex.EncodeToString(origin) }

// Allow reports whether a login is currently allowed.
func (m *Memory) Allow(ctx context.Context, account string, origin []byte) (bool, time.Duration, error) {
	if m.p.MaxFails <= 0 {
		return true, 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return true, 0, err
	}
	e, ok := m.entries[key(account, origin)]
	if !ok {
		return true, 0, nil
	}
	now := m.now()
	if e.BlockedUntil.After(now) {
		return false, e.BlockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success forgets the account.
func (m *Memory) Success(ctx context.Context, account string, origin []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return err
	}
	k := key(account, origin)
	if _, ok := m.entries[k]; !ok {
		return nil
	}
	delete(m.entries, k)
	return m.save(ctx)
}

// Failure counts a failed attempt. The count restarts when the previous
// failure is older than the window.
func (m *Memory) Failure(ctx context.Context, account string, origin []byte) (bool, time.Duration, error) {
	if m.p.MaxFails <= 0 {
		return false, 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return false, 0, err
	}
	now := m.now()
	k := key(account, origin)
	e, ok := m.entries[k]
	if !ok || now.Sub(e.UpdatedAt) > m.p.Window {
		e = &entry{}
		m.entries[k] = e
	}
	e.Fails++
	e.UpdatedAt = now
	blocked := e.Fails >= m.p.MaxFails
	if blocked {
		e.BlockedUntil = now.Add(m.p.BlockFor)
	}
	if err := m.save(ctx); err != nil {
		return false, 0, err
	}
	if blocked {
		return true, m.p.BlockFor, nil
	}
	return false, 0, nil
}

// load replaces the entries with the persisted ones. Undecodable state
// is treated as empty.
func (m *Memory) load(ctx context.Context) error {
	if m.state == nil {
		return nil
	}
	b, err := m.state.LoadThrottle(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		m.entries = make(map[string]*entry)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load throttle: %w", err)
	}
	entries := make(map[string]*entry)
	if err := json.Unmarshal(b, &entries); err != nil {
		entries = make(map[string]*entry)
	}
	m.entries = entries
	return nil
}

// save drops entries that no longer affect any decision and persists the rest.
func (m *Memory) save(ctx context.Context) error {
	if m.state == nil {
		return nil
	}
	now := m.now()
	for k, e := range m.entries {
		if now.Sub(e.UpdatedAt) > m.p.Window && !e.BlockedUntil.After(now) {
			delete(m.entries, k)
		}
	}
	b, err := json.Marshal(m.entries)
	if err != nil {
		return fmt.Errorf("encode throttle: %w", err)
	}
	if err := m.state.SaveThrottle(ctx, b); err != nil {
		return fmt.Errorf("save throttle: %w", err)
	}
	return nil
}
