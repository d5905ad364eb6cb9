package limiter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/and161185/grocery-keeper/internal/errs"
)

func newClocked(p Policy) (*Memory, *time.Time) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(p)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_BlocksAtThresholdAndExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, now := newClocked(Policy{Window: time.Minute, MaxFails: 3, BlockFor: 5 * time.Minute})

	for i := 0; i < 2; i++ {
		blocked, _, err := m.Failure(ctx, "a@b.com", nil)
		if err != nil || blocked {
			t.Fatalf("failure %d: blocked=%v err=%v", i, blocked, err)
		}
	}
	blocked, dur, _ := m.Failure(ctx, "a@b.com", nil)
	if !blocked || dur != 5*time.Minute {
		t.Fatalf("third failure must block: blocked=%v dur=%v", blocked, dur)
	}

	ok, retry, _ := m.Allow(ctx, "a@b.com", nil)
	if ok || retry != 5*time.Minute {
		t.Fatalf("Allow while blocked: ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := m.Allow(ctx, "other@b.com", nil); !ok {
		t.Fatalf("other account must not be blocked")
	}
	if ok, _, _ := m.Allow(ctx, "a@b.com", HashIP("1.2.3.4")); !ok {
		t.Fatalf("other origin must not be blocked")
	}

	*now = now.Add(5*time.Minute + time.Second)
	if ok, _, _ := m.Allow(ctx, "a@b.com", nil); !ok {
		t.Fatalf("block must expire")
	}
}

func TestMemory_WindowResetsCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, now := newClocked(Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})

	_, _, _ = m.Failure(ctx, "a@b.com", nil)
	*now = now.Add(2 * time.Minute)
	if blocked, _, _ := m.Failure(ctx, "a@b.com", nil); blocked {
		t.Fatalf("stale failure must not count")
	}
}

func TestMemory_SuccessResets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newClocked(Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})

	_, _, _ = m.Failure(ctx, "a@b.com", nil)
	if err := m.Success(ctx, "a@b.com", nil); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if blocked, _, _ := m.Failure(ctx, "a@b.com", nil); blocked {
		t.Fatalf("count must restart after success")
	}
}

func TestMemory_Disabled(t *testing.T) {
	t.Parallel()
	m := NewMemory(Policy{})
	for i := 0; i < 10; i++ {
		if blocked, _, _ := m.Failure(context.Background(), "a@b.com", nil); blocked {
			t.Fatalf("disabled limiter must never block")
		}
	}
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()
	m := NewMemory(Policy{Window: time.Minute, MaxFails: 1000, BlockFor: time.Minute})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = m.Failure(context.Background(), "a@b.com", nil)
			_, _, _ = m.Allow(context.Background(), "a@b.com", nil)
		}()
	}
	wg.Wait()
	if got := m.entries[key("a@b.com", nil)].Fails; got != 50 {
		t.Fatalf("fails=%d, want 50", got)
	}
}

type memState struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

var _ State = (*memState)(nil)

func (s *memState) LoadThrottle(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *memState) SaveThrottle(_ context.Context, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), b...)
	s.saves++
	return nil
}

func TestDurable_SharedAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := Policy{Window: time.Minute, MaxFails: 2, BlockFor: 5 * time.Minute}
	st := &memState{}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	open := func() *Memory {
		m := NewDurable(st, p)
		m.now = func() time.Time { return now }
		return m
	}

	if blocked, _, err := open().Failure(ctx, "a@b.com", nil); err != nil || blocked {
		t.Fatalf("first failure: blocked=%v err=%v", blocked, err)
	}
	now = now.Add(10 * time.Second)
	if blocked, _, err := open().Failure(ctx, "a@b.com", nil); err != nil || !blocked {
		t.Fatalf("second failure in a new instance must block: blocked=%v err=%v", blocked, err)
	}
	ok, retry, err := open().Allow(ctx, "a@b.com", nil)
	if err != nil || ok || retry != 5*time.Minute {
		t.Fatalf("Allow in a fresh instance: ok=%v retry=%v err=%v", ok, retry, err)
	}

	if err := open().Success(ctx, "a@b.com", nil); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if ok, _, _ := open().Allow(ctx, "a@b.com", nil); !ok {
		t.Fatalf("Success must clear the persisted block")
	}
}

func TestDurable_PrunesStaleAndToleratesGarbage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := Policy{Window: time.Minute, MaxFails: 5, BlockFor: time.Minute}
	st := &memState{data: []byte("not json")}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewDurable(st, p)
	m.now = func() time.Time { return now }

	if ok, _, err := m.Allow(ctx, "a@b.com", nil); err != nil || !ok {
		t.Fatalf("garbage state must read as empty: ok=%v err=%v", ok, err)
	}
	if _, _, err := m.Failure(ctx, "old@b.com", nil); err != nil {
		t.Fatalf("Failure: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, _, err := m.Failure(ctx, "new@b.com", nil); err != nil {
		t.Fatalf("Failure: %v", err)
	}
	if strings.Contains(string(st.data), "old@b.com") {
		t.Fatalf("stale entry kept: %s", st.data)
	}
	if !strings.Contains(string(st.data), "new@b.com") {
		t.Fatalf("fresh entry missing: %s", st.data)
	}
}

type brokenState struct{}

func (brokenState) LoadThrottle(context.Context) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenState) SaveThrottle(context.Context, []byte) error  { return errors.New("disk gone") }

func TestDurable_StateErrorsSurface(t *testing.T) {
	t.Parallel()
	m := NewDurable(brokenState{}, Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	ok, _, err := m.Allow(context.Background(), "a@b.com", nil)
	if err == nil || !ok {
		t.Fatalf("Allow must fail open with an error: ok=%v err=%v", ok, err)
	}
	if _, _, err := m.Failure(context.Background(), "a@b.com", nil); err == nil {
		t.Fatalf("Failure must report the state error")
	}
}
