package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(evicted *[]string) (*MemoryStore, *clock) {
	c := &clock{t: time.Now()}
	m := NewMemoryStore(WithEvictFunc(func(s *Session) { *evicted = append(*evicted, s.ID) }))
	m.now = c.now
	return m, c
}

func TestNew(t *testing.T) {
	s := New("7", Viewport{Width: 800, Height: 600}, 0)
	if !ValidID(s.ID) {
		t.Errorf("ID %q is not a UUID", s.ID)
	}
	if s.TTL != DefaultTTL {
		t.Errorf("TTL = %v, want %v", s.TTL, DefaultTTL)
	}
	if s.IsExpired() {
		t.Error("new session is expired")
	}
	if ValidID("not-a-uuid") {
		t.Error("ValidID(not-a-uuid) = true")
	}
}

func TestMemoryStoreGetSetDelete(t *testing.T) {
	var evicted []string
	m, _ := newTestStore(&evicted)
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	s := New("7", Viewport{Width: 1, Height: 1}, time.Minute)
	if err := m.Set(ctx, s); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Depot != "7" {
		t.Errorf("Depot = %q, want 7", got.Depot)
	}
	got.Depot = "changed"
	again, _ := m.Get(ctx, s.ID)
	if again.Depot != "7" {
		t.Error("Get() returned a shared session")
	}

	if err := m.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if len(evicted) != 1 || evicted[0] != s.ID {
		t.Errorf("evicted = %v, want [%s]", evicted, s.ID)
	}
	if err := m.Delete(ctx, s.ID); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
	if len(evicted) != 1 {
		t.Errorf("evict ran for a missing session: %v", evicted)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	var evicted []string
	m, c := newTestStore(&evicted)
	ctx := context.Background()

	short := New("7", Viewport{}, time.Minute)
	long := New("7", Viewport{}, time.Hour)
	_ = m.Set(ctx, short)
	_ = m.Set(ctx, long)

	c.t = c.t.Add(2 * time.Minute)
	if _, err := m.Get(ctx, short.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("Get(expired) error = %v, want ErrExpired", err)
	}
	if err := m.Touch(ctx, short.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("Touch(expired) error = %v, want ErrExpired", err)
	}
	list, _ := m.List(ctx)
	if len(list) != 1 || list[0].ID != long.ID {
		t.Errorf("List() = %v, want only the long session", list)
	}

	if err := m.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() after Cleanup = %d, want 1", m.Len())
	}
	if len(evicted) != 1 || evicted[0] != short.ID {
		t.Errorf("evicted = %v, want [%s]", evicted, short.ID)
	}
}

func TestTouchExtendsExpiry(t *testing.T) {
	var evicted []string
	m, c := newTestStore(&evicted)
	ctx := context.Background()
	s := New("7", Viewport{}, time.Minute)
	s.ExpiresAt = c.t.Add(time.Minute)
	_ = m.Set(ctx, s)

	c.t = c.t.Add(50 * time.Second)
	if err := m.Touch(ctx, s.ID); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	c.t = c.t.Add(50 * time.Second)
	if _, err := m.Get(ctx, s.ID); err != nil {
		t.Errorf("Get() after Touch error = %v", err)
	}
	if err := m.Touch(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Touch(missing) error = %v, want ErrNotFound", err)
	}
}
