package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	onEvict  func(*Session)
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithEvictFunc registers a callback run, outside the store lock, for
// every session removed by Delete or Cleanup.
func WithEvictFunc(fn func(*Session)) MemoryOption {
	return func(m *MemoryStore) { m.onEvict = fn }
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{sessions: map[string]*Session{}, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Store. The returned session is a copy.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(s.ExpiresAt) {
		return nil, ErrExpired
	}
	cp := *s
	return &cp, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

// Touch implements Store.
func (m *MemoryStore) Touch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	if now.After(s.ExpiresAt) {
		return ErrExpired
	}
	s.Touch(now)
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok && m.onEvict != nil {
		m.onEvict(s)
	}
	return nil
}

// List implements Store. Sessions are ordered by creation time.
func (m *MemoryStore) List(context.Context) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Cleanup implements Store.
func (m *MemoryStore) Cleanup(context.Context) error {
	m.mu.Lock()
	now := m.now()
	var expired []*Session
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	if m.onEvict != nil {
		for _, s := range expired {
			m.onEvict(s)
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunCleanup calls Cleanup every interval until ctx ends.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = m.Cleanup(ctx)
		}
	}
}

var _ Store = (*MemoryStore)(nil)
