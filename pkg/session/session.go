// Package session tracks viewer sessions of the HTTP server.
//
// Every browser view that connects to a depot gets a session: an ID, the
// depot it shows, its viewport and an expiry that is pushed forward on
// every pointer event. The server keeps the live viewer and render loop of
// a session next to it and tears them down when the store evicts the
// session.
//
// # Usage
//
//	store := session.NewMemoryStore(session.WithEvictFunc(func(s *session.Session) {
//	    stopView(s.ID)
//	}))
//	sess := session.New("7", session.Viewport{Width: 1280, Height: 720}, session.DefaultTTL)
//	_ = store.Set(ctx, sess)
//
//	sess, err := store.Get(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // unknown or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("session expired")
)

// Default durations.
const (
	// DefaultTTL is how long a session lives without pointer activity.
	DefaultTTL = 30 * time.Minute

	// DefaultCleanupInterval is how often expired sessions are evicted.
	DefaultCleanupInterval = time.Minute
)

// Viewport is the size of the host surface, in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Session is one connected view.
type Session struct {
	ID        string        `json:"id"`
	Depot     string        `json:"depot"`
	Viewport  Viewport      `json:"viewport"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
	LastSeen  time.Time     `json:"last_seen"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// New creates a session for depot with a random UUID.
func New(depot string, vp Viewport, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Depot:     depot,
		Viewport:  vp,
		TTL:       ttl,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch records activity and extends the expiry by the session TTL.
func (s *Session) Touch(now time.Time) {
	s.LastSeen = now
	s.ExpiresAt = now.Add(s.TTL)
}

// ValidID reports whether id looks like a session ID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. It returns ErrNotFound for unknown
	// IDs and ErrExpired for sessions past their expiry.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Touch extends the expiry of a session.
	Touch(ctx context.Context, id string) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// List returns the live sessions.
	List(ctx context.Context) ([]*Session, error)

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error
}
