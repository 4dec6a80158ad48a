package scene

import (
	"sync"
	"sync/atomic"
)

// Store publishes the current scene graph. Writers build a complete graph
// off the render thread and publish it with [Store.Swap]; readers call
// [Store.Current] once per event and keep using that graph for the whole
// event.
type Store struct {
	current atomic.Pointer[Graph]

	mu      sync.Mutex
	version uint64
	subs    map[int]chan uint64
	nextSub int
}

// NewStore returns a store holding an empty graph on grid, at version 0.
func NewStore(grid GridConfig) *Store {
	s := &Store{subs: make(map[int]chan uint64)}
	s.current.Store(Empty(grid))
	return s
}

// Current returns the published graph. It never returns nil.
func (s *Store) Current() *Graph {
	return s.current.Load()
}

// Version returns the version of the published graph.
func (s *Store) Version() uint64 {
	return s.Current().Version
}

// Swap stamps g with the next version and publishes it. Swaps are
// serialized and versions strictly increase. Subscribers are notified
// without blocking; a slow subscriber only sees the latest version.
func (s *Store) Swap(g *Graph) uint64 {
	if g == nil {
		g = Empty(s.Current().Grid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	g.Version = s.version
	s.current.Store(g)

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.version
	}
	return s.version
}

// Subscribe returns a channel that receives the version of every swap, and
// a function that cancels the subscription.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan uint64, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
