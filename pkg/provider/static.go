package provider

import (
	"context"
	"sort"
	"sync"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Static serves layouts held in memory.
type Static struct {
	mu      sync.RWMutex
	layouts map[string]Layout
}

// NewStatic returns a provider serving layouts keyed by depot ID.
func NewStatic(layouts map[string]Layout) *Static {
	s := &Static{layouts: make(map[string]Layout, len(layouts))}
	for id, l := range layouts {
		l.Depot = id
		s.layouts[id] = l
	}
	return s
}

// Put replaces the records of a depot.
func (s *Static) Put(depot string, records []scene.LocationRecord, fillRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layouts[depot] = Layout{Depot: depot, Records: records, FillRate: fillRate}
}

// Layout implements Provider.
func (s *Static) Layout(_ context.Context, depot string) (Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layouts[depot]
	if !ok {
		return Layout{}, errors.New(errors.ErrCodeNotFound, "depot %s not found", depot)
	}
	l.Records = append([]scene.LocationRecord(nil), l.Records...)
	return l, nil
}

// Stock implements Provider.
func (s *Static) Stock(ctx context.Context, depot string) (StockInfo, error) {
	l, err := s.Layout(ctx, depot)
	if err != nil {
		return StockInfo{}, err
	}
	return StockInfo{Depot: depot, Stock: TotalStock(l.Records), FillRate: l.FillRate}, nil
}

// Depots implements Provider. Depots are sorted by ID.
func (s *Static) Depots(context.Context) ([]Depot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Depot, 0, len(s.layouts))
	for id := range s.layouts {
		out = append(out, Depot{ID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ Provider = (*Static)(nil)
