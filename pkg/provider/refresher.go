package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/observability"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Refresher fetches a depot's layout, builds a complete scene graph and
// publishes it to a [scene.Store].
//
// Every completed fetch is published, in the order responses arrive: when
// two fetches race, the response received last wins, even if it belongs to
// the older request. Such stale responses are logged at debug level and
// reported through the fetch hooks.
//
// A failed fetch publishes an empty graph and returns a FETCH_ERROR; the
// viewer keeps running on the empty scene.
type Refresher struct {
	provider Provider
	store    *scene.Store
	depot    string
	grid     scene.GridConfig
	logger   *log.Logger

	seq atomic.Uint64

	mu       sync.Mutex
	applied  uint64
	fillRate float64
	lastErr  error
	fetched  time.Time
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithGrid sets the grid the graphs are built on. Defaults to the grid of
// the store's current graph.
func WithGrid(g scene.GridConfig) RefresherOption {
	return func(r *Refresher) { r.grid = g }
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) RefresherOption {
	return func(r *Refresher) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRefresher returns a refresher publishing depot's layout to store.
// It returns a CONFIG_ERROR for an invalid grid.
func NewRefresher(p Provider, store *scene.Store, depot string, opts ...RefresherOption) (*Refresher, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return nil, err
	}
	r := &Refresher{
		provider: p,
		store:    store,
		depot:    depot,
		grid:     store.Current().Grid,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.grid.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Depot returns the depot this refresher serves.
func (r *Refresher) Depot() string { return r.depot }

// Store returns the store graphs are published to.
func (r *Refresher) Store() *scene.Store { return r.store }

// FillRate returns the fill rate reported by the last published fetch.
func (r *Refresher) FillRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fillRate
}

// LastError returns the error of the last published fetch, or nil.
func (r *Refresher) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// FetchedAt returns when the last successful fetch completed.
func (r *Refresher) FetchedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetched
}

// Refresh performs one fetch-build-swap cycle and returns the published
// graph. It is safe to call concurrently.
func (r *Refresher) Refresh(ctx context.Context) (*scene.Graph, error) {
	seq := r.seq.Add(1)
	hooks := observability.Fetch()
	hooks.OnFetchStart(ctx, r.depot, seq)

	start := time.Now()
	layout, err := r.provider.Layout(ctx, r.depot)
	hooks.OnFetchComplete(ctx, r.depot, seq, len(layout.Records), time.Since(start), err)

	var g *scene.Graph
	if err != nil {
		if !errors.Is(err, errors.ErrCodeFetch) {
			err = errors.Wrap(errors.ErrCodeFetch, err, "layout for depot %s", r.depot)
		}
		r.logger.Error("fetch failed, showing empty scene", "depot", r.depot, "seq", seq, "err", err)
		g = scene.Empty(r.grid)
		layout = Layout{Depot: r.depot}
	} else {
		var berr error
		g, berr = scene.Build(layout.Records, r.grid,
			scene.WithContext(ctx),
			scene.WithSkipHandler(func(s scene.SkippedRecord) {
				r.logger.Warn("skipped record", "depot", r.depot, "id", s.ID, "index", s.Index, "err", s.Err)
			}),
		)
		if berr != nil {
			return nil, berr
		}
		if len(layout.Records) == 0 {
			r.logger.Warn("provider returned no records", "depot", r.depot, "seq", seq)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq < r.applied {
		r.logger.Debug("stale response published", "depot", r.depot, "seq", seq, "latest", r.applied)
		hooks.OnStaleResponse(ctx, r.depot, seq, r.applied)
	} else {
		r.applied = seq
	}
	version := r.store.Swap(g)
	observability.Scene().OnSwap(ctx, r.depot, version)

	r.fillRate = layout.FillRate
	r.lastErr = err
	if err == nil {
		r.fetched = time.Now()
	}
	r.logger.Info("published scene", "depot", r.depot, "version", version,
		"boxes", g.Len(), "skipped", len(g.Skipped))
	return g, err
}

// Watch refreshes immediately and then every interval until ctx ends.
// Fetch errors are logged and do not stop the watch.
func (r *Refresher) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "refresh interval must be positive, got %s", interval)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		_, _ = r.Refresh(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
