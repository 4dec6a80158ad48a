package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/depotview/pkg/cache"
	"github.com/matzehuels/depotview/pkg/observability"
)

// DefaultTTL is how long cached provider responses stay valid.
const DefaultTTL = 5 * time.Minute

// Cached wraps a Provider with a cache. Cache errors never fail a call:
// a broken backend degrades to calling the inner provider.
type Cached struct {
	inner   Provider
	cache   cache.Cache
	keys    cache.Keyer
	ttl     time.Duration
	refresh bool
}

// CachedOption configures a Cached provider.
type CachedOption func(*Cached)

// WithKeyer sets the key layout. Defaults to cache.NewDefaultKeyer.
func WithKeyer(k cache.Keyer) CachedOption {
	return func(c *Cached) {
		if k != nil {
			c.keys = k
		}
	}
}

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) { c.ttl = ttl }
}

// WithRefresh bypasses cache reads; fresh responses are still stored.
func WithRefresh(refresh bool) CachedOption {
	return func(c *Cached) { c.refresh = refresh }
}

// NewCached returns p behind c. A nil cache disables caching.
func NewCached(p Provider, c cache.Cache, opts ...CachedOption) *Cached {
	if c == nil {
		c = cache.NewNullCache()
	}
	cp := &Cached{inner: p, cache: c, keys: cache.NewDefaultKeyer(), ttl: DefaultTTL}
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

// Inner returns the wrapped provider.
func (c *Cached) Inner() Provider { return c.inner }

// Layout implements Provider.
func (c *Cached) Layout(ctx context.Context, depot string) (Layout, error) {
	var out Layout
	err := c.cached(ctx, c.keys.LayoutKey(depot), &out, func() error {
		l, err := c.inner.Layout(ctx, depot)
		out = l
		return err
	})
	return out, err
}

// Stock implements Provider. Stock changes with every mutation, so it is
// cached for a tenth of the layout TTL.
func (c *Cached) Stock(ctx context.Context, depot string) (StockInfo, error) {
	var out StockInfo
	err := c.cachedTTL(ctx, c.keys.StockKey(depot), c.ttl/10, &out, func() error {
		s, err := c.inner.Stock(ctx, depot)
		out = s
		return err
	})
	return out, err
}

// Depots implements Provider.
func (c *Cached) Depots(ctx context.Context) ([]Depot, error) {
	var out []Depot
	err := c.cached(ctx, c.keys.DepotsKey(), &out, func() error {
		d, err := c.inner.Depots(ctx)
		out = d
		return err
	})
	return out, err
}

// Invalidate drops the cached layout and stock of depot, for example after
// an inventory mutation.
func (c *Cached) Invalidate(ctx context.Context, depot string) error {
	if err := c.cache.Delete(ctx, c.keys.LayoutKey(depot)); err != nil {
		return err
	}
	return c.cache.Delete(ctx, c.keys.StockKey(depot))
}

// FilterLayout forwards to the inner provider. Filtered layouts are not
// cached.
func (c *Cached) FilterLayout(ctx context.Context, depot string, f Filter) (Layout, error) {
	fl, ok := c.inner.(Filterer)
	if !ok {
		return Layout{}, unsupported(c.inner, "filter layouts")
	}
	return fl.FilterLayout(ctx, depot, f)
}

// Categories forwards to the inner provider.
func (c *Cached) Categories(ctx context.Context, depot string) ([]string, error) {
	return Categories(ctx, c.inner, depot)
}

// LocationHistory forwards to the inner provider.
func (c *Cached) LocationHistory(ctx context.Context, depot, location string, from, to time.Time) ([]HistoryEntry, error) {
	return LocationHistory(ctx, c.inner, depot, location, from, to)
}

func (c *Cached) cached(ctx context.Context, key string, v any, fetch func() error) error {
	return c.cachedTTL(ctx, key, c.ttl, v, fetch)
}

func (c *Cached) cachedTTL(ctx context.Context, key string, ttl time.Duration, v any, fetch func() error) error {
	hooks := observability.Cache()
	if !c.refresh {
		if err := cache.GetJSON(ctx, c.cache, key, v); err == nil {
			hooks.OnCacheHit(ctx, key)
			return nil
		}
		hooks.OnCacheMiss(ctx, key)
	}
	if err := fetch(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := c.cache.Set(ctx, key, data, ttl); err == nil {
		hooks.OnCacheSet(ctx, key, len(data))
	}
	return nil
}

var (
	_ Provider  = (*Cached)(nil)
	_ Filterer  = (*Cached)(nil)
	_ Cataloger = (*Cached)(nil)
	_ Historian = (*Cached)(nil)
)
