package cli

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depotview/pkg/cache"
	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/httputil"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/provider/file"
	"github.com/matzehuels/depotview/pkg/provider/httpapi"
	"github.com/matzehuels/depotview/pkg/provider/mongostore"
)

// backend is the configured data provider, wrapped in the response cache.
type backend struct {
	provider.Provider

	file    *file.Provider    // set for the file provider
	client  *httpapi.Client   // set for the http provider
	mongo   *mongostore.Store // set for the mongo provider
	cache   cache.Cache
	closers []func(context.Context) error
}

// openBackend builds the provider and cache selected by cfg.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	p := cfg.Provider
	switch p.Kind {
	case config.ProviderFile:
		fp, err := file.New(p.Path)
		if err != nil {
			return nil, err
		}
		b.file = fp
		b.Provider = fp
	case config.ProviderHTTP:
		opts := []httpapi.Option{
			httpapi.WithAPIKey(p.APIKey),
			httpapi.WithHTTP(httputil.WithTimeout(p.Timeout.Duration)),
		}
		for fn, key := range p.FunctionKeys {
			opts = append(opts, httpapi.WithFunctionKey(fn, key))
		}
		client, err := httpapi.NewClient(p.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		b.client = client
		b.Provider = httpapi.NewProvider(client)
	case config.ProviderMongo:
		store, err := mongostore.Connect(ctx, mongostore.Options{
			URI:        p.MongoURI,
			Database:   p.Database,
			Collection: p.Collection,
			Timeout:    p.Timeout.Duration,
		})
		if err != nil {
			return nil, err
		}
		b.mongo = store
		b.Provider = store
		b.closers = append(b.closers, store.Close)
	default:
		return nil, errors.Config("unknown provider kind %q", p.Kind)
	}

	c, err := openCache(cfg.Cache)
	if err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	if c != nil {
		b.cache = c
		opts := []provider.CachedOption{provider.WithTTL(cfg.Cache.TTL.Duration)}
		if cfg.Cache.Prefix != "" {
			opts = append(opts, provider.WithKeyer(cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Prefix)))
		}
		b.Provider = provider.NewCached(b.Provider, c, opts...)
		b.closers = append(b.closers, func(context.Context) error { return c.Close() })
	}
	return b, nil
}

// openCache returns nil for the none backend.
func openCache(cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheFile:
		dir, err := cacheDir(cfg)
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	case config.CacheRedis:
		return cache.NewRedisCache(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		}), nil
	}
	return nil, errors.Config("unknown cache backend %q", cfg.Backend)
}

// Close releases the provider and the cache.
func (b *backend) Close(ctx context.Context) error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// dispatcher returns the action dispatcher for depot. Mutations need the
// http provider; everywhere else actions are rejected as unsupported.
func (b *backend) dispatcher(cfg config.Config, depot string, logger *log.Logger, after func()) interact.Dispatcher {
	if !cfg.Interaction.EnableMutations {
		return nil
	}
	if b.client == nil {
		logger.Warn("mutations need the http provider, actions stay disabled", "provider", cfg.Provider.Kind)
		return nil
	}
	opts := []httpapi.DispatcherOption{
		httpapi.WithProductID(cfg.Interaction.ProductID),
		httpapi.WithDispatchLogger(logger),
		httpapi.WithAfterUpdate(func(ctx context.Context, _ interact.Request) {
			if c, ok := b.Provider.(*provider.Cached); ok {
				_ = c.Invalidate(ctx, depot)
			}
			if after != nil {
				after()
			}
		}),
	}
	for action, op := range cfg.Interaction.OperationTypes {
		opts = append(opts, httpapi.WithOperationType(interact.Action(strings.ToLower(action)), op))
	}
	return httpapi.NewDispatcher(b.client, depot, opts...)
}
