package cache

// Keyer builds cache keys for provider responses.
type Keyer interface {
	// LayoutKey is the key for a depot's location records.
	LayoutKey(depot string) string
	// StockKey is the key for a depot's stock and fill rate.
	StockKey(depot string) string
	// DepotsKey is the key for the depot list.
	DepotsKey() string
}

// DefaultKeyer produces plain, readable keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) LayoutKey(depot string) string { return "layout:" + depot }
func (DefaultKeyer) StockKey(depot string) string  { return "stock:" + depot }
func (DefaultKeyer) DepotsKey() string             { return "depots" }

// ScopedKeyer wraps a Keyer with a prefix, so that several data sources
// can share one cache without colliding.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "mongo:inventory:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LayoutKey(depot string) string { return k.prefix + k.inner.LayoutKey(depot) }
func (k *ScopedKeyer) StockKey(depot string) string  { return k.prefix + k.inner.StockKey(depot) }
func (k *ScopedKeyer) DepotsKey() string             { return k.prefix + k.inner.DepotsKey() }
