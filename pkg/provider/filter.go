package provider

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/depotview/pkg/errors"
)

// Filter narrows a layout to the locations matching placement filters,
// product categories and weight classes. Values are passed to the provider
// as they are; an empty list does not restrict.
type Filter struct {
	Filters    []string `json:"filters,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Weights    []string `json:"weights,omitempty"`
}

// IsZero reports whether f restricts nothing.
func (f Filter) IsZero() bool {
	return len(compact(f.Filters)) == 0 && len(compact(f.Categories)) == 0 && len(compact(f.Weights)) == 0
}

// Normalize trims the values and drops empty ones.
func (f Filter) Normalize() Filter {
	return Filter{
		Filters:    compact(f.Filters),
		Categories: compact(f.Categories),
		Weights:    compact(f.Weights),
	}
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// HistoryEntry is one recorded change of a location, as the provider
// reports it.
type HistoryEntry = json.RawMessage

// Filterer is implemented by providers that filter layouts at the source.
type Filterer interface {
	FilterLayout(ctx context.Context, depot string, f Filter) (Layout, error)
}

// Cataloger is implemented by providers that know the product categories
// stored in a depot.
type Cataloger interface {
	Categories(ctx context.Context, depot string) ([]string, error)
}

// Historian is implemented by providers that keep the change history of
// locations. Zero bounds leave the range open.
type Historian interface {
	LocationHistory(ctx context.Context, depot, location string, from, to time.Time) ([]HistoryEntry, error)
}

// Filtered returns p with every Layout call narrowed by f. A zero filter
// returns p unchanged; a provider that cannot filter is UNSUPPORTED.
func Filtered(p Provider, f Filter) (Provider, error) {
	f = f.Normalize()
	if f.IsZero() {
		return p, nil
	}
	fl, ok := p.(Filterer)
	if !ok {
		return nil, unsupported(p, "filter layouts")
	}
	return &filtered{Provider: p, filterer: fl, filter: f}, nil
}

type filtered struct {
	Provider
	filterer Filterer
	filter   Filter
}

func (p *filtered) Layout(ctx context.Context, depot string) (Layout, error) {
	return p.filterer.FilterLayout(ctx, depot, p.filter)
}

// Categories asks p for the categories of depot.
func Categories(ctx context.Context, p Provider, depot string) ([]string, error) {
	c, ok := p.(Cataloger)
	if !ok {
		return nil, unsupported(p, "list categories")
	}
	return c.Categories(ctx, depot)
}

// LocationHistory asks p for the history of one location.
func LocationHistory(ctx context.Context, p Provider, depot, location string, from, to time.Time) ([]HistoryEntry, error) {
	h, ok := p.(Historian)
	if !ok {
		return nil, unsupported(p, "report location history")
	}
	if location == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "history needs a location")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "history range ends before it starts")
	}
	return h.LocationHistory(ctx, depot, location, from, to)
}

func unsupported(p Provider, what string) error {
	return errors.New(errors.ErrCodeUnsupported, "provider %T cannot %s", p, what)
}
