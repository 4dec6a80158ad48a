// Package provider defines where location records come from.
//
// A [Provider] returns the ordered location records of a depot together
// with the depot's fill rate. Implementations live in subpackages:
//
//   - httpapi: the warehouse REST API (GetLayout, GetDepots, stock, fillRate)
//   - file: JSON or YAML record files, validated against a JSON Schema
//   - mongostore: a MongoDB collection of location documents
//
// [Cached] puts any provider behind a [cache.Cache], and [Refresher] turns
// fetches into published scene graphs.
package provider

import (
	"context"
	"time"

	"github.com/matzehuels/depotview/pkg/scene"
)

// Layout is the result of one layout fetch.
type Layout struct {
	Depot     string                 `json:"depot"`
	Records   []scene.LocationRecord `json:"records"`
	FillRate  float64                `json:"fillRate"`
	FetchedAt time.Time              `json:"fetchedAt"`
}

// StockInfo is the current aggregate stock of a depot.
type StockInfo struct {
	Depot    string  `json:"depot"`
	Stock    float64 `json:"stock"`
	FillRate float64 `json:"fillRate"`
}

// Depot identifies a warehouse known to a provider.
type Depot struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Provider supplies location records.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Layout returns the depot's records in display order. An unknown
	// depot is a NOT_FOUND error; transport failures are FETCH_ERROR,
	// NETWORK_ERROR or TIMEOUT.
	Layout(ctx context.Context, depot string) (Layout, error)

	// Stock returns the current total stock and fill rate.
	Stock(ctx context.Context, depot string) (StockInfo, error)

	// Depots lists the depots the provider can serve.
	Depots(ctx context.Context) ([]Depot, error)
}

// TotalStock sums the stock of all records.
func TotalStock(records []scene.LocationRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Stock
	}
	return total
}
