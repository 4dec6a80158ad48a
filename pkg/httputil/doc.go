// Package httputil provides the HTTP plumbing shared by remote data
// providers.
//
// # Overview
//
//   - [Client]: JSON GET/POST with default headers, status mapping and
//     observability hooks
//   - [Retry]: automatic retry with exponential backoff
//
// # Errors
//
// [Client] maps responses onto depotview error codes:
//
//   - 404 → NOT_FOUND
//   - 5xx and 429 → NETWORK_ERROR, wrapped in [RetryableError]
//   - transport failures → NETWORK_ERROR, wrapped in [RetryableError]
//   - context deadline → TIMEOUT
//   - other non-2xx → NETWORK_ERROR (not retried)
//
// # Retry
//
// GET requests are retried; POST requests are not, because the remote
// inventory mutations are not idempotent.
//
//	c := httputil.NewClient(map[string]string{"Accept": "application/json"})
//	var depots []Depot
//	err := c.GetJSON(ctx, "https://depot.example.com/api/GetDepots", &depots)
package httputil
