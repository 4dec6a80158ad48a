// Package httpapi is a client for the warehouse REST API.
//
// The API exposes one function per endpoint, each guarded by a function key
// passed as the code query parameter:
//
//	GET {base}/GetLayout?code=...&Depot_Id=7   -> {"DepoDoluluk": 0.42, "info": [records]}
//	GET {base}/GetDepots?code=...              -> {"info": [depots]}
//	GET {base}/stock                           -> number or {"stock": number}
//	GET {base}/fillRate                        -> number or {"fillRate": number}
//	GET {base}/ManuelUpdate?code=...&Depot_Id=7&OperationType=add&Location=A-01&KoliMiktari=1
//	GET {base}/PlacementFilter?code=...&Depot_Id=7&Filters=a,b&Product_Category=c&Product_Weight=w
//	                                           -> {"DepoDoluluk": 0.1, "Info": [records]}
//	GET {base}/GetCategories?code=...&Depot_Id=7 -> [categories] or {"info": [categories]}
//	GET {base}/GetLocHistory?code=...&Depot_Id=7&Location=A-01&Date-LowerBound=...&Date-UpperBound=...
//	                                           -> {"info": [entries]}
//
// Reads are retried on transient failures; ManuelUpdate changes inventory
// and is sent exactly once.
package httpapi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/depotview/pkg/buildinfo"
	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/httputil"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
)

// Endpoint names.
const (
	FuncLayout     = "GetLayout"
	FuncDepots     = "GetDepots"
	FuncStock      = "stock"
	FuncFill       = "fillRate"
	FuncUpdate     = "ManuelUpdate"
	FuncFilter     = "PlacementFilter"
	FuncCategories = "GetCategories"
	FuncHistory    = "GetLocHistory"
)

// DateLayout is the date format of the history bounds.
const DateLayout = "2006-01-02"

// Client talks to the warehouse API. It is safe for concurrent use.
type Client struct {
	*httputil.Client
	baseURL string
	apiKey  string
	keys    map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the function key sent with every keyed endpoint.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithFunctionKey sets the key for one endpoint, overriding the API key.
func WithFunctionKey(function, key string) Option {
	return func(c *Client) { c.keys[function] = key }
}

// WithHTTP configures the underlying HTTP client.
func WithHTTP(opts ...httputil.ClientOption) Option {
	return func(c *Client) {
		c.Client = httputil.NewClient(c.headers(), opts...)
	}
}

// NewClient returns a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		keys:    map[string]string{},
	}
	c.Client = httputil.NewClient(c.headers())
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{"User-Agent": buildinfo.UserAgent()}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(function string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	key := c.keys[function]
	if key == "" {
		key = c.apiKey
	}
	if key != "" {
		params.Set("code", key)
	}
	u := c.baseURL + "/" + function
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

type layoutResponse struct {
	FillRate float64                `json:"DepoDoluluk"`
	Info     []scene.LocationRecord `json:"info"`
}

// GetLayout fetches the records and fill rate of a depot.
func (c *Client) GetLayout(ctx context.Context, depot string) (provider.Layout, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return provider.Layout{}, err
	}
	var data layoutResponse
	u := c.endpoint(FuncLayout, url.Values{"Depot_Id": {depot}})
	if err := c.GetJSON(ctx, u, &data); err != nil {
		return provider.Layout{}, fetchError(err, "layout for depot %s", depot)
	}
	return provider.Layout{
		Depot:     depot,
		Records:   data.Info,
		FillRate:  data.FillRate,
		FetchedAt: time.Now(),
	}, nil
}

// FilterLayout fetches the layout of a depot narrowed by f. The response
// has the shape of GetLayout with the records under "Info".
func (c *Client) FilterLayout(ctx context.Context, depot string, f provider.Filter) (provider.Layout, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return provider.Layout{}, err
	}
	f = f.Normalize()
	params := url.Values{
		"Depot_Id":         {depot},
		"Filters":          {strings.Join(f.Filters, ",")},
		"Product_Category": {strings.Join(f.Categories, ",")},
		"Product_Weight":   {strings.Join(f.Weights, ",")},
	}
	var data layoutResponse
	if err := c.GetJSON(ctx, c.endpoint(FuncFilter, params), &data); err != nil {
		return provider.Layout{}, fetchError(err, "filtered layout for depot %s", depot)
	}
	return provider.Layout{
		Depot:     depot,
		Records:   data.Info,
		FillRate:  data.FillRate,
		FetchedAt: time.Now(),
	}, nil
}

// GetCategories lists the product categories of a depot. Entries may be
// plain strings or objects with a name field.
func (c *Client) GetCategories(ctx context.Context, depot string) ([]string, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	u := c.endpoint(FuncCategories, url.Values{"Depot_Id": {depot}})
	if err := c.GetJSON(ctx, u, &raw); err != nil {
		return nil, fetchError(err, "categories for depot %s", depot)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Info []json.RawMessage `json:"info"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: expected a list, got %s", FuncCategories, raw)
		}
		list = wrapped.Info
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if name, ok := categoryName(item); ok {
			out = append(out, name)
		}
	}
	return out, nil
}

func categoryName(raw json.RawMessage) (string, bool) {
	if s, ok := scalar(raw); ok {
		return s, s != ""
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", false
	}
	for _, k := range []string{"Product_Category", "Category", "category", "name", "Name"} {
		if s, ok := scalar(m[k]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// GetLocHistory fetches the recorded changes of one location between two
// dates. Zero bounds are sent empty.
func (c *Client) GetLocHistory(ctx context.Context, depot, location string, from, to time.Time) ([]json.RawMessage, error) {
	if err := errors.ValidateDepotID(depot); err != nil {
		return nil, err
	}
	params := url.Values{
		"Depot_Id":        {depot},
		"Location":        {location},
		"Date-LowerBound": {formatDate(from)},
		"Date-UpperBound": {formatDate(to)},
	}
	var data struct {
		Info []json.RawMessage `json:"info"`
	}
	if err := c.GetJSON(ctx, c.endpoint(FuncHistory, params), &data); err != nil {
		return nil, fetchError(err, "history of %s in depot %s", location, depot)
	}
	return data.Info, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

type depotsResponse struct {
	Info []depotEntry `json:"info"`
}

// depotEntry accepts the depot list in the shapes the API has used:
// bare IDs, {"Depot_Id", "Depot_Name"} and {"id", "name"}.
type depotEntry provider.Depot

func (d *depotEntry) UnmarshalJSON(data []byte) error {
	if id, ok := scalar(data); ok {
		d.ID = id
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for _, k := range []string{"Depot_Id", "DepotId", "id", "Id", "ID"} {
		if id, ok := scalar(m[k]); ok {
			d.ID = id
			break
		}
	}
	for _, k := range []string{"Depot_Name", "DepotName", "name", "Name"} {
		if name, ok := scalar(m[k]); ok {
			d.Name = name
			break
		}
	}
	if d.ID == "" {
		return errors.New(errors.ErrCodeInvalidFormat, "depot entry without id: %s", data)
	}
	return nil
}

// GetDepots lists the depots known to the API.
func (c *Client) GetDepots(ctx context.Context) ([]provider.Depot, error) {
	var data depotsResponse
	if err := c.GetJSON(ctx, c.endpoint(FuncDepots, nil), &data); err != nil {
		return nil, fetchError(err, "depot list")
	}
	out := make([]provider.Depot, len(data.Info))
	for i, d := range data.Info {
		out[i] = provider.Depot(d)
	}
	return out, nil
}

// GetStock fetches the current total stock.
func (c *Client) GetStock(ctx context.Context, depot string) (float64, error) {
	return c.number(ctx, FuncStock, depot, "stock")
}

// GetFillRate fetches the current fill rate.
func (c *Client) GetFillRate(ctx context.Context, depot string) (float64, error) {
	return c.number(ctx, FuncFill, depot, "fillRate")
}

func (c *Client) number(ctx context.Context, function, depot, field string) (float64, error) {
	var raw json.RawMessage
	u := c.endpoint(function, url.Values{"Depot_Id": {depot}})
	if err := c.GetJSON(ctx, u, &raw); err != nil {
		return 0, fetchError(err, "%s for depot %s", function, depot)
	}
	if s, ok := scalar(raw); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if s, ok := scalar(obj[field]); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, nil
			}
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidFormat, "%s: expected a number, got %s", function, raw)
}

// UpdateRequest is one manual inventory change.
type UpdateRequest struct {
	Depot         string
	OperationType string
	Location      string
	Amount        int
	ProductID     string
}

// ManuelUpdate applies an inventory change. It is never retried.
func (c *Client) ManuelUpdate(ctx context.Context, req UpdateRequest) (json.RawMessage, error) {
	if err := errors.ValidateDepotID(req.Depot); err != nil {
		return nil, err
	}
	if req.Location == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "update needs a location")
	}
	if req.Amount <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "update amount must be positive, got %d", req.Amount)
	}
	params := url.Values{
		"Depot_Id":      {req.Depot},
		"OperationType": {req.OperationType},
		"Location":      {req.Location},
		"KoliMiktari":   {strconv.Itoa(req.Amount)},
	}
	if req.ProductID != "" {
		params.Set("ProductId", req.ProductID)
	}
	var out json.RawMessage
	if err := c.GetJSONOnce(ctx, c.endpoint(FuncUpdate, params), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Provider adapts the client to provider.Provider.
type Provider struct {
	*Client
}

// NewProvider wraps c.
func NewProvider(c *Client) *Provider { return &Provider{Client: c} }

// Layout implements provider.Provider.
func (p *Provider) Layout(ctx context.Context, depot string) (provider.Layout, error) {
	return p.GetLayout(ctx, depot)
}

// Stock implements provider.Provider.
func (p *Provider) Stock(ctx context.Context, depot string) (provider.StockInfo, error) {
	stock, err := p.GetStock(ctx, depot)
	if err != nil {
		return provider.StockInfo{}, err
	}
	fill, err := p.GetFillRate(ctx, depot)
	if err != nil {
		return provider.StockInfo{}, err
	}
	return provider.StockInfo{Depot: depot, Stock: stock, FillRate: fill}, nil
}

// Depots implements provider.Provider.
func (p *Provider) Depots(ctx context.Context) ([]provider.Depot, error) {
	return p.GetDepots(ctx)
}

// FilterLayout implements provider.Filterer.
func (p *Provider) FilterLayout(ctx context.Context, depot string, f provider.Filter) (provider.Layout, error) {
	return p.Client.FilterLayout(ctx, depot, f)
}

// Categories implements provider.Cataloger.
func (p *Provider) Categories(ctx context.Context, depot string) ([]string, error) {
	return p.GetCategories(ctx, depot)
}

// LocationHistory implements provider.Historian.
func (p *Provider) LocationHistory(ctx context.Context, depot, location string, from, to time.Time) ([]provider.HistoryEntry, error) {
	return p.GetLocHistory(ctx, depot, location, from, to)
}

var (
	_ provider.Provider  = (*Provider)(nil)
	_ provider.Filterer  = (*Provider)(nil)
	_ provider.Cataloger = (*Provider)(nil)
	_ provider.Historian = (*Provider)(nil)
)

// fetchError keeps NOT_FOUND and input errors as they are and wraps
// everything else as FETCH_ERROR.
func fetchError(err error, format string, args ...any) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeInvalidDepot, errors.ErrCodeInvalidInput:
		return err
	}
	return errors.Wrap(errors.ErrCodeFetch, err, format, args...)
}

// scalar returns a JSON string or number as text.
func scalar(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}
