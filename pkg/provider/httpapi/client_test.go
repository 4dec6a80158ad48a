package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/httputil"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTP(httputil.WithRetry(2, time.Millisecond))}, opts...)
	c, err := NewClient(srv.URL+"/api/", opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestGetLayout(t *testing.T) {
	var gotCode, gotDepot string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/GetLayout" {
			http.NotFound(w, r)
			return
		}
		gotCode = r.URL.Query().Get("code")
		gotDepot = r.URL.Query().Get("Depot_Id")
		_, _ = w.Write([]byte(`{"DepoDoluluk": 0.37, "info": [
			{"id": "A-01", "x": 0, "z": 1, "stock": 150, "locWeight": 4},
			{"id": 12, "x": 2, "z": 3, "stock": 0, "locWeight": 0}
		]}`))
	}), WithAPIKey("default-key"), WithFunctionKey(FuncLayout, "layout-key"))

	l, err := c.GetLayout(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetLayout() error = %v", err)
	}
	if gotCode != "layout-key" || gotDepot != "7" {
		t.Errorf("query code=%q Depot_Id=%q, want layout-key and 7", gotCode, gotDepot)
	}
	if l.FillRate != 0.37 || l.Depot != "7" {
		t.Errorf("GetLayout() fill=%v depot=%q", l.FillRate, l.Depot)
	}
	want := []scene.LocationRecord{
		{ID: "A-01", X: 0, Z: 1, Stock: 150, LocWeight: 4},
		{ID: "12", X: 2, Z: 3},
	}
	if len(l.Records) != len(want) {
		t.Fatalf("GetLayout() records = %v", l.Records)
	}
	for i := range want {
		if l.Records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, l.Records[i], want[i])
		}
	}
}

func TestGetLayoutErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("Depot_Id") {
		case "missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	ctx := context.Background()

	if _, err := c.GetLayout(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetLayout(missing) error = %v, want NOT_FOUND", err)
	}
	if calls.Load() != 1 {
		t.Errorf("404 was retried: %d calls", calls.Load())
	}

	calls.Store(0)
	_, err := c.GetLayout(ctx, "7")
	if !errors.Is(err, errors.ErrCodeFetch) {
		t.Errorf("GetLayout(502) error = %v, want FETCH_ERROR", err)
	}
	if calls.Load() != 2 {
		t.Errorf("502 calls = %d, want 2 attempts", calls.Load())
	}

	if _, err := c.GetLayout(ctx, "../x"); !errors.Is(err, errors.ErrCodeInvalidDepot) {
		t.Errorf("GetLayout(../x) error = %v, want INVALID_DEPOT", err)
	}
}

func TestGetDepots(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"info": [
			{"Depot_Id": 3, "Depot_Name": "North"},
			{"id": "7", "name": "South"},
			"9"
		]}`))
	}))
	got, err := c.GetDepots(context.Background())
	if err != nil {
		t.Fatalf("GetDepots() error = %v", err)
	}
	want := []struct{ id, name string }{{"3", "North"}, {"7", "South"}, {"9", ""}}
	if len(got) != len(want) {
		t.Fatalf("GetDepots() = %v", got)
	}
	for i, w := range want {
		if got[i].ID != w.id || got[i].Name != w.name {
			t.Errorf("depot %d = %+v, want %s/%s", i, got[i], w.id, w.name)
		}
	}
}

func TestStockAndFillRate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/stock":
			_, _ = w.Write([]byte(`1234`))
		case "/api/fillRate":
			_, _ = w.Write([]byte(`{"fillRate": "0.61"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	p := NewProvider(c)
	s, err := p.Stock(context.Background(), "7")
	if err != nil {
		t.Fatalf("Stock() error = %v", err)
	}
	if s.Stock != 1234 || s.FillRate != 0.61 || s.Depot != "7" {
		t.Errorf("Stock() = %+v", s)
	}
}

func TestNumberRejectsGarbage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"other": true}`))
	}))
	if _, err := c.GetStock(context.Background(), "7"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("GetStock() error = %v, want INVALID_FORMAT", err)
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	if _, err := NewClient("ftp://example.com"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("NewClient(ftp) error = %v, want INVALID_INPUT", err)
	}
}

func TestManuelUpdateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := c.ManuelUpdate(context.Background(), UpdateRequest{Depot: "7", OperationType: "add", Location: "A-01", Amount: 1})
	if err == nil {
		t.Fatal("ManuelUpdate() error = nil, want failure")
	}
	if calls.Load() != 1 {
		t.Errorf("ManuelUpdate calls = %d, want 1", calls.Load())
	}
}

func TestManuelUpdateValidation(t *testing.T) {
	c, _ := NewClient("http://localhost")
	ctx := context.Background()
	tests := []UpdateRequest{
		{Depot: "", Location: "A", Amount: 1},
		{Depot: "7", Location: "", Amount: 1},
		{Depot: "7", Location: "A", Amount: 0},
	}
	for _, req := range tests {
		if _, err := c.ManuelUpdate(ctx, req); err == nil {
			t.Errorf("ManuelUpdate(%+v) error = nil", req)
		}
	}
}

func TestMutationDispatcher(t *testing.T) {
	var query map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ManuelUpdate" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		query = map[string]string{
			"code":          q.Get("code"),
			"Depot_Id":      q.Get("Depot_Id"),
			"OperationType": q.Get("OperationType"),
			"Location":      q.Get("Location"),
			"KoliMiktari":   q.Get("KoliMiktari"),
			"ProductId":     q.Get("ProductId"),
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}), WithAPIKey("k"))

	var after []interact.Action
	d := NewDispatcher(c, "7",
		WithProductID("P-9"),
		WithOperationType(interact.ActionRemove, "Cikis"),
		WithAfterUpdate(func(_ context.Context, req interact.Request) { after = append(after, req.Action) }),
	)
	box := &scene.Box{SourceID: "B-04"}

	if err := d.Dispatch(context.Background(), interact.Request{Action: interact.ActionRemove, Box: box}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want := map[string]string{
		"code": "k", "Depot_Id": "7", "OperationType": "Cikis",
		"Location": "B-04", "KoliMiktari": "1", "ProductId": "P-9",
	}
	for k, v := range want {
		if query[k] != v {
			t.Errorf("query %s = %q, want %q", k, query[k], v)
		}
	}
	if len(after) != 1 || after[0] != interact.ActionRemove {
		t.Errorf("after-update calls = %v", after)
	}

	err := d.Dispatch(context.Background(), interact.Request{Action: "move", Box: box})
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Dispatch(move) error = %v, want UNSUPPORTED", err)
	}
	err = d.Dispatch(context.Background(), interact.Request{Action: interact.ActionAdd})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Dispatch(no box) error = %v, want INVALID_INPUT", err)
	}
}

func TestFilterLayout(t *testing.T) {
	var q map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/PlacementFilter" {
			http.NotFound(w, r)
			return
		}
		v := r.URL.Query()
		q = map[string]string{
			"code":             v.Get("code"),
			"Depot_Id":         v.Get("Depot_Id"),
			"Filters":          v.Get("Filters"),
			"Product_Category": v.Get("Product_Category"),
			"Product_Weight":   v.Get("Product_Weight"),
		}
		_, _ = w.Write([]byte(`{"DepoDoluluk": 0.2, "Info": [
			{"id": "A-01", "x": 0, "z": 0, "stock": 10, "locWeight": 1}
		]}`))
	}), WithFunctionKey(FuncFilter, "filter-key"))

	p := NewProvider(c)
	fp, err := provider.Filtered(p, provider.Filter{
		Filters:    []string{"empty", " ", "heavy", "empty"},
		Categories: []string{"food"},
	})
	if err != nil {
		t.Fatalf("Filtered() error = %v", err)
	}
	l, err := fp.Layout(context.Background(), "7")
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	want := map[string]string{
		"code": "filter-key", "Depot_Id": "7", "Filters": "empty,heavy",
		"Product_Category": "food", "Product_Weight": "",
	}
	for k, v := range want {
		if q[k] != v {
			t.Errorf("query %s = %q, want %q", k, q[k], v)
		}
	}
	if len(l.Records) != 1 || l.Records[0].ID != "A-01" || l.FillRate != 0.2 {
		t.Errorf("Layout() = %+v", l)
	}
}

func TestGetCategories(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"plain list", `["food", "tools"]`, []string{"food", "tools"}},
		{"wrapped", `{"info": [{"Product_Category": "food"}, {"name": "tools"}, {}]}`, []string{"food", "tools"}},
		{"numeric", `[1, "2"]`, []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/GetCategories" || r.URL.Query().Get("Depot_Id") != "7" {
					http.NotFound(w, r)
					return
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			got, err := NewProvider(c).Categories(context.Background(), "7")
			if err != nil {
				t.Fatalf("Categories() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Categories() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("category %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGetCategoriesRejectsScalar(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"food"`))
	}))
	if _, err := c.GetCategories(context.Background(), "7"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("GetCategories() error = %v, want INVALID_FORMAT", err)
	}
}

func TestGetLocHistory(t *testing.T) {
	var lower, upper, loc string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/GetLocHistory" {
			http.NotFound(w, r)
			return
		}
		v := r.URL.Query()
		lower, upper, loc = v.Get("Date-LowerBound"), v.Get("Date-UpperBound"), v.Get("Location")
		_, _ = w.Write([]byte(`{"info": [{"op": "add", "amount": 2}, {"op": "remove", "amount": 1}]}`))
	}))
	from := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	got, err := provider.LocationHistory(context.Background(), NewProvider(c), "7", "A-01", from, time.Time{})
	if err != nil {
		t.Fatalf("LocationHistory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LocationHistory() = %s", got)
	}
	if lower != "2024-03-01" || upper != "" || loc != "A-01" {
		t.Errorf("query bounds %q..%q location %q", lower, upper, loc)
	}
}
