package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
)

func TestIDString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"A-01", "A-01"},
		{int32(17), "17"},
		{int64(18), "18"},
		{float64(19), "19"},
		{2.5, "2.5"},
	}
	for _, tt := range tests {
		if got := idString(tt.in); got != tt.want {
			t.Errorf("idString(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocationDocRecord(t *testing.T) {
	d := locationDoc{Depot: "7", ID: int32(4), X: 1, Z: 2, Stock: 30, LocWeight: 1.5, Order: 3}
	want := scene.LocationRecord{ID: "4", X: 1, Z: 2, Stock: 30, LocWeight: 1.5}
	if got := d.record(); got != want {
		t.Errorf("record() = %+v, want %+v", got, want)
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{Collection: "bins"}
	o.normalize()
	if o.Database != DefaultDatabase || o.DepotCollection != "bins_depots" || o.Timeout != DefaultTimeout {
		t.Errorf("normalize() = %+v", o)
	}
}

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), Options{}); !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("Connect() error = %v, want CONFIG_ERROR", err)
	}
}

// TestStoreIntegration runs against a live server when
// DEPOTVIEW_TEST_MONGO_URI is set.
func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("DEPOTVIEW_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("DEPOTVIEW_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, Options{
		URI:        uri,
		Database:   "depotview_test",
		Collection: "locations_" + time.Now().Format("150405"),
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = s.locations.Drop(ctx)
		_ = s.depots.Drop(ctx)
		_ = s.Close(ctx)
	})

	in := provider.Layout{
		Depot:    "7",
		FillRate: 0.4,
		Records: []scene.LocationRecord{
			{ID: "B-02", X: 1, Stock: 10, LocWeight: 1},
			{ID: "A-01", X: 0, Stock: 20, LocWeight: 2},
		},
	}
	if err := s.Import(ctx, in); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	l, err := s.Layout(ctx, "7")
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(l.Records) != 2 || l.Records[0].ID != "B-02" || l.FillRate != 0.4 {
		t.Errorf("Layout() = %+v", l)
	}

	st, err := s.Stock(ctx, "7")
	if err != nil {
		t.Fatal(err)
	}
	if st.Stock != 30 {
		t.Errorf("Stock() = %v, want 30", st.Stock)
	}

	if _, err := s.Layout(ctx, "missing"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Layout(missing) error = %v, want NOT_FOUND", err)
	}

	depots, err := s.Depots(ctx)
	if err != nil || len(depots) != 1 || depots[0].ID != "7" {
		t.Errorf("Depots() = %v, %v", depots, err)
	}
}
