package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/scene"
)

const objectJSON = `{
  "fillRate": 0.42,
  "records": [
    {"id": "A-01", "x": 0, "z": 0, "stock": 120, "locWeight": 3.5},
    {"id": 17, "x": 1, "z": 0, "stock": 0, "locWeight": 0}
  ]
}`

const arrayJSON = `[{"id": "B-01", "x": 2, "z": 3, "stock": 10, "locWeight": 1}]`

const objectYAML = `
fillRate: 0.5
records:
  - id: C-01
    x: 4
    z: 5
    stock: 300
    locWeight: 12
`

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		format   Format
		wantIDs  []string
		wantFill float64
	}{
		{"object json", objectJSON, JSON, []string{"A-01", "17"}, 0.42},
		{"bare array", arrayJSON, JSON, []string{"B-01"}, 0},
		{"yaml", objectYAML, YAML, []string{"C-01"}, 0.5},
		{"empty array", `[]`, JSON, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Decode(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(l.Records) != len(tt.wantIDs) {
				t.Fatalf("Decode() records = %v, want ids %v", l.Records, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if l.Records[i].ID != id {
					t.Errorf("record %d id = %q, want %q", i, l.Records[i].ID, id)
				}
			}
			if l.FillRate != tt.wantFill {
				t.Errorf("FillRate = %v, want %v", l.FillRate, tt.wantFill)
			}
		})
	}
}

func TestDecodeYAMLValues(t *testing.T) {
	l, err := Decode(strings.NewReader(objectYAML), YAML)
	if err != nil {
		t.Fatal(err)
	}
	want := scene.LocationRecord{ID: "C-01", X: 4, Z: 5, Stock: 300, LocWeight: 12}
	if l.Records[0] != want {
		t.Errorf("record = %+v, want %+v", l.Records[0], want)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"not json", `{`, JSON},
		{"missing field", `[{"id": "A", "x": 0, "z": 0, "stock": 1}]`, JSON},
		{"stock as string", `[{"id": "A", "x": 0, "z": 0, "stock": "1", "locWeight": 0}]`, JSON},
		{"fractional cell", `[{"id": "A", "x": 0.5, "z": 0, "stock": 1, "locWeight": 0}]`, JSON},
		{"unknown top-level key", `{"records": [], "extra": 1}`, JSON},
		{"scalar", `42`, JSON},
		{"bad yaml", "records: [", YAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("Decode() error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestDecodeKeepsOutOfRangeRecords(t *testing.T) {
	in := `[{"id": "A", "x": 0, "z": 0, "stock": -5, "locWeight": 0}]`
	l, err := Decode(strings.NewReader(in), JSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(l.Records) != 1 || l.Records[0].Stock != -5 {
		t.Errorf("Decode() = %v, want the record passed through", l.Records)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProviderSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.json")
	write(t, path, objectJSON)

	p, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	l, err := p.Layout(ctx, "7")
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if l.Depot != "7" || len(l.Records) != 2 || l.FetchedAt.IsZero() {
		t.Errorf("Layout() = %+v", l)
	}

	s, err := p.Stock(ctx, "7")
	if err != nil {
		t.Fatal(err)
	}
	if s.Stock != 120 || s.FillRate != 0.42 {
		t.Errorf("Stock() = %+v, want 120 / 0.42", s)
	}

	depots, _ := p.Depots(ctx)
	if len(depots) != 1 || depots[0].ID != "main" {
		t.Errorf("Depots() = %v, want [main]", depots)
	}
}

func TestProviderDirectory(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "7.json"), arrayJSON)
	write(t, filepath.Join(dir, "3.yml"), objectYAML)
	write(t, filepath.Join(dir, "notes.txt"), "ignored")

	p, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	depots, err := p.Depots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(depots) != 2 || depots[0].ID != "3" || depots[1].ID != "7" {
		t.Errorf("Depots() = %v, want [3 7]", depots)
	}

	l, err := p.Layout(ctx, "3")
	if err != nil {
		t.Fatalf("Layout(3) error = %v", err)
	}
	if len(l.Records) != 1 || l.Records[0].ID != "C-01" {
		t.Errorf("Layout(3) = %v", l.Records)
	}

	if _, err := p.Layout(ctx, "9"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Layout(9) error = %v, want NOT_FOUND", err)
	}
	if _, err := p.Layout(ctx, "../7"); !errors.Is(err, errors.ErrCodeInvalidDepot) {
		t.Errorf("Layout(../7) error = %v, want INVALID_DEPOT", err)
	}
}

func TestNewErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("New(missing) error = %v, want FILE_NOT_FOUND", err)
	}
	txt := filepath.Join(dir, "layout.txt")
	write(t, txt, "")
	if _, err := New(txt); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("New(.txt) error = %v, want INVALID_FORMAT", err)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := provider.Layout{
		FillRate: 0.3,
		Records:  []scene.LocationRecord{{ID: "A-01", X: 1, Z: 2, Stock: 50, LocWeight: 2}},
	}
	for _, name := range []string{"out.json", "out.yaml"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(path, in); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", name, err)
		}
		if got.FillRate != in.FillRate || len(got.Records) != 1 || got.Records[0] != in.Records[0] {
			t.Errorf("%s: got %+v, want %+v", name, got, in)
		}
	}
}

func TestSchemaCompiles(t *testing.T) {
	if _, err := Schema(); err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
}
