package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/depotview/pkg/config"
	"github.com/matzehuels/depotview/pkg/provider"
	"github.com/matzehuels/depotview/pkg/provider/file"
	"github.com/matzehuels/depotview/pkg/scene"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to json", "", []string{"json"}},
		{"single format", "svg", []string{"svg"}},
		{"multiple formats", "json,svg", []string{"json", "svg"}},
		{"spaces and case", " JSON , Svg ", []string{"json", "svg"}},
		{"empty entries dropped", "svg,,", []string{"svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		wantErr bool
	}{
		{"json", []string{"json"}, false},
		{"svg", []string{"svg"}, false},
		{"both", []string{"json", "svg"}, false},
		{"dot is for states", []string{"dot"}, true},
		{"mixed valid invalid", []string{"svg", "png"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFormats(tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFormats(%v) = %v, wantErr %v", tt.formats, err, tt.wantErr)
			}
		})
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		formats []string
		want    map[string]string
	}{
		{"single keeps extension", "out/depot.svg", []string{"svg"}, map[string]string{"svg": "out/depot.svg"}},
		{"single adds extension", "out/depot", []string{"json"}, map[string]string{"json": "out/depot.json"}},
		{"multiple replace extension", "depot.svg", []string{"json", "svg"}, map[string]string{"json": "depot.json", "svg": "depot.svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.output, tt.formats)
			if len(got) != len(tt.want) {
				t.Fatalf("outputPaths() = %v, want %v", got, tt.want)
			}
			for f, p := range tt.want {
				if got[f] != p {
					t.Errorf("outputPaths()[%s] = %q, want %q", f, got[f], p)
				}
			}
		})
	}
}

// writeLayout writes a two-location depot 7 into a fresh directory.
func writeLayout(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	l := provider.Layout{
		FillRate: 0.42,
		Records: []scene.LocationRecord{
			{ID: "A-01", X: 0, Z: 0, Stock: 120, LocWeight: 4},
			{ID: "A-02", X: 3, Z: 2, Stock: 40, LocWeight: 1},
		},
	}
	if err := file.WriteFile(filepath.Join(dir, "7.json"), l); err != nil {
		t.Fatal(err)
	}
	return dir
}

func fileConfig(path string) config.Config {
	cfg := config.Default()
	cfg.Provider.Path = path
	cfg.Normalize()
	return cfg
}

func TestRunRender(t *testing.T) {
	cfg := fileConfig(writeLayout(t))
	out := filepath.Join(t.TempDir(), "nested", "depot7")

	c := New(os.Stderr, LogInfo)
	opts := renderOpts{output: out, formats: []string{FormatJSON, FormatSVG}, popups: true, scale: 40}
	if err := c.runRender(context.Background(), cfg, "7", opts); err != nil {
		t.Fatalf("runRender() = %v", err)
	}

	data, err := os.ReadFile(out + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Depot string `json:"depot"`
		Boxes []struct {
			ID string `json:"id"`
		} `json:"boxes"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("scene json: %v", err)
	}
	if doc.Depot != "7" {
		t.Errorf("depot = %q, want 7", doc.Depot)
	}
	if len(doc.Boxes) != 2 || doc.Boxes[0].ID != "A-01" {
		t.Errorf("boxes = %+v, want A-01 and A-02", doc.Boxes)
	}

	svg, err := os.ReadFile(out + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "A-02") {
		t.Errorf("floor plan misses the svg root or A-02")
	}
}

func TestRunRenderUnknownDepot(t *testing.T) {
	cfg := fileConfig(writeLayout(t))
	c := New(os.Stderr, LogInfo)
	opts := renderOpts{output: filepath.Join(t.TempDir(), "x"), formats: []string{FormatJSON}}
	if err := c.runRender(context.Background(), cfg, "8", opts); err == nil {
		t.Fatal("runRender() = nil, want error for a depot without a file")
	}
}
