package sink

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/depotview/pkg/camera"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/scene"
)

func testGraph(t *testing.T) *scene.Graph {
	t.Helper()
	g, err := scene.Build([]scene.LocationRecord{
		{ID: "A-01", X: 0, Z: 0, Stock: 150, LocWeight: 1},
		{ID: "A-02", X: 1, Z: 0, Stock: 300, LocWeight: 9},
		{ID: "B<1>", X: 4, Z: 2, Stock: 0, LocWeight: 0},
		{ID: "bad", X: 5, Z: 5, Stock: -1, LocWeight: 0},
	}, scene.DefaultGrid)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestRenderJSON(t *testing.T) {
	g := testGraph(t)
	data, err := RenderJSON(g, WithDepot("7"), WithFillRate(0.5), WithCamera(*camera.New(16.0 / 9)))
	if err != nil {
		t.Fatalf("RenderJSON() error = %v", err)
	}

	var doc struct {
		Depot      string  `json:"depot"`
		Background string  `json:"background"`
		FillRate   float64 `json:"fillRate"`
		Camera     struct {
			FOV float64 `json:"fov"`
		} `json:"camera"`
		Boxes []struct {
			ID    string `json:"id"`
			Color string `json:"color"`
		} `json:"boxes"`
		Labels []struct {
			Text string `json:"text"`
		} `json:"labels"`
		Skipped []SkippedJSON `json:"skipped"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.Depot != "7" || doc.FillRate != 0.5 || doc.Background != "#efefef" {
		t.Errorf("header = %q %v %q", doc.Depot, doc.FillRate, doc.Background)
	}
	if doc.Camera.FOV != camera.DefaultFOV {
		t.Errorf("camera fov = %v, want %v", doc.Camera.FOV, camera.DefaultFOV)
	}
	if len(doc.Boxes) != 3 || doc.Boxes[0].ID != "A-01" || !strings.HasPrefix(doc.Boxes[0].Color, "#") {
		t.Errorf("boxes = %+v", doc.Boxes)
	}
	if len(doc.Labels) != 2 || doc.Labels[0].Text != "A" || doc.Labels[1].Text != "B" {
		t.Errorf("labels = %+v, want A and B", doc.Labels)
	}
	if len(doc.Skipped) != 1 || doc.Skipped[0].ID != "bad" || doc.Skipped[0].Error == "" {
		t.Errorf("skipped = %+v", doc.Skipped)
	}
}

func TestRenderJSONEmpty(t *testing.T) {
	data, err := RenderJSON(nil)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"boxes":[]`) || !strings.Contains(s, `"labels":[]`) {
		t.Errorf("RenderJSON(nil) = %s, want empty arrays", s)
	}
}

func TestRenderSVG(t *testing.T) {
	g := testGraph(t)
	svg := string(RenderSVG(g, WithPopups(), WithBoxIDs(), WithSelected("A-02")))

	checks := []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`fill="#efefef"`,
		`class="grid"`,
		`data-id="A-01"`,
		`class="loc highlight" data-id="A-02"`,
		`data-id="B&lt;1&gt;"`,
		`title: A-01`,
		`stock: 150`,
		`loc weight: 9`,
		`class="corridor"`,
		`<script`,
		`</svg>`,
	}
	for _, c := range checks {
		if !strings.Contains(svg, c) {
			t.Errorf("SVG missing %q", c)
		}
	}
	if strings.Contains(svg, `data-id="bad"`) {
		t.Error("SVG contains a skipped record")
	}
	if n := strings.Count(svg, `class="popup"`); n != 3 {
		t.Errorf("popups = %d, want 3", n)
	}
}

func TestRenderSVGOptions(t *testing.T) {
	g := testGraph(t)
	svg := string(RenderSVG(g, WithoutGrid(), WithoutCorridorLabels()))
	for _, c := range []string{`class="grid"`, `class="corridor"`, `<script`, `class="popup"`} {
		if strings.Contains(svg, c) {
			t.Errorf("SVG contains %q", c)
		}
	}
	if !strings.Contains(string(RenderSVG(nil)), "</svg>") {
		t.Error("RenderSVG(nil) is not an SVG document")
	}
}

func TestStatesDOT(t *testing.T) {
	dot := StatesDOT(interact.Transitions())
	checks := []string{
		"digraph interaction {",
		`"Idle" [label="Idle"`,
		`"TooltipShown" -> "ActionMenuShown"`,
		`"ActionMenuShown" -> "Idle"`,
		`ClickOutside`,
	}
	for _, c := range checks {
		if !strings.Contains(dot, c) {
			t.Errorf("DOT missing %q", c)
		}
	}
	edges := 0
	for _, tr := range interact.Transitions() {
		edges += len(tr.From)
	}
	if got := strings.Count(dot, " -> "); got != edges {
		t.Errorf("edges = %d, want %d", got, edges)
	}
}

func TestRenderStatesSVG(t *testing.T) {
	svg, err := RenderStatesSVG(context.Background(), StatesDOT(interact.Transitions()))
	if err != nil {
		t.Fatalf("RenderStatesSVG() error = %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output is not SVG")
	}
}
