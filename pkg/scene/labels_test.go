package scene

import (
	"math"
	"testing"

	"github.com/matzehuels/depotview/pkg/geom"
)

func TestCorridorName(t *testing.T) {
	tests := []struct{ id, want string }{
		{"B-04-2", "B"},
		{"AB12", "AB"},
		{"C", "C"},
		{"12-3", "12"},
		{"7", "7"},
		{"  D-1", "D"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CorridorName(tt.id); got != tt.want {
			t.Errorf("CorridorName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestCorridorLabels(t *testing.T) {
	records := []LocationRecord{
		{ID: "B-1"}, {ID: "A-1"}, {ID: "B-2"}, {ID: "C-9"},
	}
	labels := CorridorLabels(records, DefaultGrid)
	want := []string{"B", "A", "C"}
	if len(labels) != len(want) {
		t.Fatalf("got %d labels, want %d", len(labels), len(want))
	}
	for i, l := range labels {
		if l.Text != want[i] {
			t.Errorf("labels[%d].Text = %q, want %q", i, l.Text, want[i])
		}
		wantPos := geom.V3(float64(i)*4+1.5-5, 0.1, 10.0/12)
		if !nearVec(l.Position, wantPos) {
			t.Errorf("labels[%d].Position = %v, want %v", i, l.Position, wantPos)
		}
		if l.RotationX != -math.Pi/2 {
			t.Errorf("labels[%d].RotationX = %v", i, l.RotationX)
		}
	}
}

func TestBuildLabelsIgnoreSkipped(t *testing.T) {
	g, err := Build([]LocationRecord{{ID: "A-1"}, {ID: "Z-1", Stock: -1}}, DefaultGrid)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Labels) != 1 || g.Labels[0].Text != "A" {
		t.Errorf("Labels = %+v", g.Labels)
	}

	g, _ = Build([]LocationRecord{{ID: "A-1"}}, DefaultGrid, WithoutLabels())
	if len(g.Labels) != 0 {
		t.Errorf("WithoutLabels() produced %d labels", len(g.Labels))
	}
}
