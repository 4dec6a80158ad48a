package sink

import (
	"encoding/json"

	"github.com/matzehuels/depotview/pkg/camera"
	"github.com/matzehuels/depotview/pkg/mapper"
	"github.com/matzehuels/depotview/pkg/scene"
)

// JSONOption configures [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	depot    string
	fillRate *float64
	camera   *camera.Camera
	indent   bool
}

// WithDepot records the depot ID in the output.
func WithDepot(id string) JSONOption { return func(r *jsonRenderer) { r.depot = id } }

// WithFillRate records the depot fill rate in the output.
func WithFillRate(f float64) JSONOption { return func(r *jsonRenderer) { r.fillRate = &f } }

// WithCamera records the initial camera in the output.
func WithCamera(c camera.Camera) JSONOption { return func(r *jsonRenderer) { r.camera = &c } }

// WithIndent pretty-prints the output.
func WithIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

// SceneJSON is the document produced by RenderJSON.
type SceneJSON struct {
	Depot      string           `json:"depot,omitempty"`
	Version    uint64           `json:"version"`
	Grid       scene.GridConfig `json:"grid"`
	Background mapper.Color     `json:"background"`
	FillRate   *float64         `json:"fillRate,omitempty"`
	Camera     *camera.Camera   `json:"camera,omitempty"`
	Boxes      []*scene.Box     `json:"boxes"`
	Labels     []scene.Label    `json:"labels"`
	Skipped    []SkippedJSON    `json:"skipped,omitempty"`
}

// SkippedJSON is a skipped record with its error as text.
type SkippedJSON struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Scene converts g to its JSON document form.
func Scene(g *scene.Graph, opts ...JSONOption) SceneJSON {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	out := SceneJSON{
		Depot:      r.depot,
		Background: mapper.Background,
		FillRate:   r.fillRate,
		Camera:     r.camera,
		Boxes:      g.Boxes(),
	}
	if g != nil {
		out.Version = g.Version
		out.Labels = g.Labels
		out.Grid = g.Grid
		for _, s := range g.Skipped {
			sj := SkippedJSON{ID: s.ID, Index: s.Index}
			if s.Err != nil {
				sj.Error = s.Err.Error()
			}
			out.Skipped = append(out.Skipped, sj)
		}
	}
	if out.Boxes == nil {
		out.Boxes = []*scene.Box{}
	}
	if out.Labels == nil {
		out.Labels = []scene.Label{}
	}
	return out
}

// RenderJSON encodes g as JSON.
func RenderJSON(g *scene.Graph, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	doc := Scene(g, opts...)
	if r.indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}
