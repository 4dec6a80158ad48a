package scene

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/geom"
	"github.com/matzehuels/depotview/pkg/mapper"
)

// LocationRecord is one storage location as supplied by a data provider.
// X and Z are grid cell coordinates.
type LocationRecord struct {
	ID        string  `json:"id" yaml:"id"`
	X         int     `json:"x" yaml:"x"`
	Z         int     `json:"z" yaml:"z"`
	Stock     float64 `json:"stock" yaml:"stock"`
	LocWeight float64 `json:"locWeight" yaml:"locWeight"`
}

// UnmarshalJSON accepts the id as either a string or a number.
func (r *LocationRecord) UnmarshalJSON(data []byte) error {
	type plain LocationRecord
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = LocationRecord(aux.plain)
	r.ID = ""
	if len(aux.ID) == 0 || string(aux.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ID, &s); err == nil {
		r.ID = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(aux.ID, &n); err != nil {
		return errors.New(errors.ErrCodeInvalidFormat, "record id must be a string or number: %s", aux.ID)
	}
	r.ID = n.String()
	return nil
}

// Validate checks the record invariants: a non-blank ID and finite,
// non-negative stock and weight.
func (r LocationRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.Domain("record id is empty")
	}
	if !finite(r.Stock) || r.Stock < 0 {
		return errors.Domain("record %s: stock must be finite and non-negative, got %v", r.ID, r.Stock)
	}
	if !finite(r.LocWeight) || r.LocWeight < 0 {
		return errors.Domain("record %s: locWeight must be finite and non-negative, got %v", r.ID, r.LocWeight)
	}
	return nil
}

// GridConfig describes the floor grid. CellSize is Size / Divisions.
type GridConfig struct {
	Size      float64 `json:"size" toml:"size"`
	Divisions int     `json:"divisions" toml:"divisions"`
}

// DefaultGrid is a 10 x 10 grid of unit cells.
var DefaultGrid = GridConfig{Size: 10, Divisions: 10}

// CellSize returns the edge length of one grid cell.
func (g GridConfig) CellSize() float64 {
	if g.Divisions <= 0 {
		return 0
	}
	return g.Size / float64(g.Divisions)
}

// Validate returns a CONFIG_ERROR when the grid cannot place boxes.
func (g GridConfig) Validate() error {
	if g.Divisions <= 0 {
		return errors.Config("grid divisions must be positive, got %d", g.Divisions)
	}
	if !finite(g.Size) || g.CellSize() <= 0 {
		return errors.Config("grid cell size must be positive, got size %v / %d divisions", g.Size, g.Divisions)
	}
	return nil
}

// Box is the scene primitive for one location record.
type Box struct {
	SourceID  string       `json:"id"`
	Index     int          `json:"index"`
	Height    float64      `json:"height"`
	Footprint float64      `json:"footprint"`
	Color     mapper.Color `json:"color"`
	Position  geom.Vec3    `json:"position"`
	Stock     float64      `json:"stock"`
	LocWeight float64      `json:"locWeight"`
	Cell      [2]int       `json:"cell"`
}

// Bounds returns the axis-aligned bounding box: a Footprint x Height x
// Footprint block centered on Position.
func (b *Box) Bounds() geom.Box3 {
	return geom.BoxFromCenter(b.Position, geom.V3(b.Footprint, b.Height, b.Footprint))
}

// Top returns the center of the box's upper face.
func (b *Box) Top() geom.Vec3 {
	return b.Position.Add(geom.V3(0, b.Height/2, 0))
}

// SkippedRecord describes a record that was left out of a build.
type SkippedRecord struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Err   error  `json:"-"`
}

// Graph is a built scene. It is not modified after it has been published
// through a Store.
type Graph struct {
	Grid    GridConfig      `json:"grid"`
	Version uint64          `json:"version"`
	Labels  []Label         `json:"labels"`
	Skipped []SkippedRecord `json:"skipped,omitempty"`

	boxes []*Box
	byID  map[string]*Box
}

// Empty returns a graph with no boxes.
func Empty(grid GridConfig) *Graph {
	return &Graph{Grid: grid, byID: map[string]*Box{}}
}

// Boxes returns the boxes in record order. Callers must not modify the
// slice or the boxes.
func (g *Graph) Boxes() []*Box {
	if g == nil {
		return nil
	}
	return g.boxes
}

// Box looks up a box by record ID.
func (g *Graph) Box(id string) (*Box, bool) {
	if g == nil {
		return nil, false
	}
	b, ok := g.byID[id]
	return b, ok
}

// Len returns the number of boxes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.boxes)
}

// Bounds returns the union of all box bounds, or an empty box.
func (g *Graph) Bounds() geom.Box3 {
	out := geom.EmptyBox()
	for _, b := range g.Boxes() {
		out = out.Union(b.Bounds())
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
