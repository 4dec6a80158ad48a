package scene

import (
	"context"
	"time"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/geom"
	"github.com/matzehuels/depotview/pkg/mapper"
	"github.com/matzehuels/depotview/pkg/observability"
)

// BuildOption configures [Build].
type BuildOption func(*builder)

type builder struct {
	ctx    context.Context
	onSkip func(SkippedRecord)
	labels bool
}

// WithSkipHandler registers a callback invoked for every skipped record.
func WithSkipHandler(fn func(SkippedRecord)) BuildOption {
	return func(b *builder) { b.onSkip = fn }
}

// WithContext sets the context passed to observability hooks.
func WithContext(ctx context.Context) BuildOption {
	return func(b *builder) { b.ctx = ctx }
}

// WithoutLabels disables the corridor label layer.
func WithoutLabels() BuildOption {
	return func(b *builder) { b.labels = false }
}

// Build converts records into a scene graph on grid.
//
// It returns a CONFIG_ERROR when the grid is invalid. Malformed records do
// not fail the build: they are listed in Graph.Skipped, passed to the skip
// handler, and reported through the scene hooks. Boxes keep record order.
func Build(records []LocationRecord, grid GridConfig, opts ...BuildOption) (*Graph, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	b := builder{ctx: context.Background(), labels: true}
	for _, opt := range opts {
		opt(&b)
	}

	start := time.Now()
	g := &Graph{
		Grid:  grid,
		boxes: make([]*Box, 0, len(records)),
		byID:  make(map[string]*Box, len(records)),
	}

	cell := grid.CellSize()
	offset := cell/2 - float64(grid.Divisions)/2
	kept := make([]LocationRecord, 0, len(records))

	for i, rec := range records {
		box, err := newBox(rec, cell, offset)
		if err == nil {
			if _, dup := g.byID[rec.ID]; dup {
				err = errors.Domain("duplicate record id %q", rec.ID)
			}
		}
		if err != nil {
			b.skip(g, SkippedRecord{ID: rec.ID, Index: i, Err: err})
			continue
		}
		box.Index = len(g.boxes)
		g.boxes = append(g.boxes, box)
		g.byID[box.SourceID] = box
		kept = append(kept, rec)
	}

	if b.labels {
		g.Labels = CorridorLabels(kept, grid)
	}

	observability.Scene().OnBuild(b.ctx, len(g.boxes), len(g.Skipped), time.Since(start))
	return g, nil
}

func newBox(rec LocationRecord, cell, offset float64) (*Box, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	height, err := mapper.HeightFor(rec.Stock)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDomain, err, "record %s", rec.ID)
	}
	return &Box{
		SourceID:  rec.ID,
		Height:    height,
		Footprint: cell,
		Color:     mapper.ColorFor(rec.LocWeight, height),
		Position: geom.V3(
			float64(rec.X)+offset,
			height/2,
			float64(rec.Z)+offset,
		),
		Stock:     rec.Stock,
		LocWeight: rec.LocWeight,
		Cell:      [2]int{rec.X, rec.Z},
	}, nil
}

func (b *builder) skip(g *Graph, s SkippedRecord) {
	g.Skipped = append(g.Skipped, s)
	observability.Scene().OnRecordSkipped(b.ctx, s.ID, s.Err)
	if b.onSkip != nil {
		b.onSkip(s)
	}
}
