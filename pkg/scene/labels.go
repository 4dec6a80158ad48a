package scene

import (
	"math"
	"strings"
	"unicode"

	"github.com/matzehuels/depotview/pkg/geom"
)

// Label layout constants.
const (
	LabelSpacing = 4.0
	LabelHeight  = 0.1
)

// Label is a corridor annotation lying flat on the floor. Text geometry is
// left to the host; Label only fixes placement.
type Label struct {
	Text      string    `json:"text"`
	Position  geom.Vec3 `json:"position"`
	RotationX float64   `json:"rotationX"`
}

// CorridorName returns the corridor a record ID belongs to: its leading run
// of letters ("B-04-2" is in corridor "B"). IDs that do not start with a
// letter fall back to the text before the first separator.
func CorridorName(id string) string {
	id = strings.TrimSpace(id)
	end := strings.IndexFunc(id, func(r rune) bool { return !unicode.IsLetter(r) })
	switch {
	case end > 0:
		return id[:end]
	case end < 0:
		return id
	}
	if i := strings.IndexAny(id, "-_./ "); i > 0 {
		return id[:i]
	}
	return id
}

// CorridorLabels returns one label per distinct corridor in order of first
// appearance. Label i sits at x = i*4 + 3*cellSize/2 - divisions/2, just
// above the floor, at z = size/12.
func CorridorLabels(records []LocationRecord, grid GridConfig) []Label {
	seen := make(map[string]bool)
	var labels []Label
	cell := grid.CellSize()
	for _, rec := range records {
		name := CorridorName(rec.ID)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		i := float64(len(labels))
		labels = append(labels, Label{
			Text: name,
			Position: geom.V3(
				i*LabelSpacing+3*cell/2-float64(grid.Divisions)/2,
				LabelHeight,
				grid.Size/12,
			),
			RotationX: -math.Pi / 2,
		})
	}
	return labels
}
