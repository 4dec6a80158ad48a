package sink

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/matzehuels/depotview/pkg/geom"
	"github.com/matzehuels/depotview/pkg/interact"
	"github.com/matzehuels/depotview/pkg/mapper"
	"github.com/matzehuels/depotview/pkg/scene"
)

// DefaultScale is the number of SVG pixels per world unit.
const DefaultScale = 48.0

const floorCSS = `
    .loc { stroke: #333; stroke-width: 0.02; transition: stroke-width 0.15s ease; }
    .loc.highlight { stroke-width: 0.08; }
    .grid line { stroke: #c8c8c8; stroke-width: 0.01; }
    .corridor { fill: #555; font-family: sans-serif; text-anchor: middle; dominant-baseline: middle; }
    .loc-id { fill: #222; font-family: sans-serif; text-anchor: middle; dominant-baseline: middle; pointer-events: none; }
    .popup { pointer-events: none; transition: opacity 0.15s ease; }
    .popup[visibility="hidden"] { opacity: 0; }
    .popup[visibility="visible"] { opacity: 1; }`

const floorJS = `
    const svg = document.querySelector('svg');
    const vb = svg.viewBox.baseVal;
    const offset = parseFloat(svg.dataset.offset);
    document.querySelectorAll('.loc').forEach(el => {
      const popup = document.querySelector('.popup[data-for="' + el.dataset.id + '"]');
      if (!popup) return;
      el.addEventListener('mouseenter', () => {
        el.classList.add('highlight');
        const box = el.getBBox();
        const pb = popup.getBBox();
        let x = box.x + box.width + offset;
        let y = box.y;
        if (x + pb.width > vb.x + vb.width) x = box.x - pb.width - offset;
        y = Math.max(vb.y, Math.min(y, vb.y + vb.height - pb.height));
        popup.setAttribute('transform', 'translate(' + x.toFixed(3) + ',' + y.toFixed(3) + ')');
        popup.setAttribute('visibility', 'visible');
      });
      el.addEventListener('mouseleave', () => {
        el.classList.remove('highlight');
        popup.setAttribute('visibility', 'hidden');
      });
    });`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	scale    float64
	popups   bool
	boxIDs   bool
	grid     bool
	labels   bool
	selected string
}

// WithScale sets the pixels per world unit.
func WithScale(s float64) SVGOption {
	return func(r *svgRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// WithPopups adds hover popups with the tooltip lines of every location.
func WithPopups() SVGOption { return func(r *svgRenderer) { r.popups = true } }

// WithBoxIDs prints the record ID on every location.
func WithBoxIDs() SVGOption { return func(r *svgRenderer) { r.boxIDs = true } }

// WithoutGrid omits the floor grid lines.
func WithoutGrid() SVGOption { return func(r *svgRenderer) { r.grid = false } }

// WithoutCorridorLabels omits the corridor labels.
func WithoutCorridorLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// WithSelected highlights the location with the given record ID.
func WithSelected(id string) SVGOption { return func(r *svgRenderer) { r.selected = id } }

// RenderSVG draws g as seen from above: X to the right, Z downward.
func RenderSVG(g *scene.Graph, opts ...SVGOption) []byte {
	r := svgRenderer{scale: DefaultScale, grid: true, labels: true}
	for _, opt := range opts {
		opt(&r)
	}
	if g == nil {
		g = scene.Empty(scene.DefaultGrid)
	}

	ext := floorExtent(g)
	size := ext.Size()
	w, h := size.X*r.scale, size.Z*r.scale
	cell := g.Grid.CellSize()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.3f %.3f %.3f %.3f" width="%.0f" height="%.0f" data-offset="%.4f">`+"\n",
		ext.Min.X, ext.Min.Z, size.X, size.Z, w, h, interact.TooltipOffset/r.scale)
	fmt.Fprintf(&buf, `  <rect x="%.3f" y="%.3f" width="%.3f" height="%.3f" fill="%s"/>`+"\n",
		ext.Min.X, ext.Min.Z, size.X, size.Z, mapper.Background.Hex())

	if r.grid {
		renderGrid(&buf, g.Grid)
	}

	for _, b := range g.Boxes() {
		renderLocation(&buf, b, b.SourceID == r.selected)
	}
	if r.boxIDs {
		for _, b := range g.Boxes() {
			fmt.Fprintf(&buf, `  <text class="loc-id" x="%.3f" y="%.3f" font-size="%.3f">%s</text>`+"\n",
				b.Position.X, b.Position.Z, b.Footprint*0.22, html.EscapeString(b.SourceID))
		}
	}
	if r.labels {
		for _, l := range g.Labels {
			fmt.Fprintf(&buf, `  <text class="corridor" x="%.3f" y="%.3f" font-size="%.3f">%s</text>`+"\n",
				l.Position.X, l.Position.Z, cell*0.6, html.EscapeString(l.Text))
		}
	}

	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", floorCSS)
	if r.popups {
		for _, b := range g.Boxes() {
			renderPopup(&buf, b, cell)
		}
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", floorJS)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// floorExtent is the union of the grid square and all box footprints, with
// a margin of half a cell.
func floorExtent(g *scene.Graph) geom.Box3 {
	half := g.Grid.Size / 2
	ext := geom.B3(-half, 0, -half, half, 0, half)
	if bounds := g.Bounds(); !bounds.IsEmpty() {
		ext = ext.Union(bounds)
	}
	for _, l := range g.Labels {
		ext = ext.ExpandByPoint(l.Position)
	}
	m := math.Max(g.Grid.CellSize()/2, 0.5)
	ext.Min = ext.Min.Sub(geom.V3(m, 0, m))
	ext.Max = ext.Max.Add(geom.V3(m, 0, m))
	return ext
}

func renderGrid(buf *bytes.Buffer, grid scene.GridConfig) {
	if grid.Validate() != nil {
		return
	}
	half := grid.Size / 2
	cell := grid.CellSize()
	buf.WriteString(`  <g class="grid">` + "\n")
	for i := 0; i <= grid.Divisions; i++ {
		p := -half + float64(i)*cell
		fmt.Fprintf(buf, `    <line x1="%.3f" y1="%.3f" x2="%.3f" y2="%.3f"/>`+"\n", p, -half, p, half)
		fmt.Fprintf(buf, `    <line x1="%.3f" y1="%.3f" x2="%.3f" y2="%.3f"/>`+"\n", -half, p, half, p)
	}
	buf.WriteString("  </g>\n")
}

func renderLocation(buf *bytes.Buffer, b *scene.Box, selected bool) {
	class := "loc"
	if selected {
		class += " highlight"
	}
	half := b.Footprint / 2
	fmt.Fprintf(buf, `  <rect class="%s" data-id="%s" x="%.3f" y="%.3f" width="%.3f" height="%.3f" fill="%s"/>`+"\n",
		class, html.EscapeString(b.SourceID),
		b.Position.X-half, b.Position.Z-half, b.Footprint, b.Footprint, b.Color.Hex())
}

func renderPopup(buf *bytes.Buffer, b *scene.Box, cell float64) {
	lines := interact.TooltipFor(b).Lines()
	fs := cell * 0.3
	pad := fs * 0.4
	width := 0.0
	for _, l := range lines {
		width = math.Max(width, float64(len(l))*fs*0.55)
	}
	width += 2 * pad
	height := float64(len(lines))*fs*1.3 + 2*pad

	fmt.Fprintf(buf, `  <g class="popup" data-for="%s" visibility="hidden">`+"\n", html.EscapeString(b.SourceID))
	fmt.Fprintf(buf, `    <rect width="%.3f" height="%.3f" rx="%.3f" fill="white" stroke="#333" stroke-width="0.02"/>`+"\n",
		width, height, pad)
	for i, l := range lines {
		fmt.Fprintf(buf, `    <text x="%.3f" y="%.3f" font-size="%.3f" font-family="sans-serif">%s</text>`+"\n",
			pad, pad+float64(i+1)*fs*1.3-fs*0.3, fs, html.EscapeString(l))
	}
	buf.WriteString("  </g>\n")
}
