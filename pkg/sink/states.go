package sink

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depotview/pkg/errors"
	"github.com/matzehuels/depotview/pkg/interact"
)

// StatesDOT converts a transition table to Graphviz DOT. Rows that apply
// to several source states become one edge per source.
func StatesDOT(table []interact.Transition) string {
	var buf bytes.Buffer
	buf.WriteString("digraph interaction {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("\n")

	for _, k := range []interact.Kind{interact.Idle, interact.TooltipShown, interact.ActionMenuShown} {
		attrs := ""
		if k == interact.Idle {
			attrs = ", fillcolor=\"#efefef\", penwidth=2"
		}
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", k.String(), k.String(), attrs)
	}

	buf.WriteString("\n")
	for _, t := range table {
		label := t.Event
		if t.Guard != "" {
			label += " [" + t.Guard + "]"
		}
		if t.Effect != "" {
			label += "\\n/ " + t.Effect
		}
		for _, from := range t.From {
			fmt.Fprintf(&buf, "  %q -> %q [label=\"%s\"];\n", from.String(), t.To.String(), escapeDOT(label))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// escapeDOT escapes quotes in a label, keeping \n line breaks.
func escapeDOT(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// RenderStatesSVG renders a DOT document to SVG using Graphviz.
func RenderStatesSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return buf.Bytes(), nil
}
