package render

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
)

// pointsPerInch converts canvas pixels, drawn as points, to Graphviz inches.
const pointsPerInch = 72.0

// Format is an output format.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[Format]bool{
	FormatDOT: true,
	FormatSVG: true,
	FormatPNG: true,
}

// Options configures rendering.
type Options struct {
	// Labels adds each node's kind and size to its label.
	Labels bool
}

// ToDOT converts a snapshot to Graphviz DOT source with every node pinned at
// its absolute position. Graphviz puts the y axis upwards, so canvas y
// values are negated.
func ToDOT(snap canvas.Snapshot, opts Options) string {
	ix := canvas.NewIndex(snap.Nodes)

	ids := make([]string, 0, ix.Len())
	seen := make(map[string]bool, ix.Len())
	for _, n := range snap.Nodes {
		if !seen[n.ID] {
			seen[n.ID] = true
			ids = append(ids, n.ID)
		}
	}
	// Outer groups first, so that Graphviz paints them below their content.
	slices.SortStableFunc(ids, func(a, b string) int {
		ga, gb := ix.IsGroup(a), ix.IsGroup(b)
		if ga != gb {
			if ga {
				return -1
			}
			return 1
		}
		return cmp.Compare(ix.Depth(a), ix.Depth(b))
	})

	var buf bytes.Buffer
	buf.WriteString("digraph canvas {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  overlap=true;\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, fixedsize=true, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, id := range ids {
		n, _ := ix.Node(id)
		r := ix.AbsoluteRect(id)
		c := r.Center()
		attrs := []string{
			fmt.Sprintf("label=%q", label(n, r.Width, r.Height, opts)),
			fmt.Sprintf("pos=\"%g,%g!\"", c.X, -c.Y),
			fmt.Sprintf("width=%g", r.Width/pointsPerInch),
			fmt.Sprintf("height=%g", r.Height/pointsPerInch),
		}
		if n.IsGroup() {
			attrs = append(attrs, `style="rounded,dashed"`, "labelloc=t", "color=grey40")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range snap.Edges {
		if !ix.Has(e.Source) || !ix.Has(e.Target) {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func label(n canvas.Node, w, h float64, opts Options) string {
	if !opts.Labels {
		return n.ID
	}
	kind := string(n.Kind)
	if kind == "" {
		kind = "node"
	}
	return fmt.Sprintf("%s\n%s %gx%g", n.ID, kind, w, h)
}

// Render draws snap in the given format.
func Render(ctx context.Context, snap canvas.Snapshot, format Format, opts Options) ([]byte, error) {
	dot := ToDOT(snap, opts)
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	case FormatPNG:
		return RenderPNG(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// RenderSVG renders DOT source to SVG with the neato engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.SVG)
}

// RenderPNG renders DOT source to PNG with the neato engine.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
