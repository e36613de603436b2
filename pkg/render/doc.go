// Package render draws a canvas snapshot for debugging layouts.
//
// # Overview
//
// The layout engine works on rectangles; looking at them is the fastest way
// to see why a node ended up where it did. This package turns a snapshot into
// a Graphviz graph whose nodes are pinned at their absolute canvas positions
// and sized like the canvas boxes, so the picture matches what the host
// would show.
//
//   - Groups are dashed boxes drawn below their content
//   - Leaves are filled boxes labelled with their id
//   - Edges are straight arrows between box centers
//
// # Usage
//
//	dot := render.ToDOT(snap, render.Options{Labels: true})
//	svg, err := render.RenderSVG(ctx, dot)
//
// or in one step:
//
//	png, err := render.Render(ctx, snap, render.FormatPNG, render.Options{})
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz] with the neato engine, which
// honours pinned positions. [ToDOT] needs no Graphviz at all; its output can
// be fed to the graphviz command line tools as "neato -n2".
package render
