package topology_test

import (
	"fmt"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
	"github.com/hrhrng/clash-sub002/pkg/topology"
)

func node(id string, x, y float64) canvas.Node {
	return canvas.Node{ID: id, Kind: canvas.KindText, LayoutFields: canvas.LayoutFields{
		Position: geom.Point{X: x, Y: y}, Size: &geom.Size{Width: 200, Height: 100},
	}}
}

func ExampleLayout() {
	// prompt -> image -> video, scattered across the canvas
	nodes := []canvas.Node{node("video", 40, 900), node("prompt", 0, 0), node("image", 700, 300)}
	edges := []canvas.Edge{
		{ID: "e1", Source: "prompt", Target: "image"},
		{ID: "e2", Source: "image", Target: "video"},
	}

	res := topology.Layout(nodes, edges, canvas.RootScope, topology.DefaultOptions())
	for _, n := range res.Nodes {
		fmt.Println(n.ID, n.Position)
	}
	// Output:
	// video (600,0)
	// prompt (0,0)
	// image (300,0)
}

func ExampleAssigner_Columns() {
	// a and b feed each other; c hangs off the cycle
	nodes := []canvas.Node{node("a", 0, 0), node("b", 0, 0), node("c", 0, 0)}
	edges := []canvas.Edge{
		{ID: "1", Source: "a", Target: "b"},
		{ID: "2", Source: "b", Target: "a"},
		{ID: "3", Source: "b", Target: "c"},
	}

	a := topology.NewAssigner(canvas.NewIndex(nodes), edges).Columns(canvas.RootScope)
	fmt.Println("Columns:", a.Columns())
	fmt.Println("Cycles:", a.Cycles)
	fmt.Println("Unreachable:", a.Unreachable)
	// Output:
	// Columns: 1
	// Cycles: [a b]
	// Unreachable: [c]
}

func ExampleInsert() {
	nodes := []canvas.Node{
		node("prompt", 0, 0),
		node("image", 300, 0),
		node("upscaled", -1, -1),
	}
	edges := []canvas.Edge{
		{ID: "1", Source: "prompt", Target: "image"},
		{ID: "2", Source: "image", Target: "upscaled"},
	}

	ins, _ := topology.Insert(nodes, edges, "upscaled", topology.DefaultOptions())
	fmt.Println("Column:", ins.Column)
	fmt.Println("Position:", ins.Position)
	// Output:
	// Column: 2
	// Position: (600,0)
}
