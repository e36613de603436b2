package autoscale

import (
	"testing"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

func node(id string, kind canvas.Kind, parent string, x, y, w, h float64) canvas.Node {
	return canvas.Node{ID: id, Kind: kind, LayoutFields: canvas.LayoutFields{
		Position: geom.Point{X: x, Y: y}, Size: &geom.Size{Width: w, Height: h}, ParentID: parent,
	}}
}

func TestGroupBounds(t *testing.T) {
	opts := Options{Padding: 60, MinSize: geom.Size{Width: 200, Height: 200}}

	t.Run("child far from origin", func(t *testing.T) {
		nodes := []canvas.Node{
			node("G", canvas.KindGroup, "", 0, 0, 200, 200),
			node("c", canvas.KindText, "G", 300, 300, 50, 50),
		}
		got := GroupBounds(canvas.NewIndex(nodes), "G", nil, opts)
		if got.Width < 410 || got.Height < 410 {
			t.Errorf("GroupBounds = %v, want at least 410x410", got)
		}
	})

	t.Run("empty group is floored", func(t *testing.T) {
		nodes := []canvas.Node{node("G", canvas.KindGroup, "", 0, 0, 50, 50)}
		got := GroupBounds(canvas.NewIndex(nodes), "G", nil, opts)
		if got != opts.MinSize {
			t.Errorf("GroupBounds = %v, want %v", got, opts.MinSize)
		}
	})

	t.Run("overrides win", func(t *testing.T) {
		nodes := []canvas.Node{
			node("G", canvas.KindGroup, "", 0, 0, 200, 200),
			node("c", canvas.KindGroup, "G", 10, 10, 50, 50),
		}
		got := GroupBounds(canvas.NewIndex(nodes), "G", map[string]geom.Size{"c": {Width: 500, Height: 20}}, opts)
		if got != (geom.Size{Width: 570, Height: 200}) {
			t.Errorf("GroupBounds = %v", got)
		}
	})
}

func TestPropagateNested(t *testing.T) {
	nodes := []canvas.Node{
		node("outer", canvas.KindGroup, "", 0, 0, 400, 400),
		node("inner", canvas.KindGroup, "outer", 100, 100, 250, 250),
		node("leaf", canvas.KindText, "inner", 200, 200, 100, 100),
	}
	ix := canvas.NewIndex(nodes)
	grown := Propagate(ix, "leaf", DefaultOptions())

	if got := grown["inner"]; got != (geom.Size{Width: 360, Height: 360}) {
		t.Errorf("inner = %v, want 360x360", got)
	}
	if got := grown["outer"]; got != (geom.Size{Width: 520, Height: 520}) {
		t.Errorf("outer = %v, want 520x520", got)
	}

	out := Apply(nodes, grown)
	after := canvas.NewIndex(out)
	for _, pair := range [][2]string{{"outer", "inner"}, {"inner", "leaf"}} {
		if !geom.Contains(after.AbsoluteRect(pair[0]), after.AbsoluteRect(pair[1])) {
			t.Errorf("%s does not contain %s after propagation", pair[0], pair[1])
		}
	}
}

func TestPropagateNeverShrinks(t *testing.T) {
	nodes := []canvas.Node{
		node("G", canvas.KindGroup, "", 0, 0, 1000, 1000),
		node("c", canvas.KindText, "G", 10, 10, 50, 50),
	}
	grown := Propagate(canvas.NewIndex(nodes), "c", DefaultOptions())
	if len(grown) != 0 {
		t.Errorf("expected no growth, got %v", grown)
	}
}

func TestPropagateGrowsOneAxis(t *testing.T) {
	nodes := []canvas.Node{
		node("G", canvas.KindGroup, "", 0, 0, 1000, 200),
		node("c", canvas.KindText, "G", 10, 150, 50, 50),
	}
	grown := Propagate(canvas.NewIndex(nodes), "c", DefaultOptions())
	if got := grown["G"]; got != (geom.Size{Width: 1000, Height: 260}) {
		t.Errorf("G = %v, want 1000x260", got)
	}
}

func TestFitAll(t *testing.T) {
	nodes := []canvas.Node{
		node("outer", canvas.KindGroup, "", 0, 0, 200, 200),
		node("inner", canvas.KindGroup, "outer", 50, 50, 200, 200),
		node("leaf", canvas.KindText, "inner", 300, 0, 100, 100),
	}
	grown := FitAll(canvas.NewIndex(nodes), DefaultOptions())
	if got := grown["inner"]; got.Width != 460 {
		t.Errorf("inner width = %v, want 460", got.Width)
	}
	if got := grown["outer"]; got.Width != 570 {
		t.Errorf("outer width = %v, want 570", got.Width)
	}
	if ids := Grown(grown); len(ids) != 2 || ids[0] != "inner" {
		t.Errorf("Grown = %v", ids)
	}
}

func TestFit(t *testing.T) {
	nodes := []canvas.Node{
		node("G", canvas.KindGroup, "", 0, 0, 200, 200),
		node("c", canvas.KindText, "G", 100, 20, 150, 50),
		node("leaf", canvas.KindText, "", 0, 0, 10, 10),
	}
	ix := canvas.NewIndex(nodes)
	if got, ok := Fit(ix, "G", DefaultOptions()); !ok || got != (geom.Size{Width: 310, Height: 200}) {
		t.Errorf("Fit(G) = %v, %v", got, ok)
	}
	if _, ok := Fit(ix, "leaf", DefaultOptions()); ok {
		t.Error("Fit on a leaf should report no growth")
	}
}
