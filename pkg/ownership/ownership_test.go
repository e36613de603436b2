package ownership

import (
	"testing"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

func group(id, parent string, x, y, w, h float64) canvas.Node {
	return canvas.Node{ID: id, Kind: canvas.KindGroup, LayoutFields: canvas.LayoutFields{
		Position: geom.Point{X: x, Y: y}, Size: &geom.Size{Width: w, Height: h}, ParentID: parent,
	}}
}

func leaf(id, parent string, x, y, w, h float64) canvas.Node {
	return canvas.Node{ID: id, Kind: canvas.KindText, LayoutFields: canvas.LayoutFields{
		Position: geom.Point{X: x, Y: y}, Size: &geom.Size{Width: w, Height: h}, ParentID: parent,
	}}
}

func TestResolveDropIntoGroup(t *testing.T) {
	nodes := []canvas.Node{
		group("G", "", 100, 100, 400, 400),
		leaf("C", "", 150, 200, 50, 50),
	}

	d, ok := ResolveNode(nodes, "C")
	if !ok {
		t.Fatal("C not found")
	}
	if d.ParentID != "G" || !d.Changed {
		t.Fatalf("decision = %+v, want parent G", d)
	}
	if d.Position != (geom.Point{X: 50, Y: 100}) {
		t.Errorf("relative position = %v, want (50,100)", d.Position)
	}

	out := Apply(nodes, d)
	ix := canvas.NewIndex(out)
	if got := ix.AbsolutePosition("C"); got != (geom.Point{X: 150, Y: 200}) {
		t.Errorf("absolute position changed to %v", got)
	}
	if nodes[1].ParentID != "" {
		t.Error("Apply mutated its input")
	}
}

func TestResolvePrefersInnermostGroup(t *testing.T) {
	nodes := []canvas.Node{
		group("outer", "", 0, 0, 1000, 1000),
		group("inner", "outer", 100, 100, 400, 400),
		group("peer", "", 50, 50, 600, 600),
		leaf("n", "", 200, 200, 10, 10),
	}
	d, _ := ResolveNode(nodes, "n")
	if d.ParentID != "inner" {
		t.Errorf("ParentID = %q, want inner", d.ParentID)
	}
	if d.Position != (geom.Point{X: 100, Y: 100}) {
		t.Errorf("Position = %v", d.Position)
	}
}

func TestResolveTieBreaksOnID(t *testing.T) {
	nodes := []canvas.Node{
		group("b", "", 0, 0, 500, 500),
		group("a", "", 0, 0, 500, 500),
		leaf("n", "", 10, 10, 10, 10),
	}
	d, _ := ResolveNode(nodes, "n")
	if d.ParentID != "a" {
		t.Errorf("ParentID = %q, want a", d.ParentID)
	}
}

func TestResolveMovesOutToRoot(t *testing.T) {
	nodes := []canvas.Node{
		group("G", "", 100, 100, 200, 200),
		leaf("C", "G", 500, 500, 50, 50),
	}
	d, _ := ResolveNode(nodes, "C")
	if d.ParentID != canvas.RootScope || !d.Changed {
		t.Fatalf("decision = %+v, want root", d)
	}
	if d.Position != (geom.Point{X: 600, Y: 600}) {
		t.Errorf("Position = %v, want absolute (600,600)", d.Position)
	}
}

func TestResolveExcludesSelfAndDescendants(t *testing.T) {
	nodes := []canvas.Node{
		group("G", "", 0, 0, 400, 400),
		group("child", "G", 0, 0, 400, 400),
	}
	ix := canvas.NewIndex(nodes)
	d, _ := Resolve(ix, "G", ix.AbsoluteRect("G"))
	if d.ParentID != canvas.RootScope {
		t.Errorf("group adopted by its own descendant: %+v", d)
	}
}

func TestApplyClearsConfinedAndBumpsNestedGroup(t *testing.T) {
	outer := group("outer", "", 0, 0, 1000, 1000)
	outer.ZIndex = 4
	g := group("g", "", 100, 100, 300, 300)
	g.Confined = true
	nodes := []canvas.Node{outer, g}

	d, _ := ResolveNode(nodes, "g")
	out := Apply(nodes, d)
	got := out[1]
	if got.ParentID != "outer" || got.Confined {
		t.Errorf("got %+v", got.LayoutFields)
	}
	if got.ZIndex != 5 {
		t.Errorf("ZIndex = %d, want 5", got.ZIndex)
	}
}

func TestApplyClearsConfinedWithoutReparenting(t *testing.T) {
	n := leaf("n", "G", 20, 20, 50, 50)
	n.Confined = true
	nodes := []canvas.Node{group("G", "", 0, 0, 400, 400), n}

	d, _ := ResolveNode(nodes, "n")
	if d.Changed || d.ParentID != "G" {
		t.Fatalf("decision = %+v, want G unchanged", d)
	}
	got := Apply(nodes, d)[1]
	if got.Confined {
		t.Error("Confined survived an applied decision")
	}
	if got.Position != (geom.Point{X: 20, Y: 20}) {
		t.Errorf("Position = %v, want (20,20)", got.Position)
	}
	if !nodes[1].Confined {
		t.Error("input mutated")
	}
}

func TestResolveUnknownNode(t *testing.T) {
	if _, ok := ResolveNode(nil, "missing"); ok {
		t.Error("expected not found")
	}
}
