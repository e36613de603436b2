package engine

import (
	"slices"
	"testing"
	"time"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/collision"
	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

func leaf(id string, x, y, w, h float64) canvas.Node {
	return canvas.Node{ID: id, Kind: canvas.KindText, LayoutFields: canvas.LayoutFields{
		Position: geom.Point{X: x, Y: y},
		Size:     &geom.Size{Width: w, Height: h},
		ZIndex:   canvas.LeafZBase,
	}}
}

func group(id string, x, y, w, h float64) canvas.Node {
	return canvas.Node{ID: id, Kind: canvas.KindGroup, LayoutFields: canvas.LayoutFields{
		Position: geom.Point{X: x, Y: y},
		Size:     &geom.Size{Width: w, Height: h},
	}}
}

// child puts node one level under parent with the z-index it would derive.
func child(node canvas.Node, parent string) canvas.Node {
	node.ParentID = parent
	node.ZIndex++
	return node
}

func edge(src, dst string) canvas.Edge {
	return canvas.Edge{ID: src + "->" + dst, Source: src, Target: dst}
}

func find(t *testing.T, nodes []canvas.Node, id string) canvas.Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return canvas.Node{}
}

func testEngine() *Engine {
	return New(config.DefaultLayout(), WithHooks(&recorder{}))
}

type recorder struct {
	ops         []string
	unconverged []string
	fallbacks   []string
}

func (r *recorder) OnOperation(op string, _, _ int, _ time.Duration) { r.ops = append(r.ops, op) }
func (r *recorder) OnUnconverged(_, trigger string, _ int) {
	r.unconverged = append(r.unconverged, trigger)
}
func (r *recorder) OnMeshFallback(_, nodeID string) { r.fallbacks = append(r.fallbacks, nodeID) }

func TestNodeMovedYields(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		leaf("A", 0, 0, 100, 100),
		leaf("B", 50, 0, 100, 100),
	}}

	res := testEngine().NodeMoved(snap, "B")

	if got := find(t, res.Nodes, "B").Position; got != (geom.Point{X: 120, Y: 0}) {
		t.Errorf("B = %v, want (120,0)", got)
	}
	if got := find(t, res.Nodes, "A").Position; got != (geom.Point{}) {
		t.Errorf("A moved to %v", got)
	}
	if len(res.Patches) != 1 || res.Patches[0].ID != "B" || res.Patches[0].Fields.Position == nil {
		t.Errorf("Patches = %+v, want one position patch for B", res.Patches)
	}
	if !res.Converged || res.NoOp || res.FallbackUsed {
		t.Errorf("flags: converged=%v noop=%v fallback=%v", res.Converged, res.NoOp, res.FallbackUsed)
	}
	if snap.Nodes[1].Position.X != 50 {
		t.Error("input snapshot was modified")
	}
}

func TestNodeMovedReparents(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 100, 100, 400, 400),
		leaf("C", 150, 150, 50, 50),
	}}

	res := testEngine().NodeMoved(snap, "C")

	c := find(t, res.Nodes, "C")
	if c.ParentID != "G" || c.Position != (geom.Point{X: 50, Y: 50}) {
		t.Errorf("C = parent %q at %v, want G at (50,50)", c.ParentID, c.Position)
	}
	if c.ZIndex != canvas.LeafZBase+1 {
		t.Errorf("C.ZIndex = %d, want %d", c.ZIndex, canvas.LeafZBase+1)
	}
	if len(res.Grown) != 0 {
		t.Errorf("Grown = %v, want none", res.Grown)
	}
}

func TestNodeMovedOutOfGroup(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 0, 0, 400, 400),
		child(leaf("C", 500, 20, 50, 50), "G"),
	}}

	res := testEngine().NodeMoved(snap, "C")

	c := find(t, res.Nodes, "C")
	if c.ParentID != canvas.RootScope || c.Position != (geom.Point{X: 500, Y: 20}) {
		t.Errorf("C = parent %q at %v, want root at (500,20)", c.ParentID, c.Position)
	}
	if c.ZIndex != canvas.LeafZBase {
		t.Errorf("C.ZIndex = %d, want %d", c.ZIndex, canvas.LeafZBase)
	}
}

func TestNodeMovedGrowsGroupAndPushesSibling(t *testing.T) {
	c := child(leaf("C", 40, 20, 100, 50), "G")
	c.Confined = true
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 0, 0, 200, 200),
		child(leaf("D", 0, 20, 100, 50), "G"),
		c,
		leaf("S", 220, 0, 100, 100),
	}}

	res := testEngine().NodeMoved(snap, "C")

	got := find(t, res.Nodes, "C")
	if got.ParentID != "G" || got.Position != (geom.Point{X: 120, Y: 20}) {
		t.Errorf("C = parent %q at %v, want G at (120,20)", got.ParentID, got.Position)
	}
	if got.Confined {
		t.Error("C is still confined after the drop")
	}
	g := find(t, res.Nodes, "G")
	if size := canvas.ResolveSize(g); size != (geom.Size{Width: 280, Height: 200}) {
		t.Errorf("G size = %v, want 280x200", size)
	}
	if pos := find(t, res.Nodes, "S").Position; pos != (geom.Point{X: 300, Y: 0}) {
		t.Errorf("S = %v, want (300,0)", pos)
	}
	if !slices.Equal(res.Grown, []string{"G"}) {
		t.Errorf("Grown = %v, want [G]", res.Grown)
	}
	assertNoOverlap(t, res.Nodes, canvas.RootScope)
	assertNoOverlap(t, res.Nodes, "G")
	assertContained(t, res.Nodes)
}

func TestNodeMovedConfinedNodeIsReparented(t *testing.T) {
	n := child(leaf("N", 150, 150, 100, 100), "G")
	n.Confined = true
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 0, 0, 1000, 1000),
		child(group("S", 100, 100, 400, 400), "G"),
		n,
	}}

	res := testEngine().NodeMoved(snap, "N")

	got := find(t, res.Nodes, "N")
	if got.ParentID != "S" || got.Position != (geom.Point{X: 50, Y: 50}) {
		t.Errorf("N = parent %q at %v, want S at (50,50)", got.ParentID, got.Position)
	}
	if got.Confined {
		t.Error("N is still confined after the drop")
	}
	var patched bool
	for _, p := range res.Patches {
		if p.ID == "N" && p.Fields.Confined != nil && !*p.Fields.Confined {
			patched = true
		}
	}
	if !patched {
		t.Errorf("Patches = %+v, want N's confine marker cleared", res.Patches)
	}
	assertContained(t, res.Nodes)
}

func TestCollisionInsideGroupKeepsContainment(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []canvas.Node
		run     func(*Engine, canvas.Snapshot) Result
		id      string
		wantPos geom.Point
	}{
		{
			name: "moved node yields to the right",
			nodes: []canvas.Node{
				group("G", 500, 500, 400, 400),
				child(leaf("A", 40, 20, 100, 100), "G"),
				child(leaf("B", 0, 20, 100, 100), "G"),
			},
			run:     func(e *Engine, s canvas.Snapshot) Result { return e.NodeMoved(s, "B") },
			id:      "B",
			wantPos: geom.Point{X: 160, Y: 20},
		},
		{
			name: "moved node yields downward",
			nodes: []canvas.Node{
				group("G", 500, 500, 400, 400),
				child(leaf("A", 20, 40, 100, 100), "G"),
				child(leaf("B", 20, 0, 100, 100), "G"),
			},
			run:     func(e *Engine, s canvas.Snapshot) Result { return e.NodeMoved(s, "B") },
			id:      "B",
			wantPos: geom.Point{X: 20, Y: 160},
		},
		{
			name: "resized node pushes sibling right",
			nodes: []canvas.Node{
				group("G", 0, 0, 400, 400),
				child(leaf("A", 0, 0, 200, 100), "G"),
				child(leaf("B", 20, 0, 100, 100), "G"),
			},
			run:     func(e *Engine, s canvas.Snapshot) Result { return e.NodeResized(s, "A") },
			id:      "B",
			wantPos: geom.Point{X: 220, Y: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.run(testEngine(), canvas.Snapshot{Nodes: tt.nodes})

			got := find(t, res.Nodes, tt.id)
			if got.ParentID != "G" || got.Position != tt.wantPos {
				t.Errorf("%s = parent %q at %v, want G at %v", tt.id, got.ParentID, got.Position, tt.wantPos)
			}
			assertNoOverlap(t, res.Nodes, "G")
			assertContained(t, res.Nodes)
		})
	}
}

func TestNodeResizedPushes(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		leaf("A", 0, 0, 200, 100),
		leaf("B", 150, 0, 100, 100),
	}}

	res := testEngine().NodeResized(snap, "A")

	if got := find(t, res.Nodes, "A").Position; got != (geom.Point{}) {
		t.Errorf("resized node moved to %v", got)
	}
	if got := find(t, res.Nodes, "B").Position; got != (geom.Point{X: 220, Y: 0}) {
		t.Errorf("B = %v, want (220,0)", got)
	}
	if len(res.Steps) != 1 || res.Steps[0].CausedBy != "A" {
		t.Errorf("Steps = %+v", res.Steps)
	}
}

func TestNodeResizedGroupFitsChildren(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 0, 0, 200, 200),
		child(leaf("C", 100, 20, 150, 50), "G"),
	}}

	res := testEngine().NodeResized(snap, "G")

	if got := canvas.ResolveSize(find(t, res.Nodes, "G")); got != (geom.Size{Width: 310, Height: 200}) {
		t.Errorf("G size = %v, want 310x200", got)
	}
}

func TestNodeAddedAfterProducer(t *testing.T) {
	snap := canvas.Snapshot{
		Nodes: []canvas.Node{
			leaf("P", 0, 0, 100, 100),
			leaf("E", 200, 0, 100, 100),
			leaf("D", -1, -1, 100, 100),
		},
		Edges: []canvas.Edge{edge("P", "E"), edge("E", "D")},
	}

	res := testEngine().NodeAdded(snap, "D")

	if got := find(t, res.Nodes, "D").Position; got != (geom.Point{X: 400, Y: 0}) {
		t.Errorf("D = %v, want (400,0)", got)
	}
	if res.Columns["D"] != 2 {
		t.Errorf("Columns = %v, want D in column 2", res.Columns)
	}
	if len(res.Patches) != 1 || res.Patches[0].ID != "D" {
		t.Errorf("Patches = %+v, want only D", res.Patches)
	}
}

func TestNodeAddedBlockedSlot(t *testing.T) {
	rec := &recorder{}
	snap := canvas.Snapshot{
		Nodes: []canvas.Node{
			leaf("P", 0, 0, 100, 100),
			leaf("E", 200, 0, 100, 100),
			leaf("X", 400, 0, 100, 100),
			leaf("D", -1, -1, 100, 100),
		},
		Edges: []canvas.Edge{edge("P", "E"), edge("E", "D")},
	}

	res := New(config.DefaultLayout(), WithHooks(rec)).NodeAdded(snap, "D")

	if got := find(t, res.Nodes, "D").Position; got != (geom.Point{X: 520, Y: 0}) {
		t.Errorf("D = %v, want (520,0)", got)
	}
	if res.FallbackUsed || len(rec.fallbacks) != 0 {
		t.Errorf("fallback reported for a free slot: %v", rec.fallbacks)
	}
	assertNoOverlap(t, res.Nodes, canvas.RootScope)
}

func TestNodeAddedAtPosition(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 0, 0, 400, 400),
		leaf("N", 40, 40, 100, 100),
	}}

	res := testEngine().NodeAdded(snap, "N")

	if n := find(t, res.Nodes, "N"); n.ParentID != "G" || n.Position != (geom.Point{X: 40, Y: 40}) {
		t.Errorf("N = parent %q at %v, want G at (40,40)", n.ParentID, n.Position)
	}
}

func TestRelayoutChain(t *testing.T) {
	snap := canvas.Snapshot{
		Nodes: []canvas.Node{
			leaf("A", 0, 0, 100, 100),
			leaf("B", 0, 300, 100, 100),
			leaf("C", 0, 600, 100, 100),
		},
		Edges: []canvas.Edge{edge("A", "B"), edge("B", "C")},
	}

	res := testEngine().Relayout(snap, canvas.RootScope, false)

	want := map[string]geom.Point{"A": {X: 0, Y: 0}, "B": {X: 200, Y: 0}, "C": {X: 400, Y: 0}}
	for id, p := range want {
		if got := find(t, res.Nodes, id).Position; got != p {
			t.Errorf("%s = %v, want %v", id, got, p)
		}
	}
	if res.Columns["A"] != 0 || res.Columns["B"] != 1 || res.Columns["C"] != 2 {
		t.Errorf("Columns = %v", res.Columns)
	}
}

func TestRelayoutAllGrowsGroups(t *testing.T) {
	snap := canvas.Snapshot{
		Nodes: []canvas.Node{
			group("G", 0, 0, 200, 200),
			child(leaf("X", 40, 40, 100, 100), "G"),
			child(leaf("Y", 40, 200, 100, 100), "G"),
		},
		Edges: []canvas.Edge{edge("X", "Y")},
	}

	res := testEngine().Relayout(snap, canvas.RootScope, true)

	if got := find(t, res.Nodes, "Y").Position; got != (geom.Point{X: 240, Y: 40}) {
		t.Errorf("Y = %v, want (240,40)", got)
	}
	if got := canvas.ResolveSize(find(t, res.Nodes, "G")); got != (geom.Size{Width: 400, Height: 200}) {
		t.Errorf("G size = %v, want 400x200", got)
	}
	if !slices.Equal(res.Grown, []string{"G"}) {
		t.Errorf("Grown = %v", res.Grown)
	}
}

func TestTidy(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		leaf("a", 0, 0, 100, 100),
		leaf("b", 210, 10, 100, 80),
		leaf("c", 5, 190, 120, 100),
		leaf("d", 200, 205, 100, 100),
	}}

	res := testEngine().Tidy(snap, canvas.RootScope)

	want := map[string]geom.Point{
		"a": {X: 10, Y: 0},
		"b": {X: 180, Y: 10},
		"c": {X: 0, Y: 160},
		"d": {X: 180, Y: 160},
	}
	for id, p := range want {
		if got := find(t, res.Nodes, id).Position; got != p {
			t.Errorf("%s = %v, want %v", id, got, p)
		}
	}
	if len(res.Patches) != 4 {
		t.Errorf("Patches = %d, want 4", len(res.Patches))
	}
}

func TestMaintainIdempotent(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		group("G", 0, 0, 200, 200),
		{ID: "C", Kind: canvas.KindText, LayoutFields: canvas.LayoutFields{
			Position: geom.Point{X: 150, Y: 150}, Size: &geom.Size{Width: 100, Height: 100}, ParentID: "G",
		}},
	}}
	eng := testEngine()

	first := eng.Maintain(snap)
	if first.NoOp {
		t.Fatal("first Maintain reported NoOp on an inconsistent snapshot")
	}
	if got := canvas.ResolveSize(find(t, first.Nodes, "G")); got != (geom.Size{Width: 310, Height: 310}) {
		t.Errorf("G size = %v, want 310x310", got)
	}
	if got := find(t, first.Nodes, "C").ZIndex; got != canvas.LeafZBase+1 {
		t.Errorf("C.ZIndex = %d", got)
	}

	second := eng.Maintain(first.Snapshot())
	if !second.NoOp || len(second.Patches) != 0 {
		t.Errorf("second Maintain: NoOp=%v patches=%+v", second.NoOp, second.Patches)
	}
}

func TestUnknownTargets(t *testing.T) {
	snap := canvas.Snapshot{Nodes: []canvas.Node{leaf("A", 0, 0, 100, 100)}}
	eng := testEngine()

	tests := []struct {
		name string
		run  func() Result
	}{
		{"moved", func() Result { return eng.NodeMoved(snap, "nope") }},
		{"resized", func() Result { return eng.NodeResized(snap, "nope") }},
		{"added", func() Result { return eng.NodeAdded(snap, "nope") }},
		{"relayout", func() Result { return eng.Relayout(snap, "nope", false) }},
		{"tidy", func() Result { return eng.Tidy(snap, "A") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.run()
			if !res.NoOp || len(res.Patches) != 0 {
				t.Errorf("NoOp=%v patches=%+v", res.NoOp, res.Patches)
			}
			if len(res.Nodes) != 1 || res.Nodes[0].Position != snap.Nodes[0].Position {
				t.Errorf("Nodes = %+v", res.Nodes)
			}
		})
	}
}

func TestHooks(t *testing.T) {
	rec := &recorder{}
	eng := New(config.DefaultLayout(), WithHooks(rec))
	snap := canvas.Snapshot{Nodes: []canvas.Node{leaf("A", 0, 0, 100, 100), leaf("B", 50, 0, 100, 100)}}

	eng.NodeMoved(snap, "B")
	eng.Maintain(snap)
	eng.NodeMoved(snap, "missing")

	if !slices.Equal(rec.ops, []string{"moved", "maintain"}) {
		t.Errorf("ops = %v", rec.ops)
	}
	if len(rec.unconverged) != 0 {
		t.Errorf("unconverged = %v", rec.unconverged)
	}
}

func TestUnconvergedReported(t *testing.T) {
	cfg := config.DefaultLayout()
	cfg.Collision.MaxIterations = 1
	rec := &recorder{}
	eng := New(cfg, WithHooks(rec))

	// B lands on A and pushes it right, onto C.
	snap := canvas.Snapshot{Nodes: []canvas.Node{
		leaf("A", 0, 0, 100, 100),
		leaf("C", 140, 0, 100, 100),
		leaf("B", 0, 0, 100, 100),
	}}
	res := eng.NodeResized(snap, "B")

	if res.Converged {
		t.Fatalf("Converged = true with steps %+v", res.Steps)
	}
	if !slices.Equal(rec.unconverged, []string{"B"}) {
		t.Errorf("unconverged = %v", rec.unconverged)
	}
}

// assertContained fails when a child's absolute rect leaves its parent's.
func assertContained(t *testing.T, nodes []canvas.Node) {
	t.Helper()
	ix := canvas.NewIndex(nodes)
	for _, n := range nodes {
		parent := ix.Parent(n.ID)
		if parent == canvas.RootScope {
			continue
		}
		if outer, inner := ix.AbsoluteRect(parent), ix.AbsoluteRect(n.ID); !geom.Contains(outer, inner) {
			t.Errorf("%s %v escapes parent %s %v", n.ID, inner, parent, outer)
		}
	}
}

func assertNoOverlap(t *testing.T, nodes []canvas.Node, scope string) {
	t.Helper()
	ix := canvas.NewIndex(nodes)
	if pairs := collision.DetectAll(ix, scope, collision.DetectOptions{}); len(pairs) > 0 {
		t.Errorf("overlaps in scope %q: %+v", scope, pairs)
	}
}
