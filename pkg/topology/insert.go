package topology

import (
	"math"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// Insertion is the slot chosen for a new node.
type Insertion struct {
	NodeID   string
	Column   int
	Position geom.Point
	// Producers are the in-scope sources of the node's incoming edges.
	Producers []string
}

// Insert finds a slot for newID in its scope without moving anything else.
//
// The scope's columns are computed without newID and without any other node
// still waiting at the sentinel position. The new node goes one column right
// of its rightmost producer, or to column 0 without producers, below the
// existing content of that column.
func Insert(nodes []canvas.Node, edges []canvas.Edge, newID string, opts Options) (Insertion, bool) {
	ix := canvas.NewIndex(nodes)
	if !ix.Has(newID) {
		return Insertion{}, false
	}
	scope := ix.Parent(newID)

	exclude := []string{newID}
	for _, id := range ix.Scope(scope) {
		n, _ := ix.Node(id)
		if id != newID && canvas.NeedsLayout(n.Position) {
			exclude = append(exclude, id)
		}
	}

	assigner := NewAssigner(ix, edges, exclude...)
	a := assigner.Columns(scope)

	ins := Insertion{NodeID: newID}
	seen := make(map[string]bool)
	for _, e := range edges {
		if e.Target != newID || seen[e.Source] {
			continue
		}
		c, ok := a.Column[e.Source]
		if !ok {
			continue
		}
		seen[e.Source] = true
		ins.Producers = append(ins.Producers, e.Source)
		ins.Column = max(ins.Column, c+1)
	}

	origin := Origin(ix, scope, opts.GroupInset, exclude...)
	widths := Widths(ix, a)
	x := ColumnX(a, widths, origin.X, ins.Column, opts.ColumnGap)

	y := origin.Y
	if members := a.Members(ins.Column); len(members) > 0 {
		bottom := math.Inf(-1)
		for _, id := range members {
			r := ix.Rect(id)
			bottom = math.Max(bottom, r.Bottom())
		}
		y = bottom + opts.RowGap
	}

	ins.Position = geom.Point{X: x, Y: y}
	return ins, true
}

// ApplyInsertion returns a copy of nodes with the inserted node positioned.
func ApplyInsertion(nodes []canvas.Node, ins Insertion) []canvas.Node {
	out := canvas.CloneNodes(nodes)
	for i := range out {
		if out[i].ID == ins.NodeID {
			out[i].Position = ins.Position
			break
		}
	}
	return out
}
