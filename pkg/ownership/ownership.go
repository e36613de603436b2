// Package ownership decides which group owns a node after it was dropped.
//
// A group is a candidate owner when its absolute rectangle fully contains the
// node's absolute rectangle. The node itself and its own descendants are
// never candidates, so a drop can not create a parent cycle. Among several
// candidates the innermost visible one wins: highest derived z-index, then
// greatest depth, then smallest id. Without a candidate the node moves to the
// root scope.
//
// Resolution only reads the snapshot; [Apply] produces the rewritten copy.
package ownership

import (
	"cmp"
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// Decision is the resolved owner of a node.
type Decision struct {
	NodeID string
	// ParentID is the owning group, or canvas.RootScope.
	ParentID string
	// Position is the node's position relative to ParentID.
	Position geom.Point
	// Changed reports whether ParentID differs from the node's current parent.
	Changed bool
}

type candidate struct {
	id    string
	z     int
	depth int
}

// Resolve finds the owner of nodeID given its absolute rectangle abs.
// The second result is false when nodeID is not in the index.
func Resolve(ix *canvas.Index, nodeID string, abs geom.Rect) (Decision, bool) {
	node, ok := ix.Node(nodeID)
	if !ok {
		return Decision{}, false
	}

	excluded := map[string]bool{nodeID: true}
	for _, d := range ix.Descendants(nodeID) {
		excluded[d] = true
	}

	var cands []candidate
	for _, g := range ix.Groups() {
		if excluded[g] {
			continue
		}
		if geom.Contains(ix.AbsoluteRect(g), abs) {
			cands = append(cands, candidate{id: g, z: canvas.DerivedZIndex(ix, g), depth: ix.Depth(g)})
		}
	}

	parent := canvas.RootScope
	if len(cands) > 0 {
		best := slices.MinFunc(cands, func(a, b candidate) int {
			if c := cmp.Compare(b.z, a.z); c != 0 {
				return c
			}
			if c := cmp.Compare(b.depth, a.depth); c != 0 {
				return c
			}
			return cmp.Compare(a.id, b.id)
		})
		parent = best.id
	}

	pos := abs.Position()
	if parent != canvas.RootScope {
		pos = pos.Sub(ix.AbsolutePosition(parent))
	}

	current := node.ParentID
	if !ix.Has(current) {
		current = canvas.RootScope
	}
	return Decision{
		NodeID:   nodeID,
		ParentID: parent,
		Position: pos,
		Changed:  parent != current,
	}, true
}

// ResolveNode resolves the owner of nodeID at its current position.
func ResolveNode(nodes []canvas.Node, nodeID string) (Decision, bool) {
	ix := canvas.NewIndex(nodes)
	if !ix.Has(nodeID) {
		return Decision{}, false
	}
	return Resolve(ix, nodeID, ix.AbsoluteRect(nodeID))
}

// Apply returns a copy of nodes with d written back. The node's confine
// marker is always cleared. Reparenting a group under another group also
// lifts its z-index above the new parent.
func Apply(nodes []canvas.Node, d Decision) []canvas.Node {
	out := canvas.CloneNodes(nodes)
	ix := canvas.NewIndex(out)
	i := ix.Position(d.NodeID)
	if i < 0 {
		return out
	}

	n := &out[i]
	n.ParentID = d.ParentID
	n.Position = d.Position
	n.Confined = false
	if !d.Changed {
		return out
	}
	if n.IsGroup() {
		if parent, ok := ix.Node(d.ParentID); ok && parent.IsGroup() {
			n.ZIndex = canvas.NestedGroupZIndex(parent)
		}
	}
	return out
}
