package canvas

import (
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// RootScope is the parent id of top-level nodes.
const RootScope = ""

// Index is a read-only view over a node slice with hierarchy lookups.
//
// The zero value is not usable; build one with [NewIndex]. An Index never
// modifies the slice it was built from. It must be rebuilt after the
// snapshot changes.
type Index struct {
	nodes    []Node
	pos      map[string]int
	parent   map[string]string   // effective parent, RootScope when dangling
	children map[string][]string // parent id -> child ids in input order
}

// NewIndex indexes nodes. Later duplicates of an id are ignored.
func NewIndex(nodes []Node) *Index {
	ix := &Index{
		nodes:    nodes,
		pos:      make(map[string]int, len(nodes)),
		parent:   make(map[string]string, len(nodes)),
		children: make(map[string][]string),
	}
	for i, n := range nodes {
		if _, dup := ix.pos[n.ID]; dup {
			continue
		}
		ix.pos[n.ID] = i
	}
	for i, n := range nodes {
		if ix.pos[n.ID] != i {
			continue
		}
		p := n.ParentID
		if _, ok := ix.pos[p]; !ok || p == n.ID {
			p = RootScope
		}
		ix.parent[n.ID] = p
		ix.children[p] = append(ix.children[p], n.ID)
	}
	return ix
}

// Nodes returns the indexed slice. Callers must not modify it.
func (ix *Index) Nodes() []Node { return ix.nodes }

// Len returns the number of distinct node ids.
func (ix *Index) Len() int { return len(ix.pos) }

// Has reports whether id is in the snapshot.
func (ix *Index) Has(id string) bool {
	_, ok := ix.pos[id]
	return ok
}

// Node returns the node with the given id.
func (ix *Index) Node(id string) (Node, bool) {
	i, ok := ix.pos[id]
	if !ok {
		return Node{}, false
	}
	return ix.nodes[i], true
}

// Position returns the slice index of id, or -1.
func (ix *Index) Position(id string) int {
	if i, ok := ix.pos[id]; ok {
		return i
	}
	return -1
}

// IsGroup reports whether id names a group node.
func (ix *Index) IsGroup(id string) bool {
	n, ok := ix.Node(id)
	return ok && n.IsGroup()
}

// Parent returns the effective parent of id. A dangling parent id resolves
// to [RootScope].
func (ix *Index) Parent(id string) string { return ix.parent[id] }

// Children returns the direct children of id in snapshot order.
func (ix *Index) Children(id string) []string { return ix.children[id] }

// Scope returns the members of a scope: the direct children of parentID, or
// the top-level nodes for [RootScope].
func (ix *Index) Scope(parentID string) []string { return ix.children[parentID] }

// Siblings returns the other members of id's scope.
func (ix *Index) Siblings(id string) []string {
	if !ix.Has(id) {
		return nil
	}
	scope := ix.children[ix.parent[id]]
	out := make([]string, 0, len(scope))
	for _, s := range scope {
		if s != id {
			out = append(out, s)
		}
	}
	return out
}

// Ancestors returns the parent chain of id, nearest first.
// The walk stops at the first repeated id if the parent links are corrupt.
func (ix *Index) Ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for p := ix.parent[id]; p != RootScope; p = ix.parent[p] {
		if seen[p] {
			break
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Descendants returns every node nested under id in pre-order.
func (ix *Index) Descendants(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	var walk func(string)
	walk = func(p string) {
		for _, c := range ix.children[p] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// IsDescendant reports whether id is nested, at any depth, under ancestor.
func (ix *Index) IsDescendant(id, ancestor string) bool {
	return slices.Contains(ix.Ancestors(id), ancestor)
}

// Depth returns the number of ancestors of id.
func (ix *Index) Depth(id string) int { return len(ix.Ancestors(id)) }

// Root returns the outermost ancestor of id, or id itself at root scope.
func (ix *Index) Root(id string) string {
	anc := ix.Ancestors(id)
	if len(anc) == 0 {
		return id
	}
	return anc[len(anc)-1]
}

// Groups returns the ids of all group nodes in snapshot order.
func (ix *Index) Groups() []string {
	var out []string
	for i, n := range ix.nodes {
		if n.IsGroup() && ix.pos[n.ID] == i {
			out = append(out, n.ID)
		}
	}
	return out
}

// Size returns the resolved size of id, or the zero size if it is unknown.
func (ix *Index) Size(id string) geom.Size {
	n, ok := ix.Node(id)
	if !ok {
		return geom.Size{}
	}
	return ResolveSize(n)
}

// Rect returns id's rectangle relative to its parent.
func (ix *Index) Rect(id string) geom.Rect {
	n, ok := ix.Node(id)
	if !ok {
		return geom.Rect{}
	}
	return Rect(n)
}

// AbsolutePosition returns the canvas position of id by summing positions
// along its parent chain.
func (ix *Index) AbsolutePosition(id string) geom.Point {
	n, ok := ix.Node(id)
	if !ok {
		return geom.Point{}
	}
	p := n.Position
	for _, a := range ix.Ancestors(id) {
		an, _ := ix.Node(a)
		p = p.Add(an.Position)
	}
	return p
}

// AbsoluteRect returns id's rectangle in canvas coordinates.
func (ix *Index) AbsoluteRect(id string) geom.Rect {
	return geom.RectAt(ix.AbsolutePosition(id), ix.Size(id))
}

// AbsolutePosition resolves the canvas position of n against nodes.
// It is a convenience for one-off lookups; build an [Index] for repeated use.
func AbsolutePosition(n Node, nodes []Node) geom.Point {
	ix := NewIndex(nodes)
	p := n.Position
	if !ix.Has(n.ParentID) || n.ParentID == n.ID {
		return p
	}
	return p.Add(ix.AbsolutePosition(n.ParentID))
}

// AbsoluteRect resolves the canvas rectangle of n against nodes.
func AbsoluteRect(n Node, nodes []Node) geom.Rect {
	return geom.RectAt(AbsolutePosition(n, nodes), ResolveSize(n))
}
