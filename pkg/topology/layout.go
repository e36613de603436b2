package topology

import (
	"cmp"
	"math"
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// Default spacing.
const (
	DefaultColumnGap  = 100.0
	DefaultRowGap     = 50.0
	DefaultGroupInset = 40.0
)

// Options configures packing.
type Options struct {
	ColumnGap float64
	RowGap    float64
	// CenterInColumn centers members narrower than their column.
	CenterInColumn bool
	// GroupInset is the origin used for an empty group scope.
	GroupInset float64
	// Order sorts members within a column. Nil uses ByPosition.
	Order OrderFunc
}

// DefaultOptions returns the spacing used by the engine.
func DefaultOptions() Options {
	return Options{
		ColumnGap:  DefaultColumnGap,
		RowGap:     DefaultRowGap,
		GroupInset: DefaultGroupInset,
		Order:      ByPosition,
	}
}

// Widths returns the width of every column of a: the widest member, or 0 for
// an empty column.
func Widths(ix *canvas.Index, a *Assignment) []float64 {
	out := make([]float64, a.Columns())
	for c := range out {
		for _, id := range a.Members(c) {
			out[c] = math.Max(out[c], ix.Size(id).Width)
		}
	}
	return out
}

// ColumnX returns the left edge of column col. Empty columns to its left
// contribute neither width nor gap.
func ColumnX(a *Assignment, widths []float64, origin float64, col int, gap float64) float64 {
	x := origin
	for c := 0; c < col && c < len(widths); c++ {
		if len(a.Members(c)) == 0 {
			continue
		}
		x += widths[c] + gap
	}
	return x
}

// Pack computes the position of every member of a, with the first column's
// left edge and the first row's top edge at origin.
func Pack(ix *canvas.Index, a *Assignment, origin geom.Point, opts Options) map[string]geom.Point {
	widths := Widths(ix, a)
	out := make(map[string]geom.Point)
	for c := 0; c < a.Columns(); c++ {
		members := a.Ordered(c, opts.Order)
		if len(members) == 0 {
			continue
		}
		x := ColumnX(a, widths, origin.X, c, opts.ColumnGap)
		y := origin.Y
		for _, id := range members {
			s := ix.Size(id)
			px := x
			if opts.CenterInColumn {
				px += (widths[c] - s.Width) / 2
			}
			out[id] = geom.Point{X: px, Y: y}
			y += s.Height + opts.RowGap
		}
	}
	return out
}

// Origin returns the top-left corner of the scope's current content, skipping
// the given ids and nodes still at the sentinel position. An empty root scope
// starts at (0,0), an empty group at its inset.
func Origin(ix *canvas.Index, parentID string, inset float64, skip ...string) geom.Point {
	first := true
	var p geom.Point
	for _, id := range ix.Scope(parentID) {
		n, _ := ix.Node(id)
		if canvas.NeedsLayout(n.Position) || slices.Contains(skip, id) {
			continue
		}
		if first {
			p, first = n.Position, false
			continue
		}
		p.X = math.Min(p.X, n.Position.X)
		p.Y = math.Min(p.Y, n.Position.Y)
	}
	if first && parentID != canvas.RootScope {
		return geom.Point{X: inset, Y: inset}
	}
	return p
}

// Result is the outcome of a full relayout.
type Result struct {
	Nodes []canvas.Node
	// Assignments holds the column assignment of every scope laid out.
	Assignments map[string]*Assignment
	// Moved lists the nodes whose position changed, in snapshot order.
	Moved []string
}

// Assignment returns the assignment of scope parentID, or nil.
func (r Result) Assignment(parentID string) *Assignment { return r.Assignments[parentID] }

// Layout recomputes the positions of every member of scope parentID.
// The scope keeps its top-left corner; nodes outside the scope are untouched.
func Layout(nodes []canvas.Node, edges []canvas.Edge, parentID string, opts Options) Result {
	out := canvas.CloneNodes(nodes)
	res := Result{Nodes: out, Assignments: make(map[string]*Assignment)}
	layoutScope(&res, edges, parentID, opts)
	return res
}

// FitFunc lets a caller adjust the snapshot after a scope was laid out,
// typically to grow the group that owns it.
type FitFunc func(nodes []canvas.Node, parentID string) []canvas.Node

// LayoutAll lays out every scope, deepest groups first, then the root.
// When fit is non-nil it runs after each group scope so that outer scopes see
// the group's final size.
func LayoutAll(nodes []canvas.Node, edges []canvas.Edge, opts Options, fit FitFunc) Result {
	res := Result{Nodes: canvas.CloneNodes(nodes), Assignments: make(map[string]*Assignment)}

	ix := canvas.NewIndex(res.Nodes)
	groups := slices.Clone(ix.Groups())
	slices.SortStableFunc(groups, func(a, b string) int {
		return cmp.Compare(ix.Depth(b), ix.Depth(a))
	})

	for _, g := range groups {
		layoutScope(&res, edges, g, opts)
		if fit != nil {
			res.Nodes = fit(res.Nodes, g)
		}
	}
	layoutScope(&res, edges, canvas.RootScope, opts)
	return res
}

func layoutScope(res *Result, edges []canvas.Edge, parentID string, opts Options) {
	ix := canvas.NewIndex(res.Nodes)
	if len(ix.Scope(parentID)) == 0 {
		return
	}
	a := NewAssigner(ix, edges).Columns(parentID)
	res.Assignments[parentID] = a

	origin := Origin(ix, parentID, opts.GroupInset)
	for id, p := range Pack(ix, a, origin, opts) {
		i := ix.Position(id)
		if res.Nodes[i].Position.Equal(p) {
			continue
		}
		res.Nodes[i].Position = p
		if !slices.Contains(res.Moved, id) {
			res.Moved = append(res.Moved, id)
		}
	}
	slices.SortStableFunc(res.Moved, func(a, b string) int {
		return cmp.Compare(ix.Position(a), ix.Position(b))
	})
}
