// Package topology lays out a scope of the canvas as a left-to-right
// dependency flow.
//
// # Overview
//
// Edges on the canvas point from a producer to whatever consumes it: a prompt
// feeds an image generator, the image feeds a video. This package turns the
// edges of one scope into columns so that every producer sits left of its
// consumers, then stacks the members of each column vertically.
//
// The same core serves two entry points:
//
//   - [Layout] and [LayoutAll] recompute every position of a scope (full
//     relayout).
//   - [Insert] places a single new node next to its producers without moving
//     anything else (auto-insert).
//
// # Scope Graphs
//
// [Build] collects the members of one scope and the edges between them. An
// edge only counts when both endpoints exist and share the same parent, so
// edges crossing group boundaries never influence columns. Duplicate edges
// are counted once.
//
// # Column Assignment
//
// [Assigner] runs Kahn's algorithm per scope. A node's column is one more than
// the highest column among its producers, and sources start at 0. A group
// additionally never sits left of anything nested inside it: when a group
// becomes ready its column is raised to the highest column among all its
// descendants, which are resolved in their own scopes first. The Assigner
// memoizes every scope it has computed, so one Assigner answers repeated and
// recursive queries without recomputing.
//
// Nodes that Kahn's algorithm never releases lie on a cycle or behind one.
// A two-color depth-first search tells them apart for diagnostics
// ([Assignment.Cycles], [Assignment.Unreachable]); both are placed in
// column 0 so that a cycle never blocks a layout.
//
// # Packing
//
// [Pack] gives each column the width of its widest member and stacks the
// members top to bottom in [OrderFunc] order (by default the previous y, then
// id). Columns with no members take no horizontal space.
//
//	res := topology.Layout(nodes, edges, canvas.RootScope, topology.DefaultOptions())
//	for _, id := range res.Assignment(canvas.RootScope).Members(0) {
//	    fmt.Println(id) // first column, top to bottom
//	}
package topology
