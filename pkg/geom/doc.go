// Package geom provides the rectangle and point primitives shared by every
// layout stage.
//
// # Coordinates
//
// All values are float64 canvas units with the origin at the top-left and y
// growing downward. A [Rect] is described by its top-left corner and its size;
// [Rect.Right] and [Rect.Bottom] are exclusive edges.
//
// # Predicates
//
// [Overlaps] is strict: two rectangles that share only an edge do not overlap.
// [Contains] is non-strict: an inner rectangle touching the outer edges is
// still contained. Containment tolerates [Epsilon] of floating point drift so
// that positions recomputed through a parent chain still compare equal.
//
//	a := geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}
//	b := geom.Rect{X: 100, Y: 0, Width: 50, Height: 50}
//	geom.Overlaps(a, b) // false, the rectangles only touch
package geom
