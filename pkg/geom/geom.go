package geom

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used by containment and equality checks.
const Epsilon = 1e-9

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Equal reports whether p and q are within Epsilon on both axes.
func (p Point) Equal(q Point) bool {
	return math.Abs(p.X-q.X) <= Epsilon && math.Abs(p.Y-q.Y) <= Epsilon
}

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

// Size is a width and height pair.
type Size struct {
	Width  float64 `json:"width" bson:"width" toml:"width" yaml:"width"`
	Height float64 `json:"height" bson:"height" toml:"height" yaml:"height"`
}

// IsZero reports whether either dimension is non-positive.
func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// Equal reports whether s and o are within Epsilon on both axes.
func (s Size) Equal(o Size) bool {
	return math.Abs(s.Width-o.Width) <= Epsilon && math.Abs(s.Height-o.Height) <= Epsilon
}

func (s Size) String() string { return fmt.Sprintf("%gx%g", s.Width, s.Height) }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// RectAt builds a rectangle from a position and a size.
func RectAt(p Point, s Size) Rect {
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Position returns the top-left corner.
func (r Rect) Position() Point { return Point{X: r.X, Y: r.Y} }

// Size returns the rectangle's dimensions.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Translate returns r moved by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// MoveTo returns r with its top-left corner at p.
func (r Rect) MoveTo(p Point) Rect {
	r.X, r.Y = p.X, p.Y
	return r
}

// Inflate grows r by pad on every side. A negative pad shrinks it.
func (r Rect) Inflate(pad float64) Rect {
	return Rect{X: r.X - pad, Y: r.Y - pad, Width: r.Width + 2*pad, Height: r.Height + 2*pad}
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Max(r.Right(), o.Right()) - x,
		Height: math.Max(r.Bottom(), o.Bottom()) - y,
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g,%g %gx%g]", r.X, r.Y, r.Width, r.Height)
}

// Overlaps reports whether a and b share interior area.
// Rectangles that only touch along an edge or corner do not overlap.
func Overlaps(a, b Rect) bool {
	return a.X < b.Right() && b.X < a.Right() &&
		a.Y < b.Bottom() && b.Y < a.Bottom()
}

// Contains reports whether inner lies entirely within outer.
// Shared edges count as contained.
func Contains(outer, inner Rect) bool {
	return inner.X >= outer.X-Epsilon &&
		inner.Y >= outer.Y-Epsilon &&
		inner.Right() <= outer.Right()+Epsilon &&
		inner.Bottom() <= outer.Bottom()+Epsilon
}

// Intersection returns the overlapping area of a and b.
// The second result is false when the rectangles do not overlap.
func Intersection(a, b Rect) (Rect, bool) {
	if !Overlaps(a, b) {
		return Rect{}, false
	}
	x := math.Max(a.X, b.X)
	y := math.Max(a.Y, b.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  math.Min(a.Right(), b.Right()) - x,
		Height: math.Min(a.Bottom(), b.Bottom()) - y,
	}, true
}

// Bounds returns the union of all rects. The second result is false for an
// empty input.
func Bounds(rects []Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	out := rects[0]
	for _, r := range rects[1:] {
		out = out.Union(r)
	}
	return out, true
}
