// Package gridlayout snaps the members of one scope onto a grid inferred from
// where they already are.
//
// Rows are clusters of members whose vertical spans overlap enough (or whose
// centers are close); columns are found the same way horizontally, scanning
// row by row. Each row is as tall as its tallest member and each column as
// wide as its widest, so the result is a regular table that keeps the
// arrangement the user roughly had. Edges play no part: this is the "tidy
// up" command, not the dependency layout of package topology.
package gridlayout

import (
	"cmp"
	"math"
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// Align positions a member inside its cell.
type Align string

const (
	AlignCenter Align = "center"
	AlignStart  Align = "start"
)

// Defaults.
const (
	DefaultColumnGap        = 60.0
	DefaultRowGap           = 60.0
	DefaultOverlapThreshold = 0.5

	// maxNudges bounds the residual-overlap pass.
	maxNudges = 100
)

// Options configures the grid.
type Options struct {
	ColumnGap float64
	RowGap    float64
	// OverlapThreshold is the fraction of the shorter span two members must
	// share to fall into the same row (or column).
	OverlapThreshold float64
	Align            Align
}

// DefaultOptions returns centered cells with the default gaps.
func DefaultOptions() Options {
	return Options{
		ColumnGap:        DefaultColumnGap,
		RowGap:           DefaultRowGap,
		OverlapThreshold: DefaultOverlapThreshold,
		Align:            AlignCenter,
	}
}

func (o Options) withDefaults() Options {
	if o.OverlapThreshold <= 0 || o.OverlapThreshold > 1 {
		o.OverlapThreshold = DefaultOverlapThreshold
	}
	if o.Align == "" {
		o.Align = AlignCenter
	}
	return o
}

// Cell is a member's grid coordinate.
type Cell struct {
	Row, Col int
}

// Result is the outcome of a relayout.
type Result struct {
	Nodes []canvas.Node
	Cells map[string]Cell
	Rows  int
	Cols  int
	// Moved lists the nodes whose position changed, in snapshot order.
	Moved []string
	// Nudged lists the nodes pushed down to clear a residual overlap.
	Nudged []string
}

// span is a 1-D interval that grows as members join it.
type span struct {
	lo, hi  float64
	members []string
	order   int
}

func (s span) center() float64 { return (s.lo + s.hi) / 2 }

// matches reports whether [lo,hi) belongs with s.
func (s span) matches(lo, hi, threshold, closeness float64) bool {
	shared := math.Min(s.hi, hi) - math.Max(s.lo, lo)
	shorter := math.Min(s.hi-s.lo, hi-lo)
	if shorter > geom.Epsilon && shared/shorter >= threshold {
		return true
	}
	return math.Abs(s.center()-(lo+hi)/2) <= closeness
}

func (s *span) add(id string, lo, hi float64) {
	if len(s.members) == 0 {
		s.lo, s.hi = lo, hi
	} else {
		s.lo, s.hi = math.Min(s.lo, lo), math.Max(s.hi, hi)
	}
	s.members = append(s.members, id)
}

// Relayout arranges the members of scope parentID into a grid anchored at the
// scope's current top-left corner. Members still at the sentinel position
// and everything outside the scope are left alone.
func Relayout(nodes []canvas.Node, parentID string, opts Options) Result {
	opts = opts.withDefaults()
	out := canvas.CloneNodes(nodes)
	res := Result{Nodes: out, Cells: make(map[string]Cell)}

	ix := canvas.NewIndex(out)
	var members []string
	rects := make(map[string]geom.Rect)
	for _, id := range ix.Scope(parentID) {
		n, _ := ix.Node(id)
		if canvas.NeedsLayout(n.Position) {
			continue
		}
		members = append(members, id)
		rects[id] = ix.Rect(id)
	}
	if len(members) == 0 {
		return res
	}

	rows := clusterRows(members, rects, opts)
	cols := clusterColumns(rows, rects, opts)
	res.Rows, res.Cols = len(rows), len(cols)

	heights := make([]float64, len(rows))
	for r, row := range rows {
		for _, id := range row.members {
			heights[r] = math.Max(heights[r], rects[id].Height)
			res.Cells[id] = Cell{Row: r}
		}
	}
	widths := make([]float64, len(cols))
	for c, col := range cols {
		for _, id := range col.members {
			widths[c] = math.Max(widths[c], rects[id].Width)
			cell := res.Cells[id]
			cell.Col = c
			res.Cells[id] = cell
		}
	}

	bounds, _ := geom.Bounds(rectList(members, rects))
	origin := bounds.Position()
	ys := offsets(origin.Y, heights, opts.RowGap)
	xs := offsets(origin.X, widths, opts.ColumnGap)

	placed := make(map[string]geom.Rect, len(members))
	for _, id := range members {
		cell := res.Cells[id]
		r := rects[id]
		p := geom.Point{X: xs[cell.Col], Y: ys[cell.Row]}
		if opts.Align == AlignCenter {
			p.X += (widths[cell.Col] - r.Width) / 2
			p.Y += (heights[cell.Row] - r.Height) / 2
		}
		placed[id] = r.MoveTo(p)
	}

	res.Nudged = nudge(members, placed, opts.RowGap)

	for _, id := range members {
		i := ix.Position(id)
		p := placed[id].Position()
		if out[i].Position.Equal(p) {
			continue
		}
		out[i].Position = p
		res.Moved = append(res.Moved, id)
	}
	slices.SortStableFunc(res.Moved, func(a, b string) int {
		return cmp.Compare(ix.Position(a), ix.Position(b))
	})
	return res
}

// clusterRows groups members into rows ordered top to bottom.
func clusterRows(members []string, rects map[string]geom.Rect, opts Options) []*span {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b string) int {
		ra, rb := rects[a], rects[b]
		if c := cmp.Compare(ra.Y, rb.Y); c != 0 {
			return c
		}
		if c := cmp.Compare(ra.X, rb.X); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var rows []*span
	for _, id := range sorted {
		r := rects[id]
		var row *span
		for _, s := range rows {
			if s.matches(r.Y, r.Bottom(), opts.OverlapThreshold, opts.RowGap/2) {
				row = s
				break
			}
		}
		if row == nil {
			row = &span{order: len(rows)}
			rows = append(rows, row)
		}
		row.add(id, r.Y, r.Bottom())
	}
	slices.SortStableFunc(rows, func(a, b *span) int {
		if c := cmp.Compare(a.lo, b.lo); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	return rows
}

// clusterColumns scans rows top to bottom and assigns each member, left to
// right, to the first column it matches that no earlier member of the same
// row took. Columns are returned ordered left to right.
func clusterColumns(rows []*span, rects map[string]geom.Rect, opts Options) []*span {
	var cols []*span
	for _, row := range rows {
		ordered := slices.Clone(row.members)
		slices.SortStableFunc(ordered, func(a, b string) int {
			if c := cmp.Compare(rects[a].X, rects[b].X); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})

		taken := make(map[*span]bool)
		for _, id := range ordered {
			r := rects[id]
			var col *span
			for _, s := range cols {
				if !taken[s] && s.matches(r.X, r.Right(), opts.OverlapThreshold, opts.ColumnGap/2) {
					col = s
					break
				}
			}
			if col == nil {
				col = &span{order: len(cols)}
				cols = append(cols, col)
			}
			taken[col] = true
			col.add(id, r.X, r.Right())
		}
	}
	slices.SortStableFunc(cols, func(a, b *span) int {
		if c := cmp.Compare(a.center(), b.center()); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})
	return cols
}

// offsets returns the leading edge of every band given their sizes.
func offsets(origin float64, sizes []float64, gap float64) []float64 {
	out := make([]float64, len(sizes))
	at := origin
	for i, s := range sizes {
		out[i] = at
		at += s + gap
	}
	return out
}

// nudge pushes members down until no two placed rects overlap, for at most
// maxNudges passes. It returns the nudged ids in first-nudged order.
func nudge(members []string, placed map[string]geom.Rect, gap float64) []string {
	var nudged []string
	for pass := 0; pass < maxNudges; pass++ {
		moved := false
		for i, a := range members {
			for _, b := range members[i+1:] {
				ra, rb := placed[a], placed[b]
				if !geom.Overlaps(ra, rb) {
					continue
				}
				lower, upper := b, ra
				if rb.Y < ra.Y {
					lower, upper = a, rb
				}
				placed[lower] = placed[lower].MoveTo(geom.Point{X: placed[lower].X, Y: upper.Bottom() + gap})
				if !slices.Contains(nudged, lower) {
					nudged = append(nudged, lower)
				}
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return nudged
}

func rectList(ids []string, rects map[string]geom.Rect) []geom.Rect {
	out := make([]geom.Rect, len(ids))
	for i, id := range ids {
		out[i] = rects[id]
	}
	return out
}
