// Package autoscale grows groups so that they keep enclosing their children.
//
// Growth only ever goes up the hierarchy and only ever enlarges: a group is
// sized to the far edges of its direct children plus padding, floored at a
// minimum size, and never shrunk below what it already is. [Propagate] walks
// from a changed node to the root, recomputing each ancestor against sizes
// already grown earlier in the same walk, and returns the result as one map
// so that callers apply it atomically.
package autoscale

import (
	"cmp"
	"maps"
	"math"
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// DefaultPadding is the gap kept between a group's far edges and its content.
const DefaultPadding = 60.0

// Options configures group sizing.
type Options struct {
	Padding float64   `json:"padding" toml:"padding" yaml:"padding" validate:"gte=0"`
	MinSize geom.Size `json:"min_size" toml:"min_size" yaml:"min_size"`
}

// DefaultOptions returns the padding and minimum size used by the engine.
func DefaultOptions() Options {
	return Options{Padding: DefaultPadding, MinSize: canvas.MinGroupSize}
}

// GroupBounds returns the size groupID needs to enclose its direct children.
// Entries in sizes override a child's resolved size.
func GroupBounds(ix *canvas.Index, groupID string, sizes map[string]geom.Size, opts Options) geom.Size {
	var right, bottom float64
	for _, c := range ix.Children(groupID) {
		n, _ := ix.Node(c)
		s, ok := sizes[c]
		if !ok {
			s = canvas.ResolveSize(n)
		}
		right = math.Max(right, n.Position.X+s.Width)
		bottom = math.Max(bottom, n.Position.Y+s.Height)
	}
	return geom.Size{
		Width:  math.Max(right+opts.Padding, opts.MinSize.Width),
		Height: math.Max(bottom+opts.Padding, opts.MinSize.Height),
	}
}

// Propagate grows every ancestor group of nodeID that no longer encloses its
// content. The returned map holds only groups whose size changed.
func Propagate(ix *canvas.Index, nodeID string, opts Options) map[string]geom.Size {
	grown := make(map[string]geom.Size)
	for _, a := range ix.Ancestors(nodeID) {
		if !ix.IsGroup(a) {
			continue
		}
		grow(ix, a, grown, opts)
	}
	return grown
}

// FitAll grows every group in the snapshot, deepest first, so that nested
// growth is visible to outer groups.
func FitAll(ix *canvas.Index, opts Options) map[string]geom.Size {
	groups := slices.Clone(ix.Groups())
	slices.SortStableFunc(groups, func(a, b string) int {
		return cmp.Compare(ix.Depth(b), ix.Depth(a))
	})
	grown := make(map[string]geom.Size)
	for _, g := range groups {
		grow(ix, g, grown, opts)
	}
	return grown
}

// Fit returns the size groupID must grow to so that it encloses its direct
// children. The second result is false when it already does.
func Fit(ix *canvas.Index, groupID string, opts Options) (geom.Size, bool) {
	if !ix.IsGroup(groupID) {
		return geom.Size{}, false
	}
	grown := make(map[string]geom.Size, 1)
	grow(ix, groupID, grown, opts)
	s, ok := grown[groupID]
	return s, ok
}

func grow(ix *canvas.Index, groupID string, grown map[string]geom.Size, opts Options) {
	current := ix.Size(groupID)
	if s, ok := grown[groupID]; ok {
		current = s
	}
	need := GroupBounds(ix, groupID, grown, opts)
	if need.Width <= current.Width && need.Height <= current.Height {
		return
	}
	grown[groupID] = geom.Size{
		Width:  math.Max(current.Width, need.Width),
		Height: math.Max(current.Height, need.Height),
	}
}

// Apply returns a copy of nodes with the sizes in grown written back.
func Apply(nodes []canvas.Node, grown map[string]geom.Size) []canvas.Node {
	out := canvas.CloneNodes(nodes)
	if len(grown) == 0 {
		return out
	}
	for i := range out {
		if s, ok := grown[out[i].ID]; ok {
			out[i].Size = &s
		}
	}
	return out
}

// Grown returns the ids in grown in a stable order.
func Grown(grown map[string]geom.Size) []string {
	return slices.Sorted(maps.Keys(grown))
}
