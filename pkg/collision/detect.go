package collision

import (
	"math"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// Direction is the way a collided node should move to get clear.
type Direction string

const (
	Right Direction = "right"
	Left  Direction = "left"
	Down  Direction = "down"
	Up    Direction = "up"
)

// Contact describes how two rectangles overlap.
type Contact struct {
	Overlap geom.Rect
	// Direction is the way the second rectangle should move away from the
	// first.
	Direction Direction
}

// Collision is an overlap between two siblings. B is the node that would be
// pushed away from A.
type Collision struct {
	A, B string
	Contact
}

// Detect reports whether a and b overlap and, if so, which way b should move.
//
// The dominant axis of the center offset decides the direction. Ties favour
// right and down. When the centers coincide the axis with the thinner
// overlap wins since it is the cheaper one to clear.
func Detect(a, b geom.Rect) (Contact, bool) {
	overlap, ok := geom.Intersection(a, b)
	if !ok {
		return Contact{}, false
	}

	ac, bc := a.Center(), b.Center()
	dx, dy := bc.X-ac.X, bc.Y-ac.Y

	var dir Direction
	switch {
	case dx == 0 && dy == 0:
		if overlap.Width <= overlap.Height {
			dir = Right
		} else {
			dir = Down
		}
	case math.Abs(dx) >= math.Abs(dy):
		dir = Right
		if dx < 0 {
			dir = Left
		}
	default:
		dir = Down
		if dy < 0 {
			dir = Up
		}
	}
	return Contact{Overlap: overlap, Direction: dir}, true
}

// DetectOptions filters which siblings take part in detection.
type DetectOptions struct {
	ExcludeGroups bool
}

// DetectAll returns every overlapping pair in one scope. Pairs follow
// snapshot order with A before B.
func DetectAll(ix *canvas.Index, parentID string, opts DetectOptions) []Collision {
	members := scopeMembers(ix, parentID, opts.ExcludeGroups)
	var out []Collision
	for i, a := range members {
		ra := ix.Rect(a)
		for _, b := range members[i+1:] {
			if c, ok := Detect(ra, ix.Rect(b)); ok {
				out = append(out, Collision{A: a, B: b, Contact: c})
			}
		}
	}
	return out
}

// DetectForNode returns the siblings overlapping nodeID, with nodeID as A.
func DetectForNode(ix *canvas.Index, nodeID string, opts DetectOptions) []Collision {
	if !ix.Has(nodeID) || (opts.ExcludeGroups && ix.IsGroup(nodeID)) {
		return nil
	}
	ra := ix.Rect(nodeID)
	var out []Collision
	for _, b := range scopeMembers(ix, ix.Parent(nodeID), opts.ExcludeGroups) {
		if b == nodeID {
			continue
		}
		if c, ok := Detect(ra, ix.Rect(b)); ok {
			out = append(out, Collision{A: nodeID, B: b, Contact: c})
		}
	}
	return out
}

func scopeMembers(ix *canvas.Index, parentID string, excludeGroups bool) []string {
	scope := ix.Scope(parentID)
	if !excludeGroups {
		return scope
	}
	out := make([]string, 0, len(scope))
	for _, id := range scope {
		if !ix.IsGroup(id) {
			out = append(out, id)
		}
	}
	return out
}
