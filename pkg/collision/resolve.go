package collision

import (
	"math"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/geom"
	"github.com/hrhrng/clash-sub002/pkg/mesh"
)

// DefaultMaxIterations bounds the depth of a chain reaction.
const DefaultMaxIterations = 50

// Options configures a resolution run.
type Options struct {
	// MaxIterations bounds the number of chain-reaction waves that may push
	// nodes. Zero uses DefaultMaxIterations.
	MaxIterations int
	ExcludeGroups bool
	// Anchored keeps the trigger in place; it displaces what it overlaps
	// instead of yielding to it.
	Anchored bool
}

// Step records one push.
type Step struct {
	NodeID    string
	From      geom.Point
	To        geom.Point
	CausedBy  string
	Iteration int
	Fallback  bool
}

// Result is the outcome of [Resolve].
type Result struct {
	Nodes []canvas.Node
	Steps []Step
	// Converged is false when MaxIterations ran out with collisions left.
	// Nodes still holds every push made until then.
	Converged bool
	// Iterations counts the waves that pushed at least one node.
	Iterations   int
	FallbackUsed bool
}

// Moved returns the ids pushed during the run, in push order.
func (r Result) Moved() []string {
	out := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		out = append(out, s.NodeID)
	}
	return out
}

type resolver struct {
	ix      *canvas.Index
	mesh    *mesh.Mesh
	scope   []string
	bounded bool
	work    map[string]geom.Rect
	settled map[string]bool
	res     *Result
}

// Resolve clears the overlaps caused by triggerID among its siblings.
//
// The first wave handles the trigger: unless opts.Anchored, it is the
// intruder and is pushed off whatever it landed on. Every later wave lets the
// nodes pushed in the previous wave displace the siblings they now overlap,
// which produces the chain reaction. A displaced node is placed with the mesh
// so that it avoids every node already settled in this run, hence no node
// moves twice and the run ends after at most one wave per sibling.
//
// Positions are tracked in a working map and written back in one batch.
// The input slice is never modified.
func Resolve(nodes []canvas.Node, triggerID string, m *mesh.Mesh, opts Options) Result {
	res := Result{Nodes: canvas.CloneNodes(nodes), Converged: true}
	ix := canvas.NewIndex(nodes)
	if !ix.Has(triggerID) || (opts.ExcludeGroups && ix.IsGroup(triggerID)) {
		return res
	}
	if m == nil {
		m = mesh.New(mesh.DefaultConfig())
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	r := &resolver{
		ix:      ix,
		mesh:    m,
		scope:   scopeMembers(ix, ix.Parent(triggerID), opts.ExcludeGroups),
		bounded: ix.IsGroup(ix.Parent(triggerID)),
		work:    make(map[string]geom.Rect),
		settled: make(map[string]bool),
		res:     &res,
	}
	for _, id := range r.scope {
		r.work[id] = ix.Rect(id)
	}

	if !opts.Anchored && r.yield(triggerID) {
		res.Iterations++
	}
	r.settled[triggerID] = true

	for checks := []string{triggerID}; len(checks) > 0; {
		canPush := res.Iterations < maxIter
		next, blocked := r.wave(checks, res.Iterations+1, canPush)
		if blocked {
			res.Converged = false
			break
		}
		if len(next) > 0 {
			res.Iterations++
		}
		checks = next
	}

	r.writeBack()
	return res
}

// yield pushes the trigger off its obstacles. It reports whether it moved.
func (r *resolver) yield(id string) bool {
	rect := r.work[id]
	var obstacles []geom.Rect
	primary := ""
	var primaryArea float64
	for _, other := range r.scope {
		if other == id {
			continue
		}
		c, ok := Detect(r.work[other], rect)
		if !ok {
			continue
		}
		obstacles = append(obstacles, r.work[other])
		if area := c.Overlap.Width * c.Overlap.Height; primary == "" || area > primaryArea {
			primary, primaryArea = other, area
		}
	}
	if primary == "" {
		return false
	}

	r.place(id, r.target(rect, r.work[primary]), obstacles, primary, 0)
	return true
}

// wave lets every node in checks displace the unsettled siblings it overlaps.
// With canPush false it only looks; finding a collision then reports blocked.
func (r *resolver) wave(checks []string, iteration int, canPush bool) (next []string, blocked bool) {
	for _, id := range checks {
		for _, other := range r.scope {
			if other == id || r.settled[other] {
				continue
			}
			if !geom.Overlaps(r.work[id], r.work[other]) {
				continue
			}
			if !canPush {
				return nil, true
			}
			rect := r.work[other]
			r.place(other, r.target(rect, r.work[id]), r.settledRects(), id, iteration)
			r.settled[other] = true
			next = append(next, other)
		}
	}
	return next, false
}

// target returns where rect should go to clear obstacle. Inside a group,
// positions are relative to the group and the group only grows right and
// down, so a push that would cross its top or left edge goes to the far side
// of the obstacle instead, and the result never drops below the origin.
func (r *resolver) target(rect, obstacle geom.Rect) geom.Point {
	pad := r.mesh.Padding()
	p := rect.Position().Add(mesh.CalculatePushVector(rect, obstacle, pad))
	if !r.bounded {
		return p
	}
	if p.X < 0 {
		p.X = obstacle.Right() + pad
	}
	if p.Y < 0 {
		p.Y = obstacle.Bottom() + pad
	}
	return geom.Point{X: math.Max(p.X, 0), Y: math.Max(p.Y, 0)}
}

func (r *resolver) place(id string, target geom.Point, occupied []geom.Rect, causedBy string, iteration int) {
	rect := r.work[id]
	p := r.mesh.FindNonOverlappingPosition(target, rect.Size(), occupied)
	r.work[id] = rect.MoveTo(p.Position)
	if p.Fallback {
		r.res.FallbackUsed = true
	}
	r.res.Steps = append(r.res.Steps, Step{
		NodeID:    id,
		From:      rect.Position(),
		To:        p.Position,
		CausedBy:  causedBy,
		Iteration: iteration,
		Fallback:  p.Fallback,
	})
}

func (r *resolver) settledRects() []geom.Rect {
	out := make([]geom.Rect, 0, len(r.settled))
	for _, id := range r.scope {
		if r.settled[id] {
			out = append(out, r.work[id])
		}
	}
	return out
}

func (r *resolver) writeBack() {
	for _, s := range r.res.Steps {
		i := r.ix.Position(s.NodeID)
		r.res.Nodes[i].Position = r.work[s.NodeID].Position()
	}
}
