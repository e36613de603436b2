package engine

import (
	"cmp"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hrhrng/clash-sub002/pkg/autoscale"
	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/collision"
	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/geom"
	"github.com/hrhrng/clash-sub002/pkg/gridlayout"
	"github.com/hrhrng/clash-sub002/pkg/mesh"
	"github.com/hrhrng/clash-sub002/pkg/observability"
	"github.com/hrhrng/clash-sub002/pkg/ownership"
	"github.com/hrhrng/clash-sub002/pkg/topology"
)

// =============================================================================
// Operations and Results
// =============================================================================

// Op names an engine operation.
type Op string

const (
	OpMoved    Op = "moved"
	OpResized  Op = "resized"
	OpAdded    Op = "added"
	OpRelayout Op = "relayout"
	OpTidy     Op = "tidy"
	OpMaintain Op = "maintain"
)

// Ops lists every operation in a stable order.
var Ops = []Op{OpMoved, OpResized, OpAdded, OpRelayout, OpTidy, OpMaintain}

// Result is the outcome of one operation.
type Result struct {
	Op    Op
	Nodes []canvas.Node
	Edges []canvas.Edge
	// Patches lists the changed layout fields per node, in snapshot order.
	Patches []canvas.Patch
	// Converged is false when a collision run hit its iteration bound.
	Converged bool
	// FallbackUsed is set when a placement gave up on the mesh search and
	// parked a node below all content.
	FallbackUsed bool
	// NoOp reports that the operation changed nothing.
	NoOp  bool
	Steps []collision.Step
	// Columns holds the column of every node placed by a dependency layout
	// or an auto-insert.
	Columns map[string]int
	// Grown lists the groups whose size increased.
	Grown []string
}

// Snapshot returns the result as a snapshot for the next operation.
func (r Result) Snapshot() canvas.Snapshot {
	return canvas.Snapshot{Nodes: r.Nodes, Edges: r.Edges}
}

// =============================================================================
// Engine
// =============================================================================

// Engine runs layout operations with a fixed configuration.
type Engine struct {
	cfg    config.Layout
	mesh   *mesh.Mesh
	logger *log.Logger
	hooks  observability.EngineHooks
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithHooks sets the observability hooks. Without this option the engine
// reports to the globally registered [observability.Engine] hooks.
func WithHooks(h observability.EngineHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// New creates an engine.
func New(cfg config.Layout, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, mesh: mesh.New(cfg.Mesh)}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return e
}

// Config returns the engine's tunables.
func (e *Engine) Config() config.Layout { return e.cfg }

func (e *Engine) engineHooks() observability.EngineHooks {
	if e.hooks != nil {
		return e.hooks
	}
	return observability.Engine()
}

// run tracks one operation from its input snapshot to its result.
type run struct {
	e       *Engine
	op      Op
	trigger string
	start   time.Time
	before  []canvas.Node
	nodes   []canvas.Node
	res     Result
	grown   map[string]geom.Size
}

func (e *Engine) begin(op Op, snap canvas.Snapshot, trigger string) *run {
	return &run{
		e:       e,
		op:      op,
		trigger: trigger,
		start:   time.Now(),
		before:  snap.Nodes,
		nodes:   canvas.CloneNodes(snap.Nodes),
		res: Result{
			Op:        op,
			Edges:     slices.Clone(snap.Edges),
			Converged: true,
		},
		grown: make(map[string]geom.Size),
	}
}

func (r *run) index() *canvas.Index { return canvas.NewIndex(r.nodes) }

// grow applies group growth and remembers which groups grew.
func (r *run) grow(grown map[string]geom.Size) {
	if len(grown) == 0 {
		return
	}
	r.nodes = autoscale.Apply(r.nodes, grown)
	maps.Copy(r.grown, grown)
}

func (r *run) propagate(id string) map[string]geom.Size {
	grown := autoscale.Propagate(r.index(), id, r.e.cfg.AutoScale)
	r.grow(grown)
	return grown
}

func (r *run) collide(trigger string, anchored bool) collision.Result {
	cr := collision.Resolve(r.nodes, trigger, r.e.mesh, r.e.cfg.CollisionOptions(anchored))
	r.nodes = cr.Nodes
	r.res.Steps = append(r.res.Steps, cr.Steps...)
	if cr.FallbackUsed {
		r.res.FallbackUsed = true
		for _, s := range cr.Steps {
			if s.Fallback {
				r.fallback(s.NodeID)
			}
		}
	}
	if !cr.Converged {
		r.res.Converged = false
		r.e.logger.Warn("collision resolution did not converge",
			"op", r.op, "trigger", trigger, "iterations", cr.Iterations)
		r.e.engineHooks().OnUnconverged(string(r.op), trigger, cr.Iterations)
	}
	return cr
}

func (r *run) fallback(id string) {
	r.e.logger.Error("no free slot found, parked node below content", "op", r.op, "node", id)
	r.e.engineHooks().OnMeshFallback(string(r.op), id)
}

// settle lets every grown group push the siblings it now overlaps, deepest
// group first. Pushing may grow an outer group, which is then settled too.
// Each group is settled at most once.
func (r *run) settle(grown map[string]geom.Size) {
	pending := maps.Clone(grown)
	done := make(map[string]bool)
	for len(pending) > 0 {
		ix := r.index()
		ids := slices.Collect(maps.Keys(pending))
		g := slices.MinFunc(ids, func(a, b string) int {
			if c := cmp.Compare(ix.Depth(b), ix.Depth(a)); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		delete(pending, g)
		done[g] = true

		if cr := r.collide(g, true); len(cr.Steps) == 0 {
			continue
		}
		for id := range r.propagate(g) {
			if !done[id] {
				pending[id] = geom.Size{}
			}
		}
	}
}

func (r *run) finish() Result {
	r.nodes = canvas.DeriveZIndex(r.nodes)
	r.res.Nodes = r.nodes
	r.res.Patches = canvas.Diff(r.before, r.nodes)
	r.res.NoOp = len(r.res.Patches) == 0
	r.res.Grown = autoscale.Grown(r.grown)

	d := time.Since(r.start)
	r.e.logger.Debug("layout operation",
		"op", r.op,
		"trigger", r.trigger,
		"nodes", len(r.nodes),
		"patches", len(r.res.Patches),
		"duration", d)
	r.e.engineHooks().OnOperation(string(r.op), len(r.nodes), len(r.res.Patches), d)
	return r.res
}

// noop returns an unchanged result for an operation that had nothing to do.
func (r *run) noop() Result {
	r.res.Nodes = r.nodes
	r.res.NoOp = true
	r.e.logger.Debug("layout operation skipped", "op", r.op, "trigger", r.trigger)
	return r.res
}

// =============================================================================
// Gestures
// =============================================================================

// NodeMoved handles the end of a drag of id.
//
// The node is reparented to the innermost group that fully contains it and
// its confine marker is cleared, since the drag is over. Ancestors grow to
// enclose it, the node yields to whatever it landed on, and every group that
// grew displaces the siblings it now overlaps.
func (e *Engine) NodeMoved(snap canvas.Snapshot, id string) Result {
	r := e.begin(OpMoved, snap, id)
	ix := r.index()
	n, ok := ix.Node(id)
	if !ok {
		return r.noop()
	}

	if d, ok := ownership.Resolve(ix, id, ix.AbsoluteRect(id)); ok {
		if d.Changed {
			e.logger.Debug("reparented node", "node", id, "parent", d.ParentID, "confined", n.Confined)
		}
		r.nodes = ownership.Apply(r.nodes, d)
	}

	grown := r.propagate(id)
	if cr := r.collide(id, false); len(cr.Steps) > 0 {
		maps.Copy(grown, r.propagate(id))
	}
	r.settle(grown)
	return r.finish()
}

// NodeResized handles the end of a resize of id. The snapshot already holds
// the new size. The resized node keeps its place and pushes its siblings.
func (e *Engine) NodeResized(snap canvas.Snapshot, id string) Result {
	r := e.begin(OpResized, snap, id)
	ix := r.index()
	if !ix.Has(id) {
		return r.noop()
	}

	if s, ok := autoscale.Fit(ix, id, e.cfg.AutoScale); ok {
		r.grow(map[string]geom.Size{id: s})
	}
	grown := r.propagate(id)
	if cr := r.collide(id, true); len(cr.Steps) > 0 {
		maps.Copy(grown, r.propagate(id))
	}
	r.settle(grown)
	return r.finish()
}

// NodeAdded places a node the host just created.
//
// A node at [canvas.SentinelPosition] is slotted one column right of its
// rightmost producer without moving anything else. When that slot would
// overlap a sibling, the mesh finds the nearest free slot instead. Any other
// node is handled like a drop at its given position.
func (e *Engine) NodeAdded(snap canvas.Snapshot, id string) Result {
	r := e.begin(OpAdded, snap, id)
	ix := r.index()
	n, ok := ix.Node(id)
	if !ok {
		return r.noop()
	}

	if !canvas.NeedsLayout(n.Position) {
		if d, ok := ownership.Resolve(ix, id, ix.AbsoluteRect(id)); ok {
			r.nodes = ownership.Apply(r.nodes, d)
		}
		r.collide(id, false)
	} else {
		ins, _ := topology.Insert(r.nodes, snap.Edges, id, e.cfg.TopologyOptions())
		ins.Position = r.unblock(ix, id, ins.Position)
		r.nodes = topology.ApplyInsertion(r.nodes, ins)
		r.res.Columns = map[string]int{id: ins.Column}
		e.logger.Debug("inserted node", "node", id, "column", ins.Column,
			"position", ins.Position, "producers", ins.Producers)
	}

	r.settle(r.propagate(id))
	return r.finish()
}

// unblock returns slot if id fits there, or the nearest free mesh slot.
func (r *run) unblock(ix *canvas.Index, id string, slot geom.Point) geom.Point {
	size := ix.Size(id)
	rect := geom.RectAt(slot, size)

	var occupied []geom.Rect
	blocked := false
	for _, s := range ix.Siblings(id) {
		n, _ := ix.Node(s)
		if canvas.NeedsLayout(n.Position) {
			continue
		}
		sr := ix.Rect(s)
		occupied = append(occupied, sr)
		if geom.Overlaps(rect, sr) {
			blocked = true
		}
	}
	if !blocked {
		return slot
	}

	p := r.e.mesh.FindNonOverlappingPosition(slot, size, occupied)
	if p.Fallback {
		r.res.FallbackUsed = true
		r.fallback(id)
	}
	return p.Position
}

// =============================================================================
// Commands
// =============================================================================

// Relayout arranges scope parentID by dependency columns. With all set it
// lays out every scope instead, innermost groups first, growing each group
// before its parent scope is packed.
func (e *Engine) Relayout(snap canvas.Snapshot, parentID string, all bool) Result {
	trigger := parentID
	if all {
		trigger = "*"
	}
	r := e.begin(OpRelayout, snap, trigger)
	ix := r.index()
	if !all && parentID != canvas.RootScope && !ix.IsGroup(parentID) {
		return r.noop()
	}

	opts := e.cfg.TopologyOptions()
	var tr topology.Result
	if all {
		tr = topology.LayoutAll(r.nodes, snap.Edges, opts, r.fitScope)
	} else {
		tr = topology.Layout(r.nodes, snap.Edges, parentID, opts)
	}
	r.nodes = tr.Nodes

	r.res.Columns = make(map[string]int)
	for _, a := range tr.Assignments {
		maps.Copy(r.res.Columns, a.Column)
		if len(a.Cycles) > 0 {
			e.logger.Debug("cycle members placed in column 0", "scope", a.Scope, "nodes", a.Cycles)
		}
	}

	r.grow(autoscale.FitAll(r.index(), e.cfg.AutoScale))
	return r.finish()
}

func (r *run) fitScope(nodes []canvas.Node, groupID string) []canvas.Node {
	s, ok := autoscale.Fit(canvas.NewIndex(nodes), groupID, r.e.cfg.AutoScale)
	if !ok {
		return nodes
	}
	r.grown[groupID] = s
	return autoscale.Apply(nodes, map[string]geom.Size{groupID: s})
}

// Tidy snaps the members of scope parentID onto a grid of rows and columns
// that follows their current arrangement.
func (e *Engine) Tidy(snap canvas.Snapshot, parentID string) Result {
	r := e.begin(OpTidy, snap, parentID)
	ix := r.index()
	if parentID != canvas.RootScope && !ix.IsGroup(parentID) {
		return r.noop()
	}

	gr := gridlayout.Relayout(r.nodes, parentID, e.cfg.GridOptions())
	r.nodes = gr.Nodes
	if len(gr.Nudged) > 0 {
		e.logger.Warn("grid cells overlapped, nudged nodes", "scope", parentID, "nodes", gr.Nudged)
	}

	r.grow(autoscale.FitAll(r.index(), e.cfg.AutoScale))
	return r.finish()
}

// Maintain re-derives every z-index and grows every group that no longer
// encloses its children. It is idempotent: on its own output it reports
// NoOp.
func (e *Engine) Maintain(snap canvas.Snapshot) Result {
	r := e.begin(OpMaintain, snap, "")
	r.grow(autoscale.FitAll(r.index(), e.cfg.AutoScale))
	return r.finish()
}
