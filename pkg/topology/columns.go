package topology

import (
	"cmp"
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
)

// OrderFunc orders two members of the same column.
type OrderFunc func(a, b canvas.Node) int

// ByPosition orders by previous y, then id. It keeps a relayout close to
// the vertical order the user already had.
func ByPosition(a, b canvas.Node) int {
	if c := cmp.Compare(a.Position.Y, b.Position.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Assignment is the column layout of one scope.
type Assignment struct {
	Scope  string
	Column map[string]int
	// Cycles lists members that lie on a dependency cycle.
	Cycles []string
	// Unreachable lists members blocked behind a cycle without being on one.
	Unreachable []string

	ix      *canvas.Index
	members [][]string
}

// Columns returns the number of columns, including empty ones.
func (a *Assignment) Columns() int { return len(a.members) }

// Members returns the members of column col in snapshot order.
func (a *Assignment) Members(col int) []string {
	if col < 0 || col >= len(a.members) {
		return nil
	}
	return a.members[col]
}

// Ordered returns the members of column col sorted by order.
func (a *Assignment) Ordered(col int, order OrderFunc) []string {
	if order == nil {
		order = ByPosition
	}
	out := slices.Clone(a.Members(col))
	slices.SortStableFunc(out, func(x, y string) int {
		nx, _ := a.ix.Node(x)
		ny, _ := a.ix.Node(y)
		return order(nx, ny)
	})
	return out
}

// Assigner computes and memoizes column assignments for a snapshot.
// It is not safe for concurrent use.
type Assigner struct {
	ix      *canvas.Index
	edges   []canvas.Edge
	exclude []string

	scopes  map[string]*Assignment
	column  map[string]int
	running map[string]bool
}

// NewAssigner creates an assigner over ix. Nodes in exclude take no part in
// any scope graph.
func NewAssigner(ix *canvas.Index, edges []canvas.Edge, exclude ...string) *Assigner {
	return &Assigner{
		ix:      ix,
		edges:   edges,
		exclude: exclude,
		scopes:  make(map[string]*Assignment),
		column:  make(map[string]int),
		running: make(map[string]bool),
	}
}

// Graph builds the dependency graph of a scope with this assigner's
// exclusions.
func (s *Assigner) Graph(parentID string) *Graph {
	return Build(s.ix, s.edges, parentID, s.exclude...)
}

// Column returns the memoized column of id, computing its scope if needed.
func (s *Assigner) Column(id string) (int, bool) {
	if c, ok := s.column[id]; ok {
		return c, true
	}
	if !s.ix.Has(id) {
		return 0, false
	}
	s.Columns(s.ix.Parent(id))
	c, ok := s.column[id]
	return c, ok
}

// Columns returns the assignment of scope parentID.
func (s *Assigner) Columns(parentID string) *Assignment {
	if a, ok := s.scopes[parentID]; ok {
		return a
	}
	s.running[parentID] = true
	defer delete(s.running, parentID)

	g := s.Graph(parentID)
	a := &Assignment{Scope: parentID, Column: make(map[string]int, len(g.Nodes)), ix: s.ix}

	indeg := make(map[string]int, len(g.InDegree))
	for k, v := range g.InDegree {
		indeg[k] = v
	}
	dep := make(map[string]int)
	queue := g.Sources()

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		c := dep[n]
		if s.ix.IsGroup(n) {
			c = max(c, s.descendantMax(n))
		}
		a.Column[n] = c

		for _, t := range g.Out[n] {
			dep[t] = max(dep[t], c+1)
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}

	var leftover []string
	for _, n := range g.Nodes {
		if _, ok := a.Column[n]; !ok {
			leftover = append(leftover, n)
		}
	}
	if len(leftover) > 0 {
		a.Cycles, a.Unreachable = classifyBlocked(g, leftover)
		for _, n := range leftover {
			a.Column[n] = 0
		}
	}

	for _, n := range g.Nodes {
		c := a.Column[n]
		for len(a.members) <= c {
			a.members = append(a.members, nil)
		}
		a.members[c] = append(a.members[c], n)
		s.column[n] = c
	}

	s.scopes[parentID] = a
	return a
}

// descendantMax returns the highest column among everything nested in group,
// resolving each descendant in its own scope.
func (s *Assigner) descendantMax(group string) int {
	best := 0
	for _, d := range s.ix.Descendants(group) {
		c, ok := s.column[d]
		if !ok {
			scope := s.ix.Parent(d)
			if s.running[scope] {
				continue
			}
			s.Columns(scope)
			c, ok = s.column[d]
			if !ok {
				continue
			}
		}
		best = max(best, c)
	}
	return best
}

// classifyBlocked splits the members Kahn's algorithm never released into
// those on a cycle and those merely downstream of one. It is a two-color
// depth-first search: a member reached again while still on the stack closes
// a cycle through every member above it on the stack.
func classifyBlocked(g *Graph, blocked []string) (cycles, unreachable []string) {
	const (
		white = iota
		gray
		black
	)

	inBlocked := make(map[string]bool, len(blocked))
	for _, n := range blocked {
		inBlocked[n] = true
	}

	color := make(map[string]int, len(blocked))
	onCycle := make(map[string]bool)
	var stack []string

	var dfs func(n string)
	dfs = func(n string) {
		color[n] = gray
		stack = append(stack, n)
		for _, t := range g.Out[n] {
			if !inBlocked[t] {
				continue
			}
			switch color[t] {
			case white:
				dfs(t)
			case gray:
				for i := len(stack) - 1; i >= 0; i-- {
					onCycle[stack[i]] = true
					if stack[i] == t {
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}

	for _, n := range blocked {
		if color[n] == white {
			dfs(n)
		}
	}

	for _, n := range blocked {
		if onCycle[n] {
			cycles = append(cycles, n)
		} else {
			unreachable = append(unreachable, n)
		}
	}
	return cycles, unreachable
}
