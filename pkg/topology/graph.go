package topology

import "github.com/hrhrng/clash-sub002/pkg/canvas"

// Graph is the dependency graph of one scope.
type Graph struct {
	Scope    string
	Nodes    []string            // scope members in snapshot order
	InDegree map[string]int      // incoming in-scope edges per node
	Out      map[string][]string // node -> consumers
	In       map[string][]string // node -> producers
}

// Has reports whether id is a member of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.InDegree[id]
	return ok
}

// Sources returns the members without producers, in snapshot order.
func (g *Graph) Sources() []string {
	var out []string
	for _, n := range g.Nodes {
		if g.InDegree[n] == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Build collects the members of scope parentID, minus exclude, and the edges
// whose endpoints are both members.
func Build(ix *canvas.Index, edges []canvas.Edge, parentID string, exclude ...string) *Graph {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	g := &Graph{
		Scope:    parentID,
		InDegree: make(map[string]int),
		Out:      make(map[string][]string),
		In:       make(map[string][]string),
	}
	for _, id := range ix.Scope(parentID) {
		if skip[id] {
			continue
		}
		g.Nodes = append(g.Nodes, id)
		g.InDegree[id] = 0
	}

	seen := make(map[[2]string]bool)
	for _, e := range edges {
		if !g.Has(e.Source) || !g.Has(e.Target) {
			continue
		}
		key := [2]string{e.Source, e.Target}
		if seen[key] {
			continue
		}
		seen[key] = true
		g.Out[e.Source] = append(g.Out[e.Source], e.Target)
		g.In[e.Target] = append(g.In[e.Target], e.Source)
		g.InDegree[e.Target]++
	}
	return g
}
