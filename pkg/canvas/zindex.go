package canvas

// LeafZBase lifts every non-group node above every group.
const LeafZBase = 1000

// DerivedZIndex returns the stacking order id should have in ix.
func DerivedZIndex(ix *Index, id string) int {
	n, ok := ix.Node(id)
	if !ok {
		return 0
	}
	return zFor(n, ix.Depth(id))
}

func zFor(n Node, depth int) int {
	if n.IsGroup() {
		return depth
	}
	return LeafZBase + depth
}

// DeriveZIndex returns a copy of nodes with every ZIndex recomputed from the
// hierarchy.
func DeriveZIndex(nodes []Node) []Node {
	ix := NewIndex(nodes)
	out := CloneNodes(nodes)
	for i := range out {
		out[i].ZIndex = zFor(out[i], ix.Depth(out[i].ID))
	}
	return out
}

// NestedGroupZIndex is the provisional stacking order of a group that was
// just moved under parent. It keeps the group above its new parent until the
// next full derivation.
func NestedGroupZIndex(parent Node) int { return parent.ZIndex + 1 }
