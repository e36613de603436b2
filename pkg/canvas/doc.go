// Package canvas defines the node and edge model of a canvas snapshot and the
// hierarchy queries every layout stage relies on.
//
// # Nodes
//
// A [Node] is a tagged variant: [Node.Kind] selects the kind (group, text,
// image, video, audio, action, prompt) and optional payloads such as [Media]
// carry kind-specific fields. Every kind embeds [LayoutFields], the only part
// of a node the layout engine ever rewrites. [Node.Data] is opaque author
// content and passes through untouched.
//
// Positions are relative to the node's parent group. A node without a parent,
// or whose parent id does not resolve, lives in the root scope and its
// position is absolute.
//
// # Sizing
//
// [ResolveSize] applies a fixed fallback chain: an explicit measured size,
// then a size derived from the media aspect ratio, then style overrides, then
// the per-kind default from [DefaultSize].
//
// # Hierarchy
//
// [NewIndex] builds a side index over a snapshot once (id to node, parent to
// ordered children) so that ancestor, descendant, sibling and scope queries do
// not rescan the node list. Ancestor walks are guarded against corrupted parent
// cycles and always terminate.
//
//	ix := canvas.NewIndex(nodes)
//	for _, id := range ix.Ancestors("clip-3") {
//	    fmt.Println(id) // nearest group first
//	}
//
// # Z-Index
//
// Stacking order is derived, never authored: groups get their depth and
// everything else [LeafZBase] plus depth, so leaves always render above
// groups and nested groups above their parents. See [DeriveZIndex].
//
// # Patches
//
// [Diff] compares two snapshots and reports only the layout fields that
// changed, which is what the persistence layer writes back.
package canvas
