package canvas

import (
	"slices"

	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// Kind identifies the type of a canvas node.
type Kind string

const (
	KindGroup  Kind = "group"
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindAudio  Kind = "audio"
	KindAction Kind = "action"
	KindPrompt Kind = "prompt"
)

// IsMedia reports whether nodes of this kind carry an intrinsic aspect ratio.
func (k Kind) IsMedia() bool { return k == KindImage || k == KindVideo }

// Metadata holds opaque author content attached to a node.
// The layout engine never reads or writes it.
type Metadata map[string]any

// LayoutFields are the node fields owned by the layout engine.
type LayoutFields struct {
	// Position is relative to the parent group, or absolute at root scope.
	Position geom.Point
	// Size is the measured size. Nil means "not measured yet".
	Size *geom.Size
	// ParentID is the enclosing group, empty at root scope.
	ParentID string
	ZIndex   int
	// Confined marks a node that the host keeps inside its parent while
	// dragging. Resolving its owner after the drop clears it.
	Confined bool
}

// Media carries the intrinsic shape of image and video nodes.
type Media struct {
	AspectRatio float64 // width / height
}

// Style holds numeric size overrides normalized from the host's style block.
// Zero means "not set".
type Style struct {
	Width  float64
	Height float64
}

// Node is a box on the canvas.
type Node struct {
	ID   string
	Kind Kind
	LayoutFields

	Media *Media
	Style *Style
	Data  Metadata
}

// IsGroup reports whether the node can contain other nodes.
func (n Node) IsGroup() bool { return n.Kind == KindGroup }

// HasParent reports whether the node declares a parent.
// Whether that parent exists is answered by [Index.Parent].
func (n Node) HasParent() bool { return n.ParentID != "" }

// Clone returns a copy of n whose layout pointers can be replaced without
// affecting n.
func (n Node) Clone() Node {
	if n.Size != nil {
		s := *n.Size
		n.Size = &s
	}
	return n
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID           string
	Source       string
	Target       string
	TargetHandle string
}

// Snapshot is the immutable input of every layout operation.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Clone returns a deep copy of the snapshot's layout state.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{Nodes: CloneNodes(s.Nodes), Edges: slices.Clone(s.Edges)}
}

// CloneNodes copies a node slice so that callers can rewrite layout fields
// without touching the original.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// SentinelPosition marks a node the host created without a position.
// Auto-insert replaces it with a computed slot.
var SentinelPosition = geom.Point{X: -1, Y: -1}

// NeedsLayout reports whether p is the auto-insert sentinel.
func NeedsLayout(p geom.Point) bool { return p == SentinelPosition }
