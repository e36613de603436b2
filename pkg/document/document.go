package document

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/errors"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

// ExtentParent is the extent value of a node confined to its parent.
const ExtentParent = "parent"

// Data keys read for media sizing.
const (
	keyAspectRatio   = "aspectRatio"
	keyNaturalWidth  = "naturalWidth"
	keyNaturalHeight = "naturalHeight"
)

// =============================================================================
// Document
// =============================================================================

// Document is a stored canvas.
type Document struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// Node is a canvas node in the host's field vocabulary.
type Node struct {
	ID       string          `json:"id" bson:"_id"`
	Type     string          `json:"type,omitempty" bson:"type,omitempty"`
	Position geom.Point      `json:"position" bson:"position"`
	Width    float64         `json:"width,omitempty" bson:"width,omitempty"`
	Height   float64         `json:"height,omitempty" bson:"height,omitempty"`
	Measured *geom.Size      `json:"measured,omitempty" bson:"measured,omitempty"`
	ParentID string          `json:"parentId,omitempty" bson:"parentId,omitempty"`
	ZIndex   int             `json:"zIndex,omitempty" bson:"zIndex,omitempty"`
	Extent   any             `json:"extent,omitempty" bson:"extent,omitempty"`
	Style    Style           `json:"style,omitempty" bson:"style,omitempty"`
	Data     canvas.Metadata `json:"data,omitempty" bson:"data,omitempty"`
}

// Style is the node's style block. Only width and height are interpreted.
type Style map[string]any

// Edge is a directed connection.
type Edge struct {
	ID           string `json:"id" bson:"id"`
	Source       string `json:"source" bson:"source"`
	Target       string `json:"target" bson:"target"`
	TargetHandle string `json:"targetHandle,omitempty" bson:"targetHandle,omitempty"`
}

// Confined reports whether the node is kept inside its parent.
func (n Node) Confined() bool {
	s, ok := n.Extent.(string)
	return ok && s == ExtentParent
}

// Index returns the position of id in d.Nodes, or -1.
func (d *Document) Index(id string) int {
	return slices.IndexFunc(d.Nodes, func(n Node) bool { return n.ID == id })
}

// Clone returns a copy of d whose nodes and edges can be rewritten without
// touching d. Data and style maps are shared.
func (d *Document) Clone() *Document {
	return &Document{Nodes: slices.Clone(d.Nodes), Edges: slices.Clone(d.Edges)}
}

// Validate checks node and edge ids.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if err := errors.ValidateNodeID(n.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDocument, err, "node %d: %s", i, errors.UserMessage(err))
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeInvalidDocument, "duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for i, e := range d.Edges {
		if e.Source == "" || e.Target == "" {
			return errors.New(errors.ErrCodeInvalidDocument, "edge %d (%q) needs a source and a target", i, e.ID)
		}
	}
	return nil
}

// =============================================================================
// Document ↔ Snapshot Conversion
// =============================================================================

// ToSnapshot validates d and converts it into an engine snapshot.
func ToSnapshot(d *Document) (canvas.Snapshot, error) {
	if err := d.Validate(); err != nil {
		return canvas.Snapshot{}, err
	}
	snap := canvas.Snapshot{
		Nodes: make([]canvas.Node, len(d.Nodes)),
		Edges: make([]canvas.Edge, len(d.Edges)),
	}
	for i, n := range d.Nodes {
		snap.Nodes[i] = toNode(n)
	}
	for i, e := range d.Edges {
		snap.Edges[i] = canvas.Edge{ID: e.ID, Source: e.Source, Target: e.Target, TargetHandle: e.TargetHandle}
	}
	return snap, nil
}

func toNode(n Node) canvas.Node {
	out := canvas.Node{
		ID:   n.ID,
		Kind: canvas.Kind(n.Type),
		LayoutFields: canvas.LayoutFields{
			Position: n.Position,
			ParentID: n.ParentID,
			ZIndex:   n.ZIndex,
			Confined: n.Confined(),
		},
		Data: n.Data,
	}

	switch {
	case n.Width > 0 && n.Height > 0:
		out.Size = &geom.Size{Width: n.Width, Height: n.Height}
	case n.Measured != nil && !n.Measured.IsZero():
		s := *n.Measured
		out.Size = &s
	}

	w, wok := length(n.Style["width"])
	h, hok := length(n.Style["height"])
	if wok || hok {
		out.Style = &canvas.Style{Width: w, Height: h}
	}

	if out.Kind.IsMedia() {
		if r := aspectRatio(n.Data); r > 0 {
			out.Media = &canvas.Media{AspectRatio: r}
		}
	}
	return out
}

// FromSnapshot builds a fresh document from a snapshot. Use [ApplyPatches]
// to update an existing document without losing host fields.
func FromSnapshot(snap canvas.Snapshot) *Document {
	d := &Document{
		Nodes: make([]Node, len(snap.Nodes)),
		Edges: make([]Edge, len(snap.Edges)),
	}
	for i, n := range snap.Nodes {
		out := Node{
			ID:       n.ID,
			Type:     string(n.Kind),
			Position: n.Position,
			ParentID: n.ParentID,
			ZIndex:   n.ZIndex,
			Data:     n.Data,
		}
		if n.Size != nil {
			out.Width, out.Height = n.Size.Width, n.Size.Height
		}
		if n.Confined {
			out.Extent = ExtentParent
		}
		if n.Style != nil {
			out.Style = Style{}
			if n.Style.Width > 0 {
				out.Style["width"] = n.Style.Width
			}
			if n.Style.Height > 0 {
				out.Style["height"] = n.Style.Height
			}
		}
		d.Nodes[i] = out
	}
	for i, e := range snap.Edges {
		d.Edges[i] = Edge{ID: e.ID, Source: e.Source, Target: e.Target, TargetHandle: e.TargetHandle}
	}
	return d
}

// =============================================================================
// Value Normalization
// =============================================================================

// length reads a CSS-ish length: a number, or a string such as "300" or
// "300px". Other units are not lengths the layout can use.
func length(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "px"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 {
			return 0, false
		}
		return f, true
	default:
		f, ok := number(x)
		return f, ok && f > 0
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func aspectRatio(data canvas.Metadata) float64 {
	if r, ok := number(data[keyAspectRatio]); ok && r > 0 {
		return r
	}
	w, wok := number(data[keyNaturalWidth])
	h, hok := number(data[keyNaturalHeight])
	if wok && hok && w > 0 && h > 0 {
		return w / h
	}
	return 0
}
