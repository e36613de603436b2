package canvas

import "github.com/hrhrng/clash-sub002/pkg/geom"

// Fields lists the layout fields a patch changes. Nil means unchanged.
type Fields struct {
	Position *geom.Point `json:"position,omitempty" bson:"position,omitempty"`
	Size     *geom.Size  `json:"size,omitempty" bson:"size,omitempty"`
	// ParentID points at the new parent; a pointer to "" moves the node to
	// the root scope.
	ParentID *string `json:"parentId,omitempty" bson:"parentId,omitempty"`
	ZIndex   *int    `json:"zIndex,omitempty" bson:"zIndex,omitempty"`
	Confined *bool   `json:"confined,omitempty" bson:"confined,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f Fields) IsEmpty() bool {
	return f.Position == nil && f.Size == nil && f.ParentID == nil &&
		f.ZIndex == nil && f.Confined == nil
}

// Merge overlays o onto f; fields set in o win.
func (f Fields) Merge(o Fields) Fields {
	if o.Position != nil {
		f.Position = o.Position
	}
	if o.Size != nil {
		f.Size = o.Size
	}
	if o.ParentID != nil {
		f.ParentID = o.ParentID
	}
	if o.ZIndex != nil {
		f.ZIndex = o.ZIndex
	}
	if o.Confined != nil {
		f.Confined = o.Confined
	}
	return f
}

// Patch is a change to one node's layout fields.
type Patch struct {
	ID     string `json:"id" bson:"id"`
	Fields Fields `json:"fields" bson:"fields"`
}

// Map returns the patch in the host's wire vocabulary, suitable for a
// document store update.
func (p Patch) Map() map[string]any {
	m := make(map[string]any, 6)
	f := p.Fields
	if f.Position != nil {
		m["position"] = map[string]any{"x": f.Position.X, "y": f.Position.Y}
	}
	if f.Size != nil {
		m["width"] = f.Size.Width
		m["height"] = f.Size.Height
	}
	if f.ParentID != nil {
		if *f.ParentID == RootScope {
			m["parentId"] = nil
		} else {
			m["parentId"] = *f.ParentID
		}
	}
	if f.ZIndex != nil {
		m["zIndex"] = *f.ZIndex
	}
	if f.Confined != nil {
		if *f.Confined {
			m["extent"] = "parent"
		} else {
			m["extent"] = nil
		}
	}
	return m
}

// Diff reports the layout fields that differ between before and after.
// Patches follow the order of after; nodes missing from before are skipped.
func Diff(before, after []Node) []Patch {
	prev := NewIndex(before)
	var out []Patch
	for _, n := range after {
		old, ok := prev.Node(n.ID)
		if !ok {
			continue
		}
		var f Fields
		if !old.Position.Equal(n.Position) {
			p := n.Position
			f.Position = &p
		}
		if sizeChanged(old.Size, n.Size) {
			s := ResolveSize(n)
			f.Size = &s
		}
		if old.ParentID != n.ParentID {
			p := n.ParentID
			f.ParentID = &p
		}
		if old.ZIndex != n.ZIndex {
			z := n.ZIndex
			f.ZIndex = &z
		}
		if old.Confined != n.Confined {
			c := n.Confined
			f.Confined = &c
		}
		if !f.IsEmpty() {
			out = append(out, Patch{ID: n.ID, Fields: f})
		}
	}
	return out
}

func sizeChanged(a, b *geom.Size) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil || b == nil:
		return true
	default:
		return !a.Equal(*b)
	}
}

// ApplyPatches returns a copy of nodes with patches applied. Patches for
// unknown ids are ignored.
func ApplyPatches(nodes []Node, patches []Patch) []Node {
	out := CloneNodes(nodes)
	ix := NewIndex(out)
	for _, p := range patches {
		i := ix.Position(p.ID)
		if i < 0 {
			continue
		}
		n := &out[i]
		f := p.Fields
		if f.Position != nil {
			n.Position = *f.Position
		}
		if f.Size != nil {
			s := *f.Size
			n.Size = &s
		}
		if f.ParentID != nil {
			n.ParentID = *f.ParentID
		}
		if f.ZIndex != nil {
			n.ZIndex = *f.ZIndex
		}
		if f.Confined != nil {
			n.Confined = *f.Confined
		}
	}
	return out
}
