package document

import (
	"github.com/hrhrng/clash-sub002/pkg/canvas"
)

// PatchSet is the outcome of one engine operation on the wire.
type PatchSet struct {
	Op           string         `json:"op" bson:"op"`
	Trigger      string         `json:"trigger,omitempty" bson:"trigger,omitempty"`
	Patches      []canvas.Patch `json:"patches" bson:"patches"`
	Converged    bool           `json:"converged" bson:"converged"`
	FallbackUsed bool           `json:"fallbackUsed" bson:"fallbackUsed"`
	NoOp         bool           `json:"noop" bson:"noop"`
	Columns      map[string]int `json:"columns,omitempty" bson:"columns,omitempty"`
	Grown        []string       `json:"grown,omitempty" bson:"grown,omitempty"`
}

// ApplyPatches returns a copy of d with the layout fields in patches written
// back. Patches for unknown ids are ignored; every other field of d is kept.
func ApplyPatches(d *Document, patches []canvas.Patch) *Document {
	out := d.Clone()
	pos := make(map[string]int, len(out.Nodes))
	for i, n := range out.Nodes {
		if _, dup := pos[n.ID]; !dup {
			pos[n.ID] = i
		}
	}
	for _, p := range patches {
		i, ok := pos[p.ID]
		if !ok {
			continue
		}
		applyFields(&out.Nodes[i], p.Fields)
	}
	return out
}

func applyFields(n *Node, f canvas.Fields) {
	if f.Position != nil {
		n.Position = *f.Position
	}
	if f.Size != nil {
		n.Width, n.Height = f.Size.Width, f.Size.Height
		if n.Measured != nil {
			s := *f.Size
			n.Measured = &s
		}
	}
	if f.ParentID != nil {
		n.ParentID = *f.ParentID
	}
	if f.ZIndex != nil {
		n.ZIndex = *f.ZIndex
	}
	if f.Confined != nil {
		if *f.Confined {
			n.Extent = ExtentParent
		} else {
			n.Extent = nil
		}
	}
}
