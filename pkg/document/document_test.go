package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/errors"
	"github.com/hrhrng/clash-sub002/pkg/geom"
)

const sample = `{
  "nodes": [
    {"id": "g1", "type": "group", "position": {"x": 0, "y": 0}, "width": 400, "height": 300},
    {"id": "img", "type": "image", "parentId": "g1", "extent": "parent",
     "position": {"x": 40, "y": 40}, "style": {"width": "200px"},
     "data": {"src": "a.png", "naturalWidth": 1920, "naturalHeight": 1080}},
    {"id": "vid", "type": "video", "position": {"x": 500, "y": 0},
     "data": {"aspectRatio": 2}},
    {"id": "txt", "type": "text", "position": {"x": 500, "y": 400},
     "measured": {"width": 120, "height": 80}, "zIndex": 1000},
    {"id": "styled", "type": "text", "position": {"x": 0, "y": 600},
     "style": {"width": 250, "height": "90", "color": "red"}}
  ],
  "edges": [{"id": "e1", "source": "txt", "target": "img", "targetHandle": "in"}]
}`

func TestToSnapshot(t *testing.T) {
	doc, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	snap, err := ToSnapshot(doc)
	if err != nil {
		t.Fatalf("ToSnapshot() error = %v", err)
	}
	ix := canvas.NewIndex(snap.Nodes)

	tests := []struct {
		id       string
		size     geom.Size
		confined bool
	}{
		{"g1", geom.Size{Width: 400, Height: 300}, false},
		{"img", geom.Size{Width: 200, Height: 112.5}, true},
		{"vid", geom.Size{Width: 400, Height: 200}, false},
		{"txt", geom.Size{Width: 120, Height: 80}, false},
		{"styled", geom.Size{Width: 250, Height: 90}, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, ok := ix.Node(tt.id)
			if !ok {
				t.Fatal("missing node")
			}
			if got := canvas.ResolveSize(n); !got.Equal(tt.size) {
				t.Errorf("size = %v, want %v", got, tt.size)
			}
			if n.Confined != tt.confined {
				t.Errorf("Confined = %v, want %v", n.Confined, tt.confined)
			}
		})
	}

	if ix.Parent("img") != "g1" {
		t.Errorf("img parent = %q", ix.Parent("img"))
	}
	if e := snap.Edges[0]; e.Source != "txt" || e.Target != "img" || e.TargetHandle != "in" {
		t.Errorf("edge = %+v", e)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty id", `{"nodes": [{"id": ""}]}`, "node 0"},
		{"duplicate id", `{"nodes": [{"id": "a"}, {"id": "a"}]}`, `duplicate node id "a"`},
		{"dangling edge end", `{"nodes": [{"id": "a"}], "edges": [{"id": "e", "source": "a"}]}`, "needs a source and a target"},
		{"not json", `{"nodes": [`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.body))
			if !errors.Is(err, errors.ErrCodeInvalidDocument) {
				t.Fatalf("error = %v, want INVALID_DOCUMENT", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestEdgesToMissingNodesAreKept(t *testing.T) {
	doc, err := Unmarshal([]byte(`{"nodes": [{"id": "a"}], "edges": [{"id": "e", "source": "a", "target": "ghost"}]}`))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	snap, err := ToSnapshot(doc)
	if err != nil || len(snap.Edges) != 1 {
		t.Errorf("ToSnapshot() = %+v, %v", snap.Edges, err)
	}
}

func TestApplyPatchesKeepsHostFields(t *testing.T) {
	doc, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	root := canvas.RootScope
	no := false
	z := 1000
	patches := []canvas.Patch{
		{ID: "img", Fields: canvas.Fields{
			Position: &geom.Point{X: 600, Y: 40},
			ParentID: &root,
			Confined: &no,
			ZIndex:   &z,
		}},
		{ID: "txt", Fields: canvas.Fields{Size: &geom.Size{Width: 150, Height: 90}}},
		{ID: "ghost", Fields: canvas.Fields{ZIndex: &z}},
	}

	out := ApplyPatches(doc, patches)

	img := out.Nodes[out.Index("img")]
	if img.Position != (geom.Point{X: 600, Y: 40}) || img.ParentID != "" || img.Extent != nil || img.ZIndex != 1000 {
		t.Errorf("img = %+v", img)
	}
	if img.Data["src"] != "a.png" || img.Style["width"] != "200px" {
		t.Errorf("host fields lost: data=%v style=%v", img.Data, img.Style)
	}
	txt := out.Nodes[out.Index("txt")]
	if txt.Width != 150 || txt.Measured == nil || txt.Measured.Height != 90 {
		t.Errorf("txt = %+v", txt)
	}
	if orig := doc.Nodes[doc.Index("img")]; orig.ParentID != "g1" {
		t.Error("ApplyPatches modified its input")
	}
}

func TestFromSnapshotRoundTrip(t *testing.T) {
	snap := canvas.Snapshot{
		Nodes: []canvas.Node{
			{ID: "g", Kind: canvas.KindGroup, LayoutFields: canvas.LayoutFields{Size: &geom.Size{Width: 400, Height: 300}}},
			{ID: "n", Kind: canvas.KindText, LayoutFields: canvas.LayoutFields{
				Position: geom.Point{X: 10, Y: 20}, ParentID: "g", ZIndex: 1001, Confined: true,
			}, Style: &canvas.Style{Width: 180}},
		},
		Edges: []canvas.Edge{{ID: "e", Source: "g", Target: "n"}},
	}

	data, err := Marshal(FromSnapshot(snap))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	doc, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, data)
	}
	back, err := ToSnapshot(doc)
	if err != nil {
		t.Fatal(err)
	}
	n := back.Nodes[1]
	if n.ParentID != "g" || !n.Confined || n.ZIndex != 1001 || n.Position != (geom.Point{X: 10, Y: 20}) {
		t.Errorf("n = %+v", n)
	}
	if n.Size != nil || n.Style == nil || n.Style.Width != 180 {
		t.Errorf("n size=%v style=%+v", n.Size, n.Style)
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	doc, err := Unmarshal([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "canvas.json")
	if err := WriteFile(path, doc); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(got.Nodes) != len(doc.Nodes) {
		t.Errorf("read %d nodes, want %d", len(got.Nodes), len(doc.Nodes))
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v", err)
	}

	ps := PatchSet{Op: "moved", Trigger: "img", Converged: true, Patches: []canvas.Patch{}}
	ppath := filepath.Join(dir, "patches.json")
	if err := WritePatchSetFile(ppath, ps); err != nil {
		t.Fatal(err)
	}
	back, err := ReadPatchSetFile(ppath)
	if err != nil || back.Op != "moved" || !back.Converged {
		t.Errorf("ReadPatchSetFile() = %+v, %v", back, err)
	}

	raw, _ := os.ReadFile(ppath)
	if !bytes.Contains(raw, []byte(`"patches": []`)) {
		t.Errorf("empty patch list not written as []:\n%s", raw)
	}
}
