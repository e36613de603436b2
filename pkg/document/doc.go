// Package document reads and writes canvas documents as the host stores them.
//
// # Format
//
// A document is the JSON the canvas frontend persists: a list of nodes with
// React Flow field names and a list of edges.
//
//	{
//	  "nodes": [
//	    {"id": "g1", "type": "group", "position": {"x": 0, "y": 0},
//	     "width": 400, "height": 300},
//	    {"id": "img", "type": "image", "parentId": "g1", "extent": "parent",
//	     "position": {"x": 40, "y": 40}, "style": {"width": "300px"},
//	     "data": {"src": "...", "naturalWidth": 1920, "naturalHeight": 1080}}
//	  ],
//	  "edges": [{"id": "e1", "source": "prompt", "target": "img"}]
//	}
//
// Everything the layout engine does not own (data, style keys other than
// width and height, unknown fields) passes through untouched.
//
// # Normalization
//
// [ToSnapshot] converts a document into the engine's [canvas.Snapshot]:
//
//   - width/height (or measured.width/measured.height) become the measured
//     size when both are positive
//   - style.width/style.height accept numbers and strings such as "300px"
//   - extent "parent" marks the node as confined to its parent
//   - data.aspectRatio, or data.naturalWidth/data.naturalHeight, gives image
//     and video nodes their aspect ratio
//
// Node ids must be non-empty and unique; violations are reported as
// INVALID_DOCUMENT errors. Edges may reference missing nodes.
//
// # Patches
//
// [ApplyPatches] writes engine patches back into a document, and [PatchSet]
// is the wire form of an operation's outcome used by the CLI and the HTTP
// API.
package document
