// Package pkg provides the libraries behind the clashlayout canvas layout engine.
//
// # Overview
//
// A canvas is a flat list of nodes (text, media, action and group nodes)
// connected by edges. Groups nest, and every node stores its position
// relative to its parent. The pkg directory is organized into three areas:
//
//  1. Geometry and model - [geom], [canvas], [document]
//  2. Layout algorithms - [mesh], [ownership], [autoscale], [collision],
//     [topology], [gridlayout]
//  3. Orchestration and infrastructure - [engine], [pipeline], [cache],
//     [persist], [server], [render], [config], [observability]
//
// # Architecture
//
// The typical data flow for one user gesture:
//
//	Host event (drag end, resize, add, layout command)
//	         ↓
//	    [document] package (decode + validate into a snapshot)
//	         ↓
//	    [engine] package (ownership → auto-scale → collision → z-index)
//	         ↓
//	    [pipeline] package (cache lookup, patch set, apply)
//	         ↓
//	    Patches → host, [persist] batcher → store
//
// # Quick Start
//
// Run a dependency relayout on a canvas file:
//
//	import (
//	    "context"
//	    "github.com/hrhrng/clash-sub002/pkg/config"
//	    "github.com/hrhrng/clash-sub002/pkg/document"
//	    "github.com/hrhrng/clash-sub002/pkg/engine"
//	    "github.com/hrhrng/clash-sub002/pkg/pipeline"
//	)
//
//	doc, _ := document.ReadFile("canvas.json")
//	runner := pipeline.NewRunner(engine.New(config.DefaultLayout()), nil, nil, nil)
//	res, _ := runner.Execute(context.Background(), doc, pipeline.Options{
//	    Op:  engine.OpRelayout,
//	    All: true,
//	})
//	_ = document.WriteFile("canvas.json", res.Document)
//
// # Main Packages
//
// ## Geometry and Model
//
// [geom] - Points, sizes and rectangles with overlap and containment tests.
//
// [canvas] - Nodes, size resolution, the group hierarchy [canvas.Index],
// absolute positions, z-index derivation and [canvas.Patch].
//
// [document] - JSON document format for canvases and patch sets.
//
// ## Layout
//
// [mesh] - Grid snapping and spiral search for free positions.
//
// [ownership] - Decides which group owns a dropped node.
//
// [autoscale] - Grows groups to fit their children, up the ancestor chain.
//
// [collision] - Overlap detection and iterative push resolution.
//
// [topology] - Dependency graph per scope, column assignment, vertical
// packing and auto-insert of new nodes.
//
// [gridlayout] - Row and column clustering for tidying a scope.
//
// ## Orchestration
//
// [engine] - Composes the layout packages per gesture.
//
// [pipeline] - Document in, patches and document out, with caching.
//
// [server] - HTTP API over the pipeline.
//
// [persist] - Debounced, coalescing write-back of patches to a store.
//
// ## Infrastructure
//
// [cache] - File, Redis and null caches with TTLs and content hashing.
//
// [config] - TOML, YAML and JSON configuration with validation.
//
// [observability] - Hooks for the engine, persistence and HTTP layers, with a
// Prometheus implementation.
//
// [render] - DOT, SVG and PNG rendering of a canvas via Graphviz.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/collision/... # Specific package
//	go test -run Example        # Examples only
//
// [geom]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/geom
// [canvas]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/canvas
// [canvas.Index]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/canvas#Index
// [canvas.Patch]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/canvas#Patch
// [document]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/document
// [mesh]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/mesh
// [ownership]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/ownership
// [autoscale]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/autoscale
// [collision]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/collision
// [topology]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/topology
// [gridlayout]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/gridlayout
// [engine]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/engine
// [pipeline]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/server
// [persist]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/persist
// [cache]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/cache
// [config]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/config
// [observability]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/observability
// [render]: https://pkg.go.dev/github.com/hrhrng/clash-sub002/pkg/render
package pkg
