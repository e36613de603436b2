// Package engine turns host events into consistent canvas snapshots.
//
// # Overview
//
// The host calls one [Engine] method per user gesture and gets back a new
// snapshot plus the patches that lead to it. Each method composes the core
// packages in a fixed order so that no intermediate state ever escapes:
//
//   - [Engine.NodeMoved]: ownership, auto-scale, collision (the moved node
//     yields), grown groups displace their siblings, z-index.
//   - [Engine.NodeResized]: auto-scale, collision (the resized node stays),
//     z-index.
//   - [Engine.NodeAdded]: a node at the sentinel position is slotted next to
//     its producers, anything else is treated like a drop; then auto-scale
//     and z-index.
//   - [Engine.Relayout]: dependency layout of one scope or of every scope.
//   - [Engine.Tidy]: grid relayout of one scope.
//   - [Engine.Maintain]: z-index derivation and group fitting only.
//
// # Guarantees
//
// Inputs are never modified. Unknown ids produce a no-op result rather than
// an error; the layout core has no failure mode besides reporting that a
// collision run did not converge or that a placement fell back below all
// content. Calling [Engine.Maintain] on its own output reports NoOp.
//
// An Engine holds only configuration and is safe for concurrent use.
//
// # Usage
//
//	eng := engine.New(cfg.Layout, engine.WithLogger(logger))
//	res := eng.NodeMoved(snap, "image-1")
//	for _, p := range res.Patches {
//	    store.Update(p.ID, p.Map())
//	}
package engine
