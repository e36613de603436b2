// Package pipeline runs layout operations on stored documents.
//
// This package implements the document → snapshot → engine → patched
// document flow shared by the CLI and the HTTP server. By centralizing this
// logic, both entry points validate requests, cache results and log the same
// way.
//
// # Architecture
//
// One run has three stages:
//
//  1. Decode: validate the document and normalize it into a snapshot
//  2. Layout: run one engine operation on the snapshot
//  3. Apply: write the resulting patches back into the document, keeping
//     every field the engine does not own
//
// Relayout and tidy results depend only on the document and the layout
// configuration, so their patch sets are cached. Gesture operations are
// cheap and depend on the trigger; they always run.
//
// # Usage
//
//	runner := pipeline.NewRunner(engine.New(cfg.Layout), cache, nil, logger)
//	res, err := runner.Execute(ctx, doc, pipeline.Options{
//	    Op:    engine.OpRelayout,
//	    Scope: "group-1",
//	})
//	if err != nil {
//	    return err
//	}
//	document.WriteFile("out.json", res.Document)
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/errors"
)

// =============================================================================
// Options - Operation Request
// =============================================================================

// Options selects the operation to run. This struct supports JSON
// serialization for API requests.
type Options struct {
	Op engine.Op `json:"op"`
	// Trigger is the node a gesture operation acts on.
	Trigger string `json:"trigger,omitempty"`
	// Scope is the group whose members relayout and tidy arrange; empty is
	// the root scope.
	Scope string `json:"scope,omitempty"`
	// All makes relayout arrange every scope.
	All bool `json:"all,omitempty"`
	// Refresh bypasses the cache.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document is the input document with the patches applied.
	Document *document.Document

	// DocHash is the content hash of the input document.
	DocHash string

	// PatchSet is the engine outcome in wire form.
	PatchSet document.PatchSet

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the patch set came from the cache.
	CacheHit bool
}

// Stats contains run statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	PatchCount int
	LayoutTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateOp checks that op names an engine operation.
func ValidateOp(op engine.Op) error {
	if !slices.Contains(engine.Ops, op) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid op: %q (must be one of: %v)", op, engine.Ops)
	}
	return nil
}

// NeedsTrigger reports whether op acts on a single node.
func NeedsTrigger(op engine.Op) bool {
	return op == engine.OpMoved || op == engine.OpResized || op == engine.OpAdded
}

// Validate checks the request and fills in defaults.
func (o *Options) Validate() error {
	if err := ValidateOp(o.Op); err != nil {
		return err
	}
	if NeedsTrigger(o.Op) {
		if err := errors.ValidateNodeID(o.Trigger); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "trigger: %s", errors.UserMessage(err))
		}
	}
	if err := errors.ValidateScope(o.Scope); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// =============================================================================
// Conversion
// =============================================================================

// NewPatchSet converts an engine result into its wire form.
func NewPatchSet(res engine.Result, trigger string) document.PatchSet {
	patches := res.Patches
	if patches == nil {
		patches = []canvas.Patch{}
	}
	return document.PatchSet{
		Op:           string(res.Op),
		Trigger:      trigger,
		Patches:      patches,
		Converged:    res.Converged,
		FallbackUsed: res.FallbackUsed,
		NoOp:         res.NoOp,
		Columns:      res.Columns,
		Grown:        res.Grown,
	}
}
