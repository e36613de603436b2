package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hrhrng/clash-sub002/pkg/cache"
	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/engine"
	"github.com/hrhrng/clash-sub002/pkg/render"
)

// Runner encapsulates operation execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the engine, cache and logger; it
// doesn't store results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Engine *engine.Engine
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	// LayoutTTL is how long cached patch sets live.
	LayoutTTL time.Duration

	configHash string
}

// NewRunner creates a runner around eng.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(eng *engine.Engine, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	// A config that fails to encode only costs cache sharing across configs.
	hash, _ := cache.HashJSON(eng.Config())
	return &Runner{
		Engine:     eng,
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		LayoutTTL:  cache.TTLLayout,
		configHash: hash,
	}
}

// Execute runs one operation on doc.
func (r *Runner) Execute(ctx context.Context, doc *document.Document, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	snap, err := document.ToSnapshot(doc)
	if err != nil {
		return nil, err
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("hash document: %w", err)
	}

	result := &Result{DocHash: cache.Hash(data)}
	result.Stats.NodeCount = len(snap.Nodes)
	result.Stats.EdgeCount = len(snap.Edges)

	start := time.Now()
	ps, hit, err := r.RunWithCacheInfo(ctx, snap, result.DocHash, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LayoutTime = time.Since(start)
	result.PatchSet = ps
	result.CacheHit = hit
	result.Stats.PatchCount = len(ps.Patches)
	result.Document = document.ApplyPatches(doc, ps.Patches)

	r.Logger.Info("applied layout",
		"op", opts.Op,
		"nodes", result.Stats.NodeCount,
		"patches", result.Stats.PatchCount,
		"cached", hit,
		"duration", result.Stats.LayoutTime)
	if !ps.Converged {
		r.Logger.Warn("layout did not converge; result is usable but may still overlap", "op", opts.Op)
	}
	return result, nil
}

// RunWithCacheInfo runs one operation on snap and returns whether the result
// came from the cache. docHash identifies snap's document in cache keys.
func (r *Runner) RunWithCacheInfo(ctx context.Context, snap canvas.Snapshot, docHash string, opts Options) (document.PatchSet, bool, error) {
	if err := opts.Validate(); err != nil {
		return document.PatchSet{}, false, err
	}

	key := r.cacheKey(docHash, opts)
	if key != "" && !opts.Refresh {
		var cached document.PatchSet
		if err := cache.GetJSON(ctx, r.Cache, key, &cached); err == nil {
			return cached, true, nil // Cache hit
		} else if err != cache.ErrCacheMiss {
			r.Logger.Warn("cache read failed", "key", key, "error", err)
		}
	}

	ps := NewPatchSet(r.run(snap, opts), opts.Trigger)

	if key != "" {
		if err := cache.SetJSON(ctx, r.Cache, key, ps, r.LayoutTTL); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return ps, false, nil // Cache miss
}

// Run is a convenience wrapper that runs an operation on snap without
// caching and returns the full engine result.
func (r *Runner) Run(snap canvas.Snapshot, opts Options) (engine.Result, error) {
	if err := opts.Validate(); err != nil {
		return engine.Result{}, err
	}
	return r.run(snap, opts), nil
}

func (r *Runner) run(snap canvas.Snapshot, opts Options) engine.Result {
	e := r.Engine
	switch opts.Op {
	case engine.OpMoved:
		return e.NodeMoved(snap, opts.Trigger)
	case engine.OpResized:
		return e.NodeResized(snap, opts.Trigger)
	case engine.OpAdded:
		return e.NodeAdded(snap, opts.Trigger)
	case engine.OpRelayout:
		return e.Relayout(snap, opts.Scope, opts.All)
	case engine.OpTidy:
		return e.Tidy(snap, opts.Scope)
	default:
		return e.Maintain(snap)
	}
}

// cacheKey returns the key of a cacheable operation, or "".
func (r *Runner) cacheKey(docHash string, opts Options) string {
	switch opts.Op {
	case engine.OpRelayout:
		return r.Keyer.RelayoutKey(docHash, cache.RelayoutKeyOpts{
			Scope:      opts.Scope,
			All:        opts.All,
			ConfigHash: r.configHash,
		})
	case engine.OpTidy:
		return r.Keyer.TidyKey(docHash, cache.TidyKeyOpts{
			Scope:      opts.Scope,
			ConfigHash: r.configHash,
		})
	default:
		return ""
	}
}

// =============================================================================
// Rendering
// =============================================================================

// RenderWithCacheInfo draws doc and returns whether the image came from the
// cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc *document.Document, format render.Format, opts render.Options) ([]byte, bool, error) {
	if !render.ValidFormats[format] {
		return nil, false, fmt.Errorf("invalid format: %q (must be one of: dot, svg, png)", format)
	}
	snap, err := document.ToSnapshot(doc)
	if err != nil {
		return nil, false, err
	}
	data, err := document.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("hash document: %w", err)
	}

	key := r.Keyer.ArtifactKey(cache.Hash(data), cache.ArtifactKeyOpts{Format: string(format), Labels: opts.Labels})
	if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		return out, true, nil // Cache hit
	}

	out, err := render.Render(ctx, snap, format, opts)
	if err != nil {
		return nil, false, err
	}
	_ = r.Cache.Set(ctx, key, out, cache.TTLArtifact)
	return out, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Render(ctx context.Context, doc *document.Document, format render.Format, opts render.Options) ([]byte, error) {
	out, _, err := r.RenderWithCacheInfo(ctx, doc, format, opts)
	return out, err
}
