package persist

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/hrhrng/clash-sub002/pkg/cache"
	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/observability"
)

// ErrStopped is returned when patches are enqueued after Stop.
var ErrStopped = errors.New("persist: batcher stopped")

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Batcher.
type Options struct {
	// Debounce is how long the batcher waits after the last Enqueue before
	// flushing.
	Debounce time.Duration
	// Backoff bounds retries of one batch.
	Backoff cache.Backoff
	Logger  *log.Logger
	// Hooks defaults to the globally registered persistence hooks.
	Hooks observability.PersistHooks
}

// Batcher coalesces patches and flushes them to a Store.
//
// All methods are safe for concurrent use. Flushes are serialized, so
// batches reach the store in the order they were cut.
type Batcher struct {
	store    Store
	debounce time.Duration
	backoff  cache.Backoff
	logger   *log.Logger
	hooks    observability.PersistHooks

	mu      sync.Mutex
	pending map[string]canvas.Fields
	order   []string
	timer   *time.Timer
	base    context.Context
	stopped bool

	flushMu sync.Mutex
}

// NewBatcher creates a batcher writing to store.
func NewBatcher(store Store, opts Options) *Batcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Backoff.Attempts <= 0 {
		opts.Backoff = cache.DefaultBackoff
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Hooks == nil {
		opts.Hooks = observability.Persist()
	}
	return &Batcher{
		store:    store,
		debounce: opts.Debounce,
		backoff:  opts.Backoff,
		logger:   opts.Logger,
		hooks:    opts.Hooks,
		pending:  make(map[string]canvas.Fields),
		base:     context.Background(),
	}
}

// Start binds debounced flushes to ctx. When ctx is done the batcher stops
// and writes what is still pending.
func (b *Batcher) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrStopped
	}
	b.base = context.WithoutCancel(ctx)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		if err := b.Stop(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrStopped) {
			b.logger.Error("final flush failed", "error", err)
		}
	}()
	return nil
}

// Enqueue adds patches to the pending batch and restarts the debounce timer.
// Later fields for the same node replace earlier ones.
func (b *Batcher) Enqueue(patches ...canvas.Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrStopped
	}
	if len(patches) == 0 {
		return nil
	}

	b.merge(patches)

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.debounce, b.flushOnTimer)

	b.hooks.OnEnqueue(b.base, len(patches), len(b.pending))
	return nil
}

// Pending returns the number of nodes waiting to be written.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush writes the pending batch now.
func (b *Batcher) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	batch := b.take()
	if len(batch) == 0 {
		return nil
	}

	id := uuid.NewString()
	start := time.Now()
	err := cache.RetryWithBackoff(ctx, b.backoff, func() error {
		return b.store.Apply(ctx, id, batch)
	})
	d := time.Since(start)
	b.hooks.OnFlush(ctx, id, len(batch), d, err)

	if err != nil {
		b.requeue(batch)
		b.logger.Error("flush failed", "batch", id, "patches", len(batch), "error", err)
		return err
	}
	b.logger.Debug("flushed", "batch", id, "patches", len(batch), "duration", d)
	return nil
}

// Stop rejects further patches and flushes what is pending.
func (b *Batcher) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return ErrStopped
	}
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	return b.Flush(ctx)
}

func (b *Batcher) flushOnTimer() {
	b.mu.Lock()
	ctx := b.base
	b.mu.Unlock()
	// Errors are logged by Flush; the patches stay pending for the next one.
	_ = b.Flush(ctx)
}

// take removes and returns the pending batch in first-enqueued order.
func (b *Batcher) take() []canvas.Patch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	out := make([]canvas.Patch, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, canvas.Patch{ID: id, Fields: b.pending[id]})
	}
	b.pending = make(map[string]canvas.Fields)
	b.order = nil
	return out
}

// requeue puts a failed batch back under anything enqueued since.
func (b *Batcher) requeue(batch []canvas.Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	newer, order := b.pending, b.order
	b.pending = make(map[string]canvas.Fields, len(batch)+len(newer))
	b.order = nil
	b.merge(batch)
	for _, id := range order {
		b.merge([]canvas.Patch{{ID: id, Fields: newer[id]}})
	}
}

// merge must be called with mu held.
func (b *Batcher) merge(patches []canvas.Patch) {
	for _, p := range patches {
		f, ok := b.pending[p.ID]
		if !ok {
			b.order = append(b.order, p.ID)
		}
		b.pending[p.ID] = f.Merge(p.Fields)
	}
}
