package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/hrhrng/clash-sub002/pkg/cache"
	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/geom"
	"github.com/hrhrng/clash-sub002/pkg/observability"
)

func moved(id string, x, y float64) canvas.Patch {
	return canvas.Patch{ID: id, Fields: canvas.Fields{Position: &geom.Point{X: x, Y: y}}}
}

func resized(id string, w, h float64) canvas.Patch {
	return canvas.Patch{ID: id, Fields: canvas.Fields{Size: &geom.Size{Width: w, Height: h}}}
}

type flushRecorder struct {
	observability.NoopPersistHooks
	mu      sync.Mutex
	batches []string
	errs    int
}

func (r *flushRecorder) OnFlush(_ context.Context, id string, _ int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, id)
	if err != nil {
		r.errs++
	}
}

// failingStore fails the first n batches.
type failingStore struct {
	*MemoryStore
	mu    sync.Mutex
	n     int
	calls int
}

func (s *failingStore) Apply(ctx context.Context, id string, patches []canvas.Patch) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.n
	s.mu.Unlock()
	if fail {
		return cache.Retryable(errors.New("store unavailable"))
	}
	return s.MemoryStore.Apply(ctx, id, patches)
}

func TestBatcherCoalesces(t *testing.T) {
	store := NewMemoryStore()
	hooks := &flushRecorder{}
	b := NewBatcher(store, Options{Debounce: time.Hour, Hooks: hooks})

	if err := b.Enqueue(moved("A", 10, 0), resized("A", 200, 100)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := b.Enqueue(moved("A", 30, 0), moved("B", 5, 5)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if got := b.Pending(); got != 2 {
		t.Errorf("Pending() = %d, want 2", got)
	}

	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	a, ok := store.Fields("A")
	if !ok {
		t.Fatal("A was not written")
	}
	if *a.Position != (geom.Point{X: 30, Y: 0}) {
		t.Errorf("A position = %v, want the latest (30,0)", *a.Position)
	}
	if a.Size == nil || *a.Size != (geom.Size{Width: 200, Height: 100}) {
		t.Errorf("A size = %v, want the earlier size kept", a.Size)
	}
	if len(store.Batches()) != 1 || len(hooks.batches) != 1 || store.Batches()[0] != hooks.batches[0] {
		t.Errorf("batches = %v, hooks saw %v", store.Batches(), hooks.batches)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() = %d after flush", b.Pending())
	}
}

func TestBatcherFlushEmpty(t *testing.T) {
	store := NewMemoryStore()
	b := NewBatcher(store, Options{})
	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(store.Batches()) != 0 {
		t.Error("empty flush should not reach the store")
	}
}

func TestBatcherDebounce(t *testing.T) {
	store := NewMemoryStore()
	b := NewBatcher(store, Options{Debounce: 10 * time.Millisecond})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := b.Enqueue(moved("A", 1, 1)); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(store.Batches()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("debounced flush never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := store.Fields("A"); !ok {
		t.Error("A was not written")
	}
}

func TestBatcherRetries(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), n: 2}
	b := NewBatcher(store, Options{
		Debounce: time.Hour,
		Backoff:  cache.Backoff{Attempts: 3, Delay: time.Millisecond},
	})

	_ = b.Enqueue(moved("A", 1, 1))
	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if store.calls != 3 {
		t.Errorf("calls = %d, want 3", store.calls)
	}
}

func TestBatcherRequeuesFailedBatch(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), n: 1}
	hooks := &flushRecorder{}
	b := NewBatcher(store, Options{
		Debounce: time.Hour,
		Backoff:  cache.Backoff{Attempts: 1},
		Hooks:    hooks,
	})
	ctx := context.Background()

	_ = b.Enqueue(moved("A", 1, 1), resized("A", 50, 50))
	if err := b.Flush(ctx); err == nil {
		t.Fatal("first flush should fail")
	}
	if b.Pending() != 1 {
		t.Fatalf("Pending() = %d, want the failed node back", b.Pending())
	}

	_ = b.Enqueue(moved("A", 9, 9))
	if err := b.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	a, _ := store.Fields("A")
	if *a.Position != (geom.Point{X: 9, Y: 9}) {
		t.Errorf("A position = %v, newer value must win over the requeued one", *a.Position)
	}
	if a.Size == nil {
		t.Error("requeued size was lost")
	}
	if hooks.errs != 1 || len(hooks.batches) != 2 {
		t.Errorf("hooks saw %d batches, %d errors", len(hooks.batches), hooks.errs)
	}
}

func TestBatcherStop(t *testing.T) {
	store := NewMemoryStore()
	b := NewBatcher(store, Options{Debounce: time.Hour})
	ctx := context.Background()

	_ = b.Enqueue(moved("A", 1, 1))
	if err := b.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, ok := store.Fields("A"); !ok {
		t.Error("Stop should flush pending patches")
	}
	if err := b.Enqueue(moved("A", 2, 2)); !errors.Is(err, ErrStopped) {
		t.Errorf("Enqueue after Stop = %v, want ErrStopped", err)
	}
	if err := b.Stop(ctx); !errors.Is(err, ErrStopped) {
		t.Errorf("second Stop = %v, want ErrStopped", err)
	}
	if err := b.Start(ctx); !errors.Is(err, ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
}

func TestBatcherStopsWithContext(t *testing.T) {
	store := NewMemoryStore()
	b := NewBatcher(store, Options{Debounce: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	_ = b.Enqueue(moved("A", 1, 1))
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for len(store.Batches()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("cancelled batcher did not flush")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.json")
	doc := &document.Document{Nodes: []document.Node{
		{ID: "A", Type: "text", Width: 100, Height: 100, Data: canvas.Metadata{"label": "hi"}},
	}}
	if err := document.WriteFile(path, doc); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := NewFileStore(path)
	if err := s.Apply(context.Background(), "b1", []canvas.Patch{moved("A", 40, 60), moved("ghost", 1, 1)}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	got, err := document.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got.Nodes[0].Position != (geom.Point{X: 40, Y: 60}) {
		t.Errorf("position = %v", got.Nodes[0].Position)
	}
	if got.Nodes[0].Data["label"] != "hi" {
		t.Errorf("data = %v", got.Nodes[0].Data)
	}

	missing := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	if err := missing.Apply(context.Background(), "b2", []canvas.Patch{moved("A", 1, 1)}); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := os.Stat(missing.Path()); err == nil {
		t.Error("failed apply must not create the file")
	}
}

func TestUpdateDoc(t *testing.T) {
	root := canvas.RootScope
	free := false
	p := canvas.Patch{ID: "A", Fields: canvas.Fields{
		Position: &geom.Point{X: 1, Y: 2},
		ParentID: &root,
		Confined: &free,
	}}

	u := updateDoc(p)
	set, ok := u["$set"].(bson.M)
	if !ok {
		t.Fatalf("$set = %T", u["$set"])
	}
	if _, ok := set["position"]; !ok {
		t.Errorf("$set = %v, want position", set)
	}
	unset, _ := u["$unset"].(bson.M)
	if _, ok := unset["parentId"]; !ok {
		t.Errorf("$unset = %v, want parentId", unset)
	}
	if _, ok := unset["extent"]; !ok {
		t.Errorf("$unset = %v, want extent", unset)
	}

	if got := updateDoc(canvas.Patch{ID: "B"}); len(got) != 0 {
		t.Errorf("empty patch update = %v", got)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.Persist{Store: config.StoreNone})
	if err != nil || s != nil {
		t.Errorf("Open(none) = %v, %v", s, err)
	}
	s, err = Open(ctx, config.Persist{Store: config.StoreMemory})
	if _, ok := s.(*MemoryStore); err != nil || !ok {
		t.Errorf("Open(memory) = %T, %v", s, err)
	}
	s, err = Open(ctx, config.Persist{Store: config.StoreFile, Path: "x.json"})
	if fs, ok := s.(*FileStore); err != nil || !ok || fs.Path() != "x.json" {
		t.Errorf("Open(file) = %T, %v", s, err)
	}
	if _, err := Open(ctx, config.Persist{Store: "s3"}); err == nil {
		t.Error("unknown store should fail")
	}
}
