package persist

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hrhrng/clash-sub002/pkg/canvas"
	"github.com/hrhrng/clash-sub002/pkg/config"
	"github.com/hrhrng/clash-sub002/pkg/document"
	"github.com/hrhrng/clash-sub002/pkg/errors"
)

// Store receives coalesced batches. Apply must either write the whole batch
// or return an error; errors wrapped with cache.Retryable are retried.
type Store interface {
	Apply(ctx context.Context, batchID string, patches []canvas.Patch) error
	Close() error
}

// Open creates the store selected by cfg. It returns a nil Store when
// persistence is disabled.
func Open(ctx context.Context, cfg config.Persist) (Store, error) {
	switch cfg.Store {
	case config.StoreNone, "":
		return nil, nil
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile:
		return NewFileStore(cfg.Path), nil
	case config.StoreMongo:
		s, err := NewMongoStore(ctx, MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store %q", cfg.Store)
	}
}

// =============================================================================
// MemoryStore
// =============================================================================

// MemoryStore keeps the latest layout fields of every node it has seen.
type MemoryStore struct {
	mu      sync.Mutex
	fields  map[string]canvas.Fields
	batches []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fields: make(map[string]canvas.Fields)}
}

func (s *MemoryStore) Apply(_ context.Context, batchID string, patches []canvas.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patches {
		s.fields[p.ID] = s.fields[p.ID].Merge(p.Fields)
	}
	s.batches = append(s.batches, batchID)
	return nil
}

// Fields returns the stored fields of a node.
func (s *MemoryStore) Fields(id string) (canvas.Fields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	return f, ok
}

// Batches returns the ids of the applied batches, oldest first.
func (s *MemoryStore) Batches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.batches)
}

func (s *MemoryStore) Close() error { return nil }

// =============================================================================
// FileStore
// =============================================================================

// FileStore applies batches onto a document file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store for the document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Apply(ctx context.Context, batchID string, patches []canvas.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}
	if err := document.WriteFile(s.path, document.ApplyPatches(doc, patches)); err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
