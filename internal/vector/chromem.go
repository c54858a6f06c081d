package vector

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/hyperjump/finbot/internal/models"
)

// ChromemStore keeps chunks in an embedded chromem-go collection, optionally
// persisted to a directory.
type ChromemStore struct {
	db         *chromem.DB
	name       string
	dimensions int
	col        *chromem.Collection
	mu         sync.Mutex
}

// NewChromemStore opens a chromem database at dir (in memory when dir is empty).
func NewChromemStore(dir, collection string, dimensions int) (*ChromemStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	db := chromem.NewDB()
	if dir != "" {
		var err error
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}
	return &ChromemStore{db: db, name: collection, dimensions: dimensions}, nil
}

// Type returns the backend name.
func (s *ChromemStore) Type() string {
	return "chromem"
}

// EnsureSchema creates the collection when missing.
func (s *ChromemStore) EnsureSchema(ctx context.Context) error {
	_, err := s.collection()
	return err
}

func (s *ChromemStore) collection() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col != nil {
		return s.col, nil
	}
	// Embeddings are always supplied by the caller, so no embedding func is set.
	col, err := s.db.GetOrCreateCollection(s.name, map[string]string{"distance": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", s.name, err)
	}
	s.col = col
	return col, nil
}

// Upsert adds every chunk to the collection.
func (s *ChromemStore) Upsert(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := checkChunks(chunks, s.dimensions); err != nil {
		return err
	}
	col, err := s.collection()
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Metadata:  c.Metadata.Map(),
			Embedding: append([]float32(nil), c.Embedding...),
			Content:   c.Content,
		}
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Search returns the top-k chunks by cosine similarity.
func (s *ChromemStore) Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedChunk, error) {
	if err := checkQuery(query, s.dimensions); err != nil {
		return nil, err
	}
	col, err := s.collection()
	if err != nil {
		return nil, err
	}
	// chromem rejects n larger than the collection.
	if n := col.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}
	results, err := col.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	hits := make([]*models.RetrievedChunk, len(results))
	for i, r := range results {
		hits[i] = &models.RetrievedChunk{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: models.MetadataFromMap(r.Metadata),
			Score:    float64(r.Similarity),
		}
	}
	return hits, nil
}

// Flush deletes the collection, including its files on disk.
func (s *ChromemStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.name, err)
	}
	s.col = nil
	return nil
}

// Size returns the number of documents in the collection.
func (s *ChromemStore) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	col := s.col
	s.mu.Unlock()
	if col == nil {
		if c := s.db.GetCollection(s.name, nil); c != nil {
			return c.Count(), nil
		}
		return 0, nil
	}
	return col.Count(), nil
}

// Close is a no-op; persistent databases write on every add.
func (s *ChromemStore) Close() error {
	return nil
}
