package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/finbot/internal/models"
)

func TestMemoryStore(t *testing.T) {
	s, err := NewMemoryStore(3, "")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_invalidDimension(t *testing.T) {
	if _, err := NewMemoryStore(0, ""); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestMemoryStore_snapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors", "memory.idx")
	ctx := context.Background()

	s, err := NewMemoryStore(3, path)
	if err != nil {
		t.Fatal(err)
	}
	chunks := []*models.Chunk{
		testChunk("a", "Save 20% of income", 0, 1, 0, 0),
		testChunk("b", "Line one\nLine two | with pipes", 1, 0, 1, 0),
	}
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewMemoryStore(3, path)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := reopened.Size(ctx); n != 2 {
		t.Fatalf("reopened Size = %d", n)
	}
	hits, err := reopened.Search(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ID != "b" || hits[0].Content != "Line one\nLine two | with pipes" || hits[0].Metadata.ChunkIndex != 1 {
		t.Errorf("reopened hit = %+v", hits[0])
	}

	if _, err := NewMemoryStore(4, path); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("reopen with other dims err = %v", err)
	}

	if err := reopened.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("snapshot should be removed by Flush, stat err = %v", err)
	}
}

func TestMemoryStore_upsertCopiesEmbedding(t *testing.T) {
	s, _ := NewMemoryStore(2, "")
	ctx := context.Background()
	c := testChunk("x", "text", 0, 1, 0)
	if err := s.Upsert(ctx, []*models.Chunk{c}); err != nil {
		t.Fatal(err)
	}
	c.Embedding[0], c.Embedding[1] = 0, 1
	hits, _ := s.Search(ctx, []float32{1, 0}, 1)
	if hits[0].Score < 0.99 {
		t.Errorf("stored embedding changed with caller's slice, score %f", hits[0].Score)
	}
}

func TestMemoryStore_failedSnapshotKeepsStoreUnchanged(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	s, _ := NewMemoryStore(2, "")
	ctx := context.Background()
	if err := s.Upsert(ctx, []*models.Chunk{testChunk("a", "kept", 0, 1, 0)}); err != nil {
		t.Fatal(err)
	}
	// The snapshot directory is a regular file, so every write fails.
	s.path = filepath.Join(blocker, "memory.idx")

	if err := s.Upsert(ctx, []*models.Chunk{testChunk("b", "lost", 0, 0, 1)}); err == nil {
		t.Fatal("expected snapshot write error")
	}
	if n, _ := s.Size(ctx); n != 1 {
		t.Errorf("Size = %d after failed upsert, want 1", n)
	}
	hits, _ := s.Search(ctx, []float32{0, 1}, 3)
	for _, h := range hits {
		if h.ID == "b" {
			t.Error("chunk from failed upsert is searchable")
		}
	}
}
