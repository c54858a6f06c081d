// Package vector stores embedded chunks and answers nearest-neighbour queries.
package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/finbot/internal/models"
)

// ErrDimensionMismatch is returned when a vector's length differs from the store's.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Store holds embedded chunks. Chunks are only ever added; the whole store is
// dropped at once with Flush.
type Store interface {
	// EnsureSchema creates the index if it does not exist yet.
	EnsureSchema(ctx context.Context) error
	// Upsert writes all chunks in one call. Every chunk must carry an embedding.
	Upsert(ctx context.Context, chunks []*models.Chunk) error
	// Search returns at most k chunks, most similar first.
	Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedChunk, error)
	// Flush removes every stored chunk and the index definition.
	Flush(ctx context.Context) error
	Size(ctx context.Context) (int, error)
	Type() string
	Close() error
}

func checkChunks(chunks []*models.Chunk, dims int) error {
	for _, c := range chunks {
		if len(c.Embedding) != dims {
			return fmt.Errorf("%w: chunk %s has %d, expected %d", ErrDimensionMismatch, c.ID, len(c.Embedding), dims)
		}
	}
	return nil
}

func checkQuery(query []float32, dims int) error {
	if len(query) != dims {
		return fmt.Errorf("%w: query has %d, expected %d", ErrDimensionMismatch, len(query), dims)
	}
	return nil
}
