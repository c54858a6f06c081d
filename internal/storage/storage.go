// Package storage defines the ingestion ledger: a durable record of upload batches and per-file outcomes.
package storage

import (
	"context"

	"github.com/hyperjump/finbot/internal/models"
)

// Ledger records what was ingested, by whom, and from which source.
// It never holds chunk text or embeddings; those live in the vector store.
type Ledger interface {
	// Batch operations
	RecordBatch(ctx context.Context, batch *models.UploadBatch) error
	GetBatch(ctx context.Context, id string) (*models.UploadBatch, error)
	ListBatches(ctx context.Context, offset, limit int) ([]*models.UploadBatch, error)

	// HasDigest reports whether a processed file with this content digest is recorded.
	HasDigest(ctx context.Context, digest string) (bool, error)

	// Stats
	CountBatches(ctx context.Context) (int64, error)
	CountFiles(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	// Clear forgets every batch. Called together with a vector store flush.
	Clear(ctx context.Context) error

	Close() error
}
