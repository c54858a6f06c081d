// Package embedding turns text into vectors via Ollama, OpenAI, or a deterministic local hash.
package embedding

import (
	"context"
	"errors"
)

// ErrDimensions is returned when a service answers with vectors of an unexpected length.
var ErrDimensions = errors.New("embedding dimensions mismatch")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
