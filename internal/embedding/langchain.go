package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ServiceEmbedder calls a remote embedding service through langchaingo.
type ServiceEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
	name       string
}

// NewServiceEmbedder wraps any langchaingo embedder client. dimensions is the
// expected vector length; zero disables the check.
func NewServiceEmbedder(client embeddings.EmbedderClient, name string, dimensions int) (*ServiceEmbedder, error) {
	e, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(32),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &ServiceEmbedder{embedder: e, dimensions: dimensions, name: name}, nil
}

// NewOllamaEmbedder embeds with an Ollama model such as nomic-embed-text.
func NewOllamaEmbedder(baseURL, model string, dimensions int) (*ServiceEmbedder, error) {
	llm, err := ollama.New(ollama.WithServerURL(baseURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewServiceEmbedder(llm, "ollama/"+model, dimensions)
}

// NewOpenAIEmbedder embeds with an OpenAI-compatible embeddings endpoint.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) (*ServiceEmbedder, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithEmbeddingModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewServiceEmbedder(llm, "openai/"+model, dimensions)
}

// Embed embeds a single query text.
func (e *ServiceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	if err := e.check(v); err != nil {
		return nil, err
	}
	return v, nil
}

// EmbedBatch embeds document texts in order.
func (e *ServiceEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	if len(vs) != len(texts) {
		return nil, fmt.Errorf("%s: got %d vectors for %d texts", e.name, len(vs), len(texts))
	}
	for _, v := range vs {
		if err := e.check(v); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

func (e *ServiceEmbedder) check(v []float32) error {
	if e.dimensions > 0 && len(v) != e.dimensions {
		return fmt.Errorf("%w: %s returned %d, configured %d", ErrDimensions, e.name, len(v), e.dimensions)
	}
	return nil
}

// Dimensions returns the configured vector length.
func (e *ServiceEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (e *ServiceEmbedder) Close() error {
	return nil
}
