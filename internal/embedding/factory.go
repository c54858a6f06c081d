package embedding

import (
	"fmt"

	"github.com/hyperjump/finbot/internal/config"
)

// NewFromConfig builds the embedder selected by cfg.Provider, wrapped in an
// LRU cache when cfg.CacheSize is positive.
func NewFromConfig(cfg *config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderOllama:
		e, err = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case config.ProviderOpenAI:
		e, err = NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case config.ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
