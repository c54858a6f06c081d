package llm

import (
	"fmt"

	"github.com/hyperjump/finbot/internal/config"
)

// NewFromConfig builds the generator selected by cfg.Provider.
func NewFromConfig(cfg *config.GenerationConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaChat(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case config.ProviderOpenAI:
		return NewOpenAIChat(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.MaxTokens)
	case config.ProviderMock:
		return NewEchoGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
