package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// ChatModel sends a system + human exchange to a langchaingo model.
type ChatModel struct {
	model       llms.Model
	name        string
	temperature float64
	maxTokens   int
}

// NewChatModel wraps an existing langchaingo model.
func NewChatModel(model llms.Model, name string, temperature float64, maxTokens int) *ChatModel {
	return &ChatModel{model: model, name: name, temperature: temperature, maxTokens: maxTokens}
}

// NewOllamaChat talks to an Ollama server's /api/chat endpoint.
func NewOllamaChat(baseURL, model string, temperature float64, maxTokens int) (*ChatModel, error) {
	llm, err := ollama.New(ollama.WithServerURL(baseURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return NewChatModel(llm, "ollama/"+model, temperature, maxTokens), nil
}

// NewOpenAIChat talks to an OpenAI-compatible chat completions endpoint.
func NewOpenAIChat(apiKey, baseURL, model string, temperature float64, maxTokens int) (*ChatModel, error) {
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewChatModel(llm, "openai/"+model, temperature, maxTokens), nil
}

// Generate returns the first choice of a single non-streaming completion.
func (m *ChatModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	opts := []llms.CallOption{llms.WithTemperature(m.temperature)}
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}
	resp, err := m.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", m.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", m.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Content, nil
}

// Name identifies the provider and model.
func (m *ChatModel) Name() string {
	return m.name
}
