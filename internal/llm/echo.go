package llm

import (
	"context"
	"strings"
)

// EchoGenerator answers without a model by repeating the prompt and the system
// context. Used for offline runs and tests.
type EchoGenerator struct{}

// NewEchoGenerator returns an EchoGenerator.
func NewEchoGenerator() *EchoGenerator {
	return &EchoGenerator{}
}

// Generate returns the question followed by the system prompt.
func (EchoGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Q: ")
	b.WriteString(strings.TrimSpace(prompt))
	b.WriteString("\n")
	b.WriteString(system)
	return b.String(), nil
}

// Name identifies the generator.
func (EchoGenerator) Name() string {
	return "echo"
}
