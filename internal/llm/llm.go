// Package llm generates chat answers from a system prompt and a single user turn.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model answers with no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Generator produces one non-streamed completion per call.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}
