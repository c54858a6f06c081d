// Package rag answers chat messages from retrieved document chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/embedding"
	"github.com/hyperjump/finbot/internal/llm"
	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/vector"
)

// DefaultTopK is the number of chunks placed in the prompt.
const DefaultTopK = 3

// ErrEmptyQuery is returned for blank chat messages.
var ErrEmptyQuery = errors.New("query is empty")

// Responder runs retrieval followed by a single generation.
type Responder struct {
	embedder  embedding.Embedder
	store     vector.Store
	generator llm.Generator
	topK      int
	logger    *zap.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithLogger sets the logger used for per-request events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// WithTopK sets how many chunks are retrieved per question. Non-positive values are ignored.
func WithTopK(k int) Option {
	return func(r *Responder) {
		if k > 0 {
			r.topK = k
		}
	}
}

// NewResponder creates a responder over the given embedder, store and generator.
func NewResponder(embedder embedding.Embedder, store vector.Store, generator llm.Generator, opts ...Option) *Responder {
	r := &Responder{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      DefaultTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopK returns the number of chunks retrieved per question.
func (r *Responder) TopK() int {
	return r.topK
}

// Retrieve embeds query and returns the closest chunks, best first.
func (r *Responder) Retrieve(ctx context.Context, query string) ([]*models.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	chunks, err := r.store.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return chunks, nil
}

// Answer retrieves context for query, asks the model, and scores the answer.
// Every call is independent; nothing about the exchange is kept.
func (r *Responder) Answer(ctx context.Context, query, userID string) (*models.ChatResponse, error) {
	if userID == "" {
		userID = models.DefaultUserID
	}
	chunks, err := r.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	system := SystemPrompt(BuildContext(texts))

	answer, err := r.generator.Generate(ctx, system, query)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	confidence := Confidence(len(chunks))
	suggest := SuggestTicket(confidence)
	if suggest {
		answer += EscalationNotice
	}

	r.logger.Debug("answered chat message",
		zap.String("user_id", userID),
		zap.Int("retrieved", len(chunks)),
		zap.Float64("confidence", confidence),
		zap.String("model", r.generator.Name()),
	)
	return &models.ChatResponse{
		Response:        answer,
		UserID:          userID,
		ConfidenceScore: confidence,
		SuggestTicket:   suggest,
	}, nil
}
