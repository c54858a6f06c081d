// Package admin implements liveness, status and the destructive clear-all operation.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/storage"
	"github.com/hyperjump/finbot/internal/vector"
)

// ServiceName is reported by the health check.
const ServiceName = "Financial Literacy Chatbot"

// ClearedMessage is returned after a successful clear-all.
const ClearedMessage = "All documents cleared successfully. The index is ready for new uploads."

// ErrUnauthorized is returned when the supplied admin key does not match.
var ErrUnauthorized = errors.New("invalid admin key")

// Service performs admin operations against the vector store and ledger.
type Service struct {
	store     vector.Store
	ledger    storage.Ledger // optional
	key       string
	diskPaths []string
	settings  *models.StatusConfig
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithLedger makes clear-all forget recorded batches and lets Status report counts.
func WithLedger(l storage.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithDiskPaths lists local files and directories whose size Status reports.
func WithDiskPaths(paths ...string) Option {
	return func(s *Service) { s.diskPaths = append(s.diskPaths, paths...) }
}

// WithSettings attaches the retrieval settings summary returned by Status.
func WithSettings(c *models.StatusConfig) Option {
	return func(s *Service) { s.settings = c }
}

// WithClock replaces time.Now for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an admin service guarding destructive calls with key.
func NewService(store vector.Store, key string, opts ...Option) *Service {
	s := &Service{
		store:  store,
		key:    key,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health reports static liveness. It does not check dependencies.
func (s *Service) Health() *models.HealthResponse {
	return &models.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}
}

// Authorize compares key with the configured admin key in constant time.
func (s *Service) Authorize(key string) error {
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.key)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// ClearAll drops every stored chunk, recreates the empty index and forgets the
// ledger. A wrong key has no side effects.
func (s *Service) ClearAll(ctx context.Context, key string) (*models.ClearResponse, error) {
	if err := s.Authorize(key); err != nil {
		s.logger.Warn("clear-all rejected: invalid admin key")
		return nil, err
	}
	if err := s.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush vector store: %w", err)
	}
	if err := s.store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to recreate index: %w", err)
	}
	if s.ledger != nil {
		if err := s.ledger.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear ledger: %w", err)
		}
	}
	s.logger.Info("all documents cleared", zap.String("store", s.store.Type()))
	return &models.ClearResponse{Success: true, Message: ClearedMessage}, nil
}

// Status reports store size, ledger counts and local disk usage.
func (s *Service) Status(ctx context.Context) (*models.StatusResponse, error) {
	size, err := s.store.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read vector store size: %w", err)
	}
	resp := &models.StatusResponse{VectorStoreSize: size, Config: s.settings}
	if s.ledger != nil {
		if resp.Batches, err = s.ledger.CountBatches(ctx); err != nil {
			return nil, fmt.Errorf("failed to count batches: %w", err)
		}
		if resp.Files, err = s.ledger.CountFiles(ctx); err != nil {
			return nil, fmt.Errorf("failed to count files: %w", err)
		}
		if resp.Chunks, err = s.ledger.CountChunks(ctx); err != nil {
			return nil, fmt.Errorf("failed to count chunks: %w", err)
		}
	}
	if len(s.diskPaths) > 0 {
		usage, err := storage.DiskUsageBytes(s.diskPaths...)
		if err != nil {
			s.logger.Warn("failed to compute disk usage", zap.Error(err))
		} else {
			resp.DiskUsageBytes = &usage
		}
	}
	return resp, nil
}
