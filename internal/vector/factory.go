package vector

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/config"
)

// NewStore creates the vector store selected by cfg.Vector.Backend and makes
// sure its schema exists. dimensions is the embedder's vector length.
func NewStore(ctx context.Context, cfg *config.Config, dimensions int, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		store Store
		err   error
	)
	switch cfg.Vector.Backend {
	case config.BackendRedis, "":
		store, err = NewRedisStoreFromURL(ctx, cfg.Vector.RedisURL, cfg.Vector.IndexName, dimensions,
			WithFlushScope(cfg.Vector.FlushScope),
			WithRedisLogger(logger),
		)
	case config.BackendChromem:
		dir := ""
		if cfg.Storage.VectorPath != "" {
			dir = filepath.Join(cfg.Storage.VectorPath, "chromem")
		}
		store, err = NewChromemStore(dir, cfg.Vector.IndexName, dimensions)
	case config.BackendMemory:
		path := ""
		if cfg.Storage.VectorPath != "" {
			path = filepath.Join(cfg.Storage.VectorPath, "memory.idx")
		}
		store, err = NewMemoryStore(dimensions, path)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (supported: redis, chromem, memory)", cfg.Vector.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("vector store ready",
		zap.String("backend", store.Type()),
		zap.String("index", cfg.Vector.IndexName),
		zap.Int("dims", dimensions),
	)
	return store, nil
}
