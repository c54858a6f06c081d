package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/admin"
	"github.com/hyperjump/finbot/internal/config"
	"github.com/hyperjump/finbot/internal/embedding"
	"github.com/hyperjump/finbot/internal/extract"
	"github.com/hyperjump/finbot/internal/indexer"
	"github.com/hyperjump/finbot/internal/llm"
	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/rag"
	"github.com/hyperjump/finbot/internal/storage"
	"github.com/hyperjump/finbot/internal/vector"
)

// Components holds initialized services.
type Components struct {
	Ledger    *storage.SQLiteLedger
	Embedder  embedding.Embedder
	Store     vector.Store
	Generator llm.Generator
	Indexer   *indexer.Indexer
	Responder *rag.Responder
	Admin     *admin.Service
}

// Close releases every initialized component.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Ledger != nil {
		_ = c.Ledger.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	c.Ledger = ledger

	c.Embedder, err = embedding.NewFromConfig(&cfg.Embedding)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	c.Store, err = vector.NewStore(ctx, cfg, c.Embedder.Dimensions(), logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	c.Generator, err = llm.NewFromConfig(&cfg.Generation)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	c.Indexer = indexer.NewIndexer(
		extract.NewExtractor(),
		indexer.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		c.Embedder,
		c.Store,
		indexer.WithLedger(ledger),
		indexer.WithCategory(cfg.Ingest.Category),
		indexer.WithLogger(logger),
	)
	c.Responder = rag.NewResponder(c.Embedder, c.Store, c.Generator,
		rag.WithTopK(cfg.Chat.TopK),
		rag.WithLogger(logger),
	)

	diskPaths := storage.LedgerFiles(cfg.Storage.DatabasePath)
	if cfg.Vector.Backend != config.BackendRedis {
		diskPaths = append(diskPaths, cfg.Storage.VectorPath)
	}
	c.Admin = admin.NewService(c.Store, cfg.Admin.Key,
		admin.WithLedger(ledger),
		admin.WithDiskPaths(diskPaths...),
		admin.WithSettings(statusSettings(cfg, c.Generator.Name())),
		admin.WithLogger(logger),
	)

	logger.Info("components initialized",
		zap.String("vector_backend", c.Store.Type()),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
	)
	return c, nil
}

// statusSettings summarizes cfg for the status report.
func statusSettings(cfg *config.Config, chatModel string) *models.StatusConfig {
	s := &models.StatusConfig{
		VectorBackend:  cfg.Vector.Backend,
		EmbeddingModel: cfg.Embedding.Provider + "/" + cfg.Embedding.Model,
		ChatModel:      chatModel,
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		TopK:           cfg.Chat.TopK,
		DatabasePath:   cfg.Storage.DatabasePath,
	}
	if cfg.Vector.Backend != config.BackendMemory {
		s.IndexName = cfg.Vector.IndexName
	}
	if cfg.Vector.Backend != config.BackendRedis {
		s.VectorPath = cfg.Storage.VectorPath
	}
	if cfg.Embedding.Provider == config.ProviderMock {
		s.EmbeddingModel = config.ProviderMock
	}
	return s
}
