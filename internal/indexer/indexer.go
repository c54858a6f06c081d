package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/embedding"
	"github.com/hyperjump/finbot/internal/extract"
	"github.com/hyperjump/finbot/internal/fileid"
	"github.com/hyperjump/finbot/internal/models"
	"github.com/hyperjump/finbot/internal/storage"
	"github.com/hyperjump/finbot/internal/vector"
)

// Indexer parses, chunks, tags, embeds and stores uploaded documents.
type Indexer struct {
	extractor *extract.Extractor
	chunker   *Chunker
	embedder  embedding.Embedder
	store     vector.Store
	ledger    storage.Ledger // optional
	category  string
	now       func() time.Time
	logger    *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for per-file and per-batch events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithLedger records every batch in ledger and enables skipping known files.
func WithLedger(l storage.Ledger) IndexerOption {
	return func(idx *Indexer) { idx.ledger = l }
}

// WithCategory overrides the category label stored on every chunk.
func WithCategory(category string) IndexerOption {
	return func(idx *Indexer) { idx.category = category }
}

// WithClock replaces time.Now for upload timestamps.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an indexer with the given dependencies.
// Options (e.g. WithLogger, WithLedger) can be passed to enable optional behaviour.
func NewIndexer(
	extractor *extract.Extractor,
	chunker *Chunker,
	embedder embedding.Embedder,
	store vector.Store,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		category:  DefaultCategory,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor()
	}
	if idx.chunker == nil {
		idx.chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	return idx
}

// Ingest processes files in order and writes all resulting chunks to the vector
// store with a single embedding call and a single upsert. Unsupported, empty and
// unparseable files are reported per file and do not fail the call; an embedding
// or store failure fails the whole call and nothing is recorded.
func (idx *Indexer) Ingest(ctx context.Context, files []models.UploadFile, userID, source string) (*models.UploadResult, error) {
	result := &models.UploadResult{Files: make([]*models.FileOutcome, 0, len(files))}
	var chunks []*models.Chunk
	now := idx.now()

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome, fileChunks := idx.processFile(f, userID, now)
		result.Files = append(result.Files, outcome)
		if len(fileChunks) == 0 {
			continue
		}
		chunks = append(chunks, fileChunks...)
		result.DocumentsProcessed++
	}
	result.TotalChunksCreated = len(chunks)

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(embeddings) != len(chunks) {
			return nil, fmt.Errorf("failed to generate embeddings: got %d for %d chunks", len(embeddings), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
		if err := idx.store.Upsert(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to store chunks: %w", err)
		}
		idx.logger.Info("chunks stored",
			zap.Int("chunks", len(chunks)),
			zap.Int("documents", result.DocumentsProcessed),
			zap.String("user_id", userID),
		)
	}

	result.Success = true
	result.Message = fmt.Sprintf("Successfully processed %d files into %d chunks.", result.DocumentsProcessed, result.TotalChunksCreated)
	idx.record(ctx, result, userID, source, now)
	return result, nil
}

// processFile parses and chunks one file. It never returns an error: failures
// are described by the outcome.
func (idx *Indexer) processFile(f models.UploadFile, userID string, now time.Time) (*models.FileOutcome, []*models.Chunk) {
	mimeType := extract.DetectMIMEType(f.Name, f.MIMEType)
	outcome := &models.FileOutcome{
		FileName: f.Name,
		FileType: mimeType,
		Digest:   fileid.Digest(f.Content),
	}
	log := idx.logger.With(zap.String("file", f.Name), zap.String("type", mimeType))

	if !extract.Supported(mimeType) {
		outcome.Status = models.FileSkippedUnsupported
		log.Warn("skipping unsupported file type")
		return outcome, nil
	}
	text, err := idx.extractor.Parse(f.Content, mimeType)
	if err != nil {
		outcome.Status = models.FileFailed
		outcome.Error = err.Error()
		log.Error("failed to parse file", zap.Error(err))
		return outcome, nil
	}
	segments := idx.chunker.Split(Normalize(text))
	if len(segments) == 0 {
		outcome.Status = models.FileSkippedEmpty
		log.Warn("no text extracted from file")
		return outcome, nil
	}
	chunks := Tag(segments, FileInfo{Name: f.Name, MIMEType: mimeType}, userID, idx.category, now)
	outcome.Status = models.FileProcessed
	outcome.Chunks = len(chunks)
	log.Debug("file chunked", zap.Int("chunks", len(chunks)))
	return outcome, chunks
}

func (idx *Indexer) record(ctx context.Context, result *models.UploadResult, userID, source string, now time.Time) {
	if idx.ledger == nil || len(result.Files) == 0 {
		return
	}
	batch := &models.UploadBatch{
		UserID:             userID,
		Source:             source,
		DocumentsProcessed: result.DocumentsProcessed,
		TotalChunks:        result.TotalChunksCreated,
		Files:              result.Files,
		CreatedAt:          now.UTC(),
	}
	if err := idx.ledger.RecordBatch(ctx, batch); err != nil {
		idx.logger.Error("failed to record upload batch", zap.Error(err))
	}
}

// ErrAlreadyIngested is returned by IngestPath when skipKnown is set and the
// ledger already holds a processed file with identical content.
var ErrAlreadyIngested = errors.New("file already ingested")

// IngestPath reads one file from disk and ingests it. With skipKnown, files whose
// content digest the ledger already knows are not ingested again.
func (idx *Indexer) IngestPath(ctx context.Context, path, userID, source string, skipKnown bool) (*models.UploadResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if skipKnown && idx.ledger != nil {
		known, err := idx.ledger.HasDigest(ctx, fileid.Digest(content))
		if err != nil {
			return nil, fmt.Errorf("check ledger: %w", err)
		}
		if known {
			idx.logger.Debug("skipping already ingested file", zap.String("path", absPath))
			return nil, ErrAlreadyIngested
		}
	}
	file := models.UploadFile{
		Name:     filepath.Base(absPath),
		MIMEType: extract.DetectMIMEType(absPath, ""),
		Content:  content,
	}
	return idx.Ingest(ctx, []models.UploadFile{file}, userID, source)
}

// IngestDirectory walks dir recursively and ingests every supported file in a
// single batch. Hidden files and directories are skipped.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir, userID, source string) (*models.UploadResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	var files []models.UploadFile
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		name := d.Name()
		if path != absDir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !extract.SupportedExtension(name) {
			return nil
		}
		// Resolve symlinks so we only ingest regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		files = append(files, models.UploadFile{
			Name:     name,
			MIMEType: extract.DetectMIMEType(name, ""),
			Content:  content,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx.Ingest(ctx, files, userID, source)
}
