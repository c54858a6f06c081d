package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/finbot/internal/models"
)

// ErrBatchNotFound is returned by GetBatch for unknown ids.
var ErrBatchNotFound = errors.New("batch not found")

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS upload_batches (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		source TEXT NOT NULL,
		documents_processed INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_batches_created_at ON upload_batches(created_at);

	CREATE TABLE IF NOT EXISTS batch_files (
		batch_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		file_name TEXT NOT NULL,
		file_type TEXT,
		status TEXT NOT NULL,
		chunks INTEGER NOT NULL,
		error TEXT,
		digest TEXT,
		PRIMARY KEY (batch_id, position),
		FOREIGN KEY (batch_id) REFERENCES upload_batches(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_batch_files_digest ON batch_files(digest);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordBatch inserts a batch and its file outcomes in a transaction.
// ID and CreatedAt are filled in when empty.
func (s *SQLiteLedger) RecordBatch(ctx context.Context, batch *models.UploadBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO upload_batches (id, user_id, source, documents_processed, total_chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.UserID, batch.Source, batch.DocumentsProcessed, batch.TotalChunks, batch.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO batch_files (batch_id, position, file_name, file_type, status, chunks, error, digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range batch.Files {
		if _, err := stmt.ExecContext(ctx, batch.ID, i, f.FileName, f.FileType, string(f.Status), f.Chunks, f.Error, f.Digest); err != nil {
			return fmt.Errorf("failed to insert file outcome: %w", err)
		}
	}
	return tx.Commit()
}

// GetBatch returns a batch with its file outcomes.
func (s *SQLiteLedger) GetBatch(ctx context.Context, id string) (*models.UploadBatch, error) {
	var b models.UploadBatch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, source, documents_processed, total_chunks, created_at
		 FROM upload_batches WHERE id = ?`, id,
	).Scan(&b.ID, &b.UserID, &b.Source, &b.DocumentsProcessed, &b.TotalChunks, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	files, err := s.batchFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Files = files
	return &b, nil
}

func (s *SQLiteLedger) batchFiles(ctx context.Context, batchID string) ([]*models.FileOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, file_type, status, chunks, error, digest
		 FROM batch_files WHERE batch_id = ? ORDER BY position`,
		batchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.FileOutcome
	for rows.Next() {
		var f models.FileOutcome
		var fileType, errText, digest sql.NullString
		var status string
		if err := rows.Scan(&f.FileName, &fileType, &status, &f.Chunks, &errText, &digest); err != nil {
			return nil, err
		}
		f.FileType = fileType.String
		f.Status = models.FileStatus(status)
		f.Error = errText.String
		f.Digest = digest.String
		files = append(files, &f)
	}
	return files, rows.Err()
}

// ListBatches returns batches newest first, without their file outcomes.
func (s *SQLiteLedger) ListBatches(ctx context.Context, offset, limit int) ([]*models.UploadBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, source, documents_processed, total_chunks, created_at
		 FROM upload_batches ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*models.UploadBatch
	for rows.Next() {
		var b models.UploadBatch
		if err := rows.Scan(&b.ID, &b.UserID, &b.Source, &b.DocumentsProcessed, &b.TotalChunks, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

// HasDigest reports whether a file with this digest was processed before.
// Skipped and failed outcomes do not count.
func (s *SQLiteLedger) HasDigest(ctx context.Context, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM batch_files WHERE digest = ? AND status = ? LIMIT 1`,
		digest, string(models.FileProcessed),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountBatches returns the number of recorded batches.
func (s *SQLiteLedger) CountBatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM upload_batches`).Scan(&count)
	return count, err
}

// CountFiles returns the number of processed files across all batches.
func (s *SQLiteLedger) CountFiles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batch_files WHERE status = ?`, string(models.FileProcessed),
	).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks written across all batches.
func (s *SQLiteLedger) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_chunks), 0) FROM upload_batches`).Scan(&count)
	return count, err
}

// Clear removes every batch and file outcome.
func (s *SQLiteLedger) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_files`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM upload_batches`); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
