package models

import "time"

// FileStatus is the outcome of ingesting one file.
type FileStatus string

const (
	FileProcessed          FileStatus = "processed"
	FileSkippedUnsupported FileStatus = "skipped_unsupported"
	FileSkippedEmpty       FileStatus = "skipped_empty"
	FileFailed             FileStatus = "failed"
)

// Ingestion sources recorded in the ledger.
const (
	SourceHTTP    = "http"
	SourceWatcher = "watcher"
	SourceCLI     = "cli"
)

// UploadFile is one raw file handed to the ingestion pipeline.
type UploadFile struct {
	Name     string
	MIMEType string
	Content  []byte
}

// FileOutcome reports what happened to a single file of a batch.
type FileOutcome struct {
	FileName string     `json:"file_name"`
	FileType string     `json:"file_type"`
	Status   FileStatus `json:"status"`
	Chunks   int        `json:"chunks"`
	Error    string     `json:"error,omitempty"`
	Digest   string     `json:"-"`
}

// UploadResult is the response of an ingestion call.
type UploadResult struct {
	Success            bool           `json:"success"`
	Message            string         `json:"message"`
	DocumentsProcessed int            `json:"documents_processed"`
	TotalChunksCreated int            `json:"total_chunks_created"`
	Files              []*FileOutcome `json:"files"`
}

// UploadBatch is the ledger record of one ingestion call.
type UploadBatch struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	Source             string         `json:"source"`
	DocumentsProcessed int            `json:"documents_processed"`
	TotalChunks        int            `json:"total_chunks"`
	Files              []*FileOutcome `json:"files,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}
