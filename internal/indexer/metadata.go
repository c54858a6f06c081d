package indexer

import (
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/finbot/internal/models"
)

// DefaultCategory labels every chunk unless configured otherwise.
const DefaultCategory = "financial_literacy"

// FileInfo identifies the source document of a set of segments.
type FileInfo struct {
	Name     string
	MIMEType string
}

// Tag wraps segments into chunks with fresh ids and provenance metadata.
// All chunks of one file share the timestamp now.
func Tag(segments []string, file FileInfo, userID, category string, now time.Time) []*models.Chunk {
	if len(segments) == 0 {
		return nil
	}
	if category == "" {
		category = DefaultCategory
	}
	ts := now.UTC()
	chunks := make([]*models.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = &models.Chunk{
			ID:      uuid.New().String(),
			Content: seg,
			Metadata: models.ChunkMetadata{
				FileName:        file.Name,
				FileType:        file.MIMEType,
				UserID:          userID,
				ChunkIndex:      i,
				TotalChunks:     len(segments),
				Category:        category,
				UploadTimestamp: ts,
			},
		}
	}
	return chunks
}
