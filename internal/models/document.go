// Package models defines core data structures for chunks, chat exchanges, uploads, and admin responses.
package models

import (
	"strconv"
	"time"
)

// Metadata keys as stored alongside each chunk in the vector store.
const (
	MetaFileName        = "fileName"
	MetaFileType        = "fileType"
	MetaUserID          = "userId"
	MetaChunkIndex      = "chunkIndex"
	MetaTotalChunks     = "totalChunks"
	MetaCategory        = "category"
	MetaUploadTimestamp = "uploadTimestamp"
)

// ChunkMetadata records where a chunk came from.
type ChunkMetadata struct {
	FileName        string    `json:"fileName"`
	FileType        string    `json:"fileType"`
	UserID          string    `json:"userId"`
	ChunkIndex      int       `json:"chunkIndex"`
	TotalChunks     int       `json:"totalChunks"`
	Category        string    `json:"category"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
}

// Map flattens the metadata into string pairs understood by every vector store backend.
func (m ChunkMetadata) Map() map[string]string {
	return map[string]string{
		MetaFileName:        m.FileName,
		MetaFileType:        m.FileType,
		MetaUserID:          m.UserID,
		MetaChunkIndex:      strconv.Itoa(m.ChunkIndex),
		MetaTotalChunks:     strconv.Itoa(m.TotalChunks),
		MetaCategory:        m.Category,
		MetaUploadTimestamp: m.UploadTimestamp.UTC().Format(time.RFC3339Nano),
	}
}

// MetadataFromMap is the inverse of ChunkMetadata.Map. Missing or malformed
// numeric and time fields are left at their zero values.
func MetadataFromMap(m map[string]string) ChunkMetadata {
	md := ChunkMetadata{
		FileName: m[MetaFileName],
		FileType: m[MetaFileType],
		UserID:   m[MetaUserID],
		Category: m[MetaCategory],
	}
	md.ChunkIndex, _ = strconv.Atoi(m[MetaChunkIndex])
	md.TotalChunks, _ = strconv.Atoi(m[MetaTotalChunks])
	if ts, err := time.Parse(time.RFC3339Nano, m[MetaUploadTimestamp]); err == nil {
		md.UploadTimestamp = ts
	}
	return md
}

// Chunk is a bounded text segment of an ingested document. Chunks are never updated
// after creation; they live until the index is cleared.
type Chunk struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"-"`
}

// RetrievedChunk is one hit of a similarity query, best first.
type RetrievedChunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}
