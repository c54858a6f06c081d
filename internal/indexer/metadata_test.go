package indexer

import (
	"testing"
	"time"
)

func TestTag(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	file := FileInfo{Name: "guide.pdf", MIMEType: "application/pdf"}
	chunks := Tag([]string{"one", "two", "three"}, file, "admin", "", now)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	seen := map[string]bool{}
	for i, c := range chunks {
		if c.ID == "" || seen[c.ID] {
			t.Errorf("chunk %d id %q is empty or repeated", i, c.ID)
		}
		seen[c.ID] = true
		md := c.Metadata
		if md.ChunkIndex != i || md.TotalChunks != 3 {
			t.Errorf("chunk %d index/total = %d/%d", i, md.ChunkIndex, md.TotalChunks)
		}
		if md.FileName != "guide.pdf" || md.FileType != "application/pdf" || md.UserID != "admin" {
			t.Errorf("chunk %d provenance = %+v", i, md)
		}
		if md.Category != DefaultCategory {
			t.Errorf("category = %q", md.Category)
		}
		if !md.UploadTimestamp.Equal(now) || md.UploadTimestamp.Location() != time.UTC {
			t.Errorf("timestamp = %v", md.UploadTimestamp)
		}
		if c.Embedding != nil {
			t.Error("Tag must not set embeddings")
		}
	}
	if chunks[1].Content != "two" {
		t.Errorf("content order broken: %q", chunks[1].Content)
	}
}

func TestTag_customCategoryAndEmpty(t *testing.T) {
	chunks := Tag([]string{"x"}, FileInfo{Name: "a.docx"}, "u", "budgeting", time.Now())
	if chunks[0].Metadata.Category != "budgeting" {
		t.Errorf("category = %q", chunks[0].Metadata.Category)
	}
	if Tag(nil, FileInfo{}, "u", "", time.Now()) != nil {
		t.Error("no segments should give no chunks")
	}
}
