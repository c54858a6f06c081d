// Package indexer turns uploaded files into tagged, embedded chunks in the vector store.
package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into overlapping segments, preferring paragraph, then
// line, then word boundaries.
type Chunker struct {
	splitter     textsplitter.RecursiveCharacter
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Non-positive values fall back to the defaults.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = min(DefaultChunkOverlap, chunkSize/5)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split returns the segments of text in order. Blank input yields no segments
// and whitespace-only segments are dropped.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil
	}
	segments := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Size returns the maximum segment length in characters.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the target overlap between neighbouring segments.
func (c *Chunker) Overlap() int { return c.chunkOverlap }
