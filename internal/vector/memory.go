package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/finbot/internal/models"
)

// MemoryStore is an in-process store with brute-force cosine search. When a
// snapshot path is set, every write is persisted and the snapshot is reloaded
// on start.
type MemoryStore struct {
	dimensions int
	path       string
	chunks     []*models.Chunk
	mu         sync.RWMutex
}

// NewMemoryStore creates a memory store with the given dimension. path may be
// empty for a purely in-memory store.
func NewMemoryStore(dimensions int, path string) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m := &MemoryStore{dimensions: dimensions, path: path}
	if err := m.Load(path); err != nil {
		return nil, err
	}
	return m, nil
}

// Type returns the backend name.
func (m *MemoryStore) Type() string {
	return "memory"
}

// EnsureSchema is a no-op; the store has no schema.
func (m *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

// Upsert appends chunks (copying their embeddings) and persists the snapshot.
// Nothing becomes searchable unless the snapshot write succeeds.
func (m *MemoryStore) Upsert(ctx context.Context, chunks []*models.Chunk) error {
	if err := checkChunks(chunks, m.dimensions); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]*models.Chunk, len(m.chunks), len(m.chunks)+len(chunks))
	copy(next, m.chunks)
	for _, c := range chunks {
		cp := *c
		cp.Embedding = append([]float32(nil), c.Embedding...)
		next = append(next, &cp)
	}
	if err := m.save(next); err != nil {
		return err
	}
	m.chunks = next
	return nil
}

// Search returns the top-k chunks by cosine similarity.
func (m *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedChunk, error) {
	if err := checkQuery(query, m.dimensions); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.chunks) == 0 {
		return nil, nil
	}
	hits := make([]*models.RetrievedChunk, len(m.chunks))
	for i, c := range m.chunks {
		hits[i] = &models.RetrievedChunk{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
			Score:    Cosine(query, c.Embedding),
		}
	}
	return topK(hits, k), nil
}

// Flush drops every chunk and removes the snapshot file.
func (m *MemoryStore) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	if m.path == "" {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// Size returns the number of stored chunks.
func (m *MemoryStore) Size(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// Close is a no-op; writes are persisted as they happen.
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) save(chunks []*models.Chunk) error {
	if m.path == "" {
		return nil
	}
	return writeSnapshot(m.path, m.dimensions, chunks)
}

// Load reads the snapshot at path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the store is unchanged.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	chunks, err := readSnapshot(bufio.NewReader(f), m.dimensions)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.chunks = chunks
	m.mu.Unlock()
	return nil
}

// Snapshot format, little endian: dimension (4), n (4), then per chunk: id,
// content, metadata pair count (4) and key/value pairs, vector (dimension*4 bytes).
// Strings are a length (4) followed by the bytes.
func writeSnapshot(path string, dims int, chunks []*models.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	w := bufio.NewWriter(f)
	err = func() error {
		if err := binary.Write(w, binary.LittleEndian, uint32(dims)); err != nil {
			return fmt.Errorf("write dimensions: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(chunks))); err != nil {
			return fmt.Errorf("write count: %w", err)
		}
		for _, c := range chunks {
			if err := writeString(w, c.ID); err != nil {
				return fmt.Errorf("write id: %w", err)
			}
			if err := writeString(w, c.Content); err != nil {
				return fmt.Errorf("write content: %w", err)
			}
			meta := c.Metadata.Map()
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if err := binary.Write(w, binary.LittleEndian, uint32(len(keys))); err != nil {
				return fmt.Errorf("write metadata count: %w", err)
			}
			for _, k := range keys {
				if err := writeString(w, k); err != nil {
					return err
				}
				if err := writeString(w, meta[k]); err != nil {
					return err
				}
			}
			if _, err := w.Write(float32SliceToBytes(c.Embedding)); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
		return w.Flush()
	}()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readSnapshot(r io.Reader, dims int) ([]*models.Chunk, error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != dims {
		return nil, fmt.Errorf("%w: snapshot has %d, store expects %d", ErrDimensionMismatch, dim, dims)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	chunks := make([]*models.Chunk, 0, n)
	buf := make([]byte, dims*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		content, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		var pairs uint32
		if err := binary.Read(r, binary.LittleEndian, &pairs); err != nil {
			return nil, fmt.Errorf("read metadata count: %w", err)
		}
		meta := make(map[string]string, pairs)
		for j := uint32(0); j < pairs; j++ {
			k, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("read metadata key: %w", err)
			}
			v, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("read metadata value: %w", err)
			}
			meta[k] = v
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		chunks = append(chunks, &models.Chunk{
			ID:        id,
			Content:   content,
			Metadata:  models.MetadataFromMap(meta),
			Embedding: bytesToFloat32Slice(buf),
		})
	}
	return chunks, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
