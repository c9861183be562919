// Package index implements vector index building and the default file-backed
// index store. Each partition persists to one file under the store directory,
// named deterministically by partition, so later processes can discover and
// reload indices without re-embedding. An index is immutable once built;
// rebuilding overwrites the file atomically.
package index

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// FileStore is a rag.IndexStore persisting one gob-encoded index file per
// partition under its base directory.
type FileStore struct {
	// dir is the base directory holding <partition>.idx files.
	dir string
}

// NewFileStore creates the base directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("index: store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index: creating %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// indexFile is the on-disk representation of one partition index.
type indexFile struct {
	// Chunks holds the indexed chunks; Vectors[i] is the embedding of Chunks[i].
	Chunks  []rag.Chunk
	Vectors [][]float32
	// Dimension is the embedding vector length, recorded for validation on load.
	Dimension int
}

// Path returns the deterministic index file path for a partition.
func (s *FileStore) Path(partition string) string {
	return filepath.Join(s.dir, partition+".idx")
}

// Build writes the partition index to disk, replacing any previous index
// entirely. The write goes to a temp file first and is renamed into place so
// readers never observe a partial index.
func (s *FileStore) Build(_ context.Context, partition string, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("index: chunks/vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	dim := 0
	for i, v := range vectors {
		if i == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return fmt.Errorf("index: vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	path := s.Path(partition)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("index: creating %s: %w", tmp, err)
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(&indexFile{Chunks: chunks, Vectors: vectors, Dimension: dim}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("index: encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("index: closing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("index: replacing %s: %w", path, err)
	}
	return nil
}

// Open loads the partition index read-only. Returns rag.ErrPartitionNotFound
// when no index file exists for the partition.
func (s *FileStore) Open(_ context.Context, partition string) (rag.PartitionIndex, error) {
	path := s.Path(partition)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rag.ErrPartitionNotFound
		}
		return nil, fmt.Errorf("index: opening %s: %w", path, err)
	}
	defer f.Close()

	var data indexFile
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("index: decoding %s: %w", path, err)
	}

	return &memoryIndex{chunks: data.Chunks, vectors: data.Vectors, dimension: data.Dimension}, nil
}

// Close is a no-op for FileStore; files are opened per query.
func (s *FileStore) Close() error { return nil }

// memoryIndex is the loaded, read-only form of one partition index. It uses
// brute-force cosine similarity, which is exact and fast enough for the
// per-repository index sizes this tool produces.
type memoryIndex struct {
	chunks    []rag.Chunk
	vectors   [][]float32
	dimension int
}

// Search returns the top-k chunks by cosine similarity to the query vector,
// ordered by descending score with (source, seq) as a deterministic tiebreak.
func (m *memoryIndex) Search(_ context.Context, query []float32, k int) ([]rag.ScoredChunk, error) {
	if k <= 0 || len(m.chunks) == 0 {
		return nil, nil
	}
	if len(query) != m.dimension {
		return nil, fmt.Errorf("index: query dimension %d does not match index dimension %d", len(query), m.dimension)
	}

	hits := make([]rag.ScoredChunk, 0, len(m.chunks))
	for i, vec := range m.vectors {
		hits = append(hits, rag.ScoredChunk{
			Chunk: m.chunks[i],
			Score: cosineSimilarity(query, vec),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.Source != hits[j].Chunk.Source {
			return hits[i].Chunk.Source < hits[j].Chunk.Source
		}
		return hits[i].Chunk.Seq < hits[j].Chunk.Seq
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// cosineSimilarity returns the cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero-norm inputs.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
