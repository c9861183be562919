package rag

import (
	"context"
	"errors"
)

// ErrPartitionNotFound is returned by IndexStore.Open when no index has been
// built for the requested partition. Callers treat it as an empty result,
// never as a failure — a repository with code but no markdown is a valid,
// common case.
var ErrPartitionNotFound = errors.New("rag: partition index not found")

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// PartitionIndex is a read-only view of one partition's vector index.
// Queries never mutate the index.
type PartitionIndex interface {
	// Search returns the top-k chunks by similarity to the query vector,
	// ordered by descending score. k<=0 returns an empty result.
	Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error)
}

// IndexStore persists and reopens per-partition vector indices.
// Implementations must be safe to call from multiple goroutines once built;
// Build must not run concurrently with Open on the same partition.
type IndexStore interface {
	// Build replaces the persisted index for partition with the given chunks
	// and their pre-computed embeddings. vectors[i] is the embedding of
	// chunks[i]. Rebuilding overwrites the previous index entirely.
	Build(ctx context.Context, partition string, chunks []Chunk, vectors [][]float32) error

	// Open loads the persisted index for partition read-only.
	// Returns ErrPartitionNotFound when no index was built for it.
	Open(ctx context.Context, partition string) (PartitionIndex, error)

	// Close releases any resources held by the store.
	Close() error
}
