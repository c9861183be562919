package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// ErrNoIndexableChunks is returned by Builder.Build when the chunk set
// contains nothing routable to a partition. A repository with zero indexable
// files cannot serve any retrieval, so ingestion aborts.
var ErrNoIndexableChunks = errors.New("index: no indexable chunks")

// defaultEmbedBatch is the number of chunk texts embedded per provider call.
// Kept small enough that request bodies stay under provider limits.
const defaultEmbedBatch = 64

// Builder groups chunks by partition, embeds them, and persists one index
// per non-empty partition through an IndexStore.
type Builder struct {
	// embedder converts chunk texts into embeddings.
	embedder rag.Embedder

	// store persists the per-partition indices.
	store rag.IndexStore

	// batchSize is the number of texts per embedding call.
	batchSize int

	// log is the structured logger for progress events.
	log *slog.Logger
}

// NewBuilder constructs a Builder from the given dependencies.
func NewBuilder(embedder rag.Embedder, store rag.IndexStore, log *slog.Logger) (*Builder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("index: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("index: store must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		embedder:  embedder,
		store:     store,
		batchSize: defaultEmbedBatch,
		log:       log,
	}, nil
}

// Build partitions the chunks, embeds each partition's contents, and builds
// its persisted index. Empty partitions are skipped — no index is built and
// later queries see them as "no results". Returns chunk counts per built
// partition.
func (b *Builder) Build(ctx context.Context, chunks []rag.Chunk) (map[string]int, error) {
	groups := make(map[string][]rag.Chunk)
	for _, c := range chunks {
		partition, ok := rag.PartitionFor(c.Class)
		if !ok {
			continue
		}
		groups[partition] = append(groups[partition], c)
	}
	if len(groups) == 0 {
		return nil, ErrNoIndexableChunks
	}

	// Deterministic build order keeps logs and failures reproducible.
	partitions := make([]string, 0, len(groups))
	for p := range groups {
		partitions = append(partitions, p)
	}
	sort.Strings(partitions)

	counts := make(map[string]int, len(groups))
	for _, partition := range partitions {
		group := groups[partition]

		vectors, err := b.embedAll(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("index: embedding partition %q: %w", partition, err)
		}

		if err := b.store.Build(ctx, partition, group, vectors); err != nil {
			return nil, fmt.Errorf("index: building partition %q: %w", partition, err)
		}

		counts[partition] = len(group)
		b.log.Info("index: partition built",
			slog.String("partition", partition),
			slog.Int("chunks", len(group)),
		)
	}

	return counts, nil
}

// embedAll embeds the chunk contents in batches, preserving order.
func (b *Builder) embedAll(ctx context.Context, chunks []rag.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		batch, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
