package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Router retrieves chunks for a section by embedding its query once and
// fanning out to the partition(s) its route selects.
type Router struct {
	// embedder converts the section query to a dense vector.
	embedder Embedder

	// store opens per-partition indices for searching.
	store IndexStore
}

// NewRouter constructs a Router from the given Embedder and IndexStore.
func NewRouter(embedder Embedder, store IndexStore) (*Router, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: index store must not be nil")
	}
	return &Router{embedder: embedder, store: store}, nil
}

// partitionBudget pairs a partition name with its top-k budget.
type partitionBudget struct {
	partition string
	k         int
}

// budgets resolves the route into the list of (partition, k) queries to run.
// A k that the route excludes is ignored per the SectionSpec contract.
func budgets(spec *SectionSpec) []partitionBudget {
	switch spec.Route {
	case RouteTextOnly:
		return []partitionBudget{{PartitionText, spec.KText}}
	case RouteCodeOnly:
		return []partitionBudget{{PartitionCode, spec.KCode}}
	default:
		return []partitionBudget{
			{PartitionText, spec.KText},
			{PartitionCode, spec.KCode},
		}
	}
}

// Retrieve returns the merged, deduplicated retrieval result for the section.
// Partitions with no built index and partitions requested with k=0 contribute
// zero results. On duplicate chunk identity the highest score wins. Results
// are ordered by descending score, ties broken by source path then sequence
// index ascending.
func (r *Router) Retrieve(ctx context.Context, spec *SectionSpec) ([]ScoredChunk, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	queries := budgets(spec)

	total := 0
	for _, q := range queries {
		total += q.k
	}
	if total == 0 {
		// Nothing requested — skip the embedding call entirely.
		return nil, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{spec.Query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query for section %q failed: %w", spec.Name, err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned empty result for section %q", spec.Name)
	}
	queryVec := vecs[0]

	var hits []ScoredChunk
	for _, q := range queries {
		if q.k <= 0 {
			continue
		}
		idx, err := r.store.Open(ctx, q.partition)
		if errors.Is(err, ErrPartitionNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rag: opening partition %q: %w", q.partition, err)
		}
		results, err := idx.Search(ctx, queryVec, q.k)
		if err != nil {
			return nil, fmt.Errorf("rag: searching partition %q: %w", q.partition, err)
		}
		hits = append(hits, results...)
	}

	return merge(hits), nil
}

// merge deduplicates hits by chunk identity keeping the highest score, then
// sorts by score descending with (source, seq) ascending as the tiebreak.
func merge(hits []ScoredChunk) []ScoredChunk {
	best := make(map[string]ScoredChunk, len(hits))
	for _, h := range hits {
		id := h.Chunk.ID()
		if prev, ok := best[id]; !ok || h.Score > prev.Score {
			best[id] = h
		}
	}

	out := make([]ScoredChunk, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Chunk.Source != out[j].Chunk.Source {
			return out[i].Chunk.Source < out[j].Chunk.Source
		}
		return out[i].Chunk.Seq < out[j].Chunk.Seq
	})

	return out
}
