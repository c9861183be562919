// Package budget provides token budget estimation and context trimming for
// section generation. Because docweaver supports multiple LLM backends with
// different tokenizers, this package uses a conservative character-based
// heuristic: 1 token ≈ 4 characters (English prose and code). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/docweaver/docweaver-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English and code; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the generated section itself. Override via Composer config.
	DefaultMaxContextTokens = 6000

	// perChunkOverhead accounts for the provenance tag and separator rendered
	// around each chunk in the prompt.
	perChunkOverhead = 16
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// EstimateChunk returns the estimated token cost of rendering a retrieved
// chunk into the prompt, including its provenance tag.
func EstimateChunk(c rag.ScoredChunk) int {
	return perChunkOverhead + Estimate(c.Chunk.Content)
}

// TrimChunks drops retrieved chunks, lowest score first, until the estimated
// token cost of fixedTokens plus the surviving chunks fits within maxTokens.
// The returned slice preserves the caller's ordering of the survivors.
//
// fixedTokens covers everything in the prompt that must not be trimmed
// (system prompt, section query, guidance). If even zero chunks exceed the
// budget, all chunks are dropped — the caller decides whether to proceed.
func TrimChunks(chunks []rag.ScoredChunk, fixedTokens, maxTokens int) []rag.ScoredChunk {
	if len(chunks) == 0 {
		return chunks
	}

	total := fixedTokens
	for _, c := range chunks {
		total += EstimateChunk(c)
	}
	if total <= maxTokens {
		return chunks
	}

	// Sort a copy of the indices by score ascending so we drop the weakest
	// evidence first, then rebuild in the original order.
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return chunks[order[a]].Score < chunks[order[b]].Score
	})

	dropped := make(map[int]bool, len(chunks))
	for _, idx := range order {
		if total <= maxTokens {
			break
		}
		dropped[idx] = true
		total -= EstimateChunk(chunks[idx])
	}

	kept := make([]rag.ScoredChunk, 0, len(chunks)-len(dropped))
	for i, c := range chunks {
		if !dropped[i] {
			kept = append(kept, c)
		}
	}
	return kept
}
