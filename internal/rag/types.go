// Package rag defines the core retrieval types and interfaces for docweaver:
// repository chunks, per-partition vector indices, embedding, and the
// route-aware retriever that feeds the section composer. Concrete index
// implementations (file-backed, Qdrant) satisfy these interfaces so the
// composer layer never depends on a specific backend.
package rag

import (
	"fmt"
)

// ExtClass classifies a source file by its extension.
type ExtClass string

const (
	// ClassText covers markdown, READMEs, and other prose-like files.
	ClassText ExtClass = "text"
	// ClassCode covers source code and machine-readable config files.
	ClassCode ExtClass = "code"
	// ClassOther covers everything else; such files are not indexed.
	ClassOther ExtClass = "other"
)

// Partition names backing one vector index each.
const (
	// PartitionText is the partition holding ClassText chunks.
	PartitionText = "text"
	// PartitionCode is the partition holding ClassCode chunks.
	PartitionCode = "code"
)

// PartitionFor maps an extension class to its partition name.
// The second return value is false for classes that are never indexed.
func PartitionFor(class ExtClass) (string, bool) {
	switch class {
	case ClassText:
		return PartitionText, true
	case ClassCode:
		return PartitionCode, true
	default:
		return "", false
	}
}

// Chunk is a bounded unit of text extracted from one repository file,
// carrying the provenance metadata needed for citation. Chunks are created
// once per ingestion and are immutable thereafter.
type Chunk struct {
	// Content is the chunk text. Its length is bounded by the chunker's
	// window size, with a configured overlap shared with its predecessor.
	Content string

	// Source is the file path relative to the repository root.
	Source string

	// Class is the extension class that routed this chunk to its partition.
	Class ExtClass

	// Seq is the 1-based position of this chunk within Source.
	Seq int

	// Total is the number of chunks extracted from Source.
	Total int

	// Language is an optional language hint derived from the file extension
	// (e.g. "python", "go"). Empty for prose files.
	Language string
}

// ID returns the chunk identity key: chunks are deduplicated across
// partitions by (Source, Seq).
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.Source, c.Seq)
}

// Provenance returns the citation tag body for this chunk, rendered into
// prompts so generated sentences can cite it verbatim.
func (c Chunk) Provenance() string {
	return fmt.Sprintf("%s#%d/%d", c.Source, c.Seq, c.Total)
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// Score is the cosine similarity to the query (higher is better).
	Score float32
}

// Route selects which partition(s) a retrieval query targets.
type Route string

const (
	// RouteTextOnly queries only the text partition.
	RouteTextOnly Route = "text_only"
	// RouteCodeOnly queries only the code partition.
	RouteCodeOnly Route = "code_only"
	// RouteBoth queries both partitions independently and merges.
	RouteBoth Route = "both"
)

// SectionSpec describes one documentation section request. It is created by
// the caller, consumed once, and not persisted.
type SectionSpec struct {
	// Name is the section title (e.g. "System Architecture").
	Name string

	// Query is the retrieval query run against the vector indices.
	Query string

	// Route selects the partition(s) to query.
	Route Route

	// KText is the number of text-partition results to fetch.
	// Ignored when Route is RouteCodeOnly.
	KText int

	// KCode is the number of code-partition results to fetch.
	// Ignored when Route is RouteTextOnly.
	KCode int

	// Guidance is optional formatting/content guidance appended to the prompt.
	Guidance string

	// AdditionalContext is optional free-form instruction text for the prompt.
	AdditionalContext string
}

// Validate checks the spec invariants: non-empty name and query, a known
// route, and non-negative k budgets. k=0 is valid and means "skip this side".
func (s *SectionSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("rag: section name must not be empty")
	}
	if s.Query == "" {
		return fmt.Errorf("rag: section %q has an empty query", s.Name)
	}
	switch s.Route {
	case RouteTextOnly, RouteCodeOnly, RouteBoth:
	default:
		return fmt.Errorf("rag: section %q has unknown route %q — valid values: text_only, code_only, both", s.Name, s.Route)
	}
	if s.KText < 0 || s.KCode < 0 {
		return fmt.Errorf("rag: section %q has negative k (k_text=%d, k_code=%d)", s.Name, s.KText, s.KCode)
	}
	return nil
}
