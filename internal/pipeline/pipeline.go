// Package pipeline orchestrates the two phases of a documentation run:
// ingestion (resolve repository → chunk → embed → index) and section
// generation (retrieve → compose → persist → record). Sections run
// sequentially over the read-only indices built by ingestion; one section's
// failure never aborts its siblings.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docweaver/docweaver-go/internal/chunker"
	"github.com/docweaver/docweaver-go/internal/composer"
	"github.com/docweaver/docweaver-go/internal/index"
	"github.com/docweaver/docweaver-go/internal/logging"
	"github.com/docweaver/docweaver-go/internal/rag"
	"github.com/docweaver/docweaver-go/internal/retry"
	"github.com/docweaver/docweaver-go/internal/store"
)

// resolver turns a repository reference into a local directory.
// *repo.Resolver satisfies it; tests inject a fake.
type resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// retriever runs routed retrieval for a section spec.
// *rag.Router satisfies it; tests inject a fake.
type retriever interface {
	Retrieve(ctx context.Context, spec *rag.SectionSpec) ([]rag.ScoredChunk, error)
}

// sectionComposer generates and persists one section.
// *composer.Composer satisfies it; tests inject a fake.
type sectionComposer interface {
	Compose(ctx context.Context, spec *rag.SectionSpec, chunks []rag.ScoredChunk) (*composer.SectionOutput, error)
}

// Config wires the pipeline's collaborators. Resolver, Runs, and Retry are
// optional; the rest are required.
type Config struct {
	// Resolver maps repository references to local paths. When nil, only
	// local paths are accepted by Ingest.
	Resolver resolver
	// Chunker extracts chunks from the resolved repository.
	Chunker *chunker.Chunker
	// Builder embeds chunks and persists the partition indices.
	Builder *index.Builder
	// Retriever answers section queries against the built indices.
	Retriever retriever
	// Composer generates and persists section Markdown.
	Composer sectionComposer
	// Runs records per-section outcomes. When nil, recording is skipped.
	Runs store.RunStore
	// Retry bounds the composer retry loop for transient provider failures.
	Retry retry.Policy
}

// Pipeline is the documentation run orchestrator.
type Pipeline struct {
	cfg Config
}

// New validates the config and constructs a Pipeline. Retriever and Composer
// may be nil for an ingest-only pipeline; GenerateSection then fails cleanly.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("pipeline: chunker is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("pipeline: index builder is required")
	}
	return &Pipeline{cfg: cfg}, nil
}

// Ingest resolves ref, chunks the repository, and builds every partition
// index. It returns the per-partition chunk counts. A repository with no
// indexable content fails with index.ErrNoIndexableChunks — without an index
// every later retrieval would silently ground nothing.
func (p *Pipeline) Ingest(ctx context.Context, ref string) (map[string]int, error) {
	log := logging.FromContext(ctx)

	root := ref
	if p.cfg.Resolver != nil {
		resolved, err := p.cfg.Resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolve %s: %w", ref, err)
		}
		root = resolved
	}

	chunks, err := p.cfg.Chunker.ExtractAll(root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: chunk %s: %w", root, err)
	}
	log.Info("pipeline: chunking complete",
		slog.String("root", root),
		slog.Int("chunks", len(chunks)),
	)

	counts, err := p.cfg.Builder.Build(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("pipeline: index %s: %w", root, err)
	}
	return counts, nil
}

// GenerateSection runs Retrieve → Compose → Persist for one section and
// records the outcome. Transient generation failures are retried per the
// configured policy; exhausting retries fails this section only.
func (p *Pipeline) GenerateSection(ctx context.Context, spec *rag.SectionSpec) (*composer.SectionOutput, error) {
	if p.cfg.Retriever == nil || p.cfg.Composer == nil {
		return nil, fmt.Errorf("pipeline: not configured for generation (retriever or composer missing)")
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	log := logging.FromContext(ctx)

	chunks, err := p.cfg.Retriever.Retrieve(ctx, spec)
	if err != nil {
		p.record(ctx, spec.Name, "", store.StatusFailed, err.Error())
		return nil, fmt.Errorf("pipeline: retrieve %q: %w", spec.Name, err)
	}
	if len(chunks) == 0 {
		log.Warn("pipeline: no chunks retrieved — section will rely on the not-available marker",
			slog.String("section", spec.Name),
		)
	}

	var out *composer.SectionOutput
	err = retry.Do(ctx, p.cfg.Retry, func(ctx context.Context) error {
		var composeErr error
		out, composeErr = p.cfg.Composer.Compose(ctx, spec, chunks)
		return composeErr
	})
	if err != nil {
		p.record(ctx, spec.Name, "", store.StatusFailed, err.Error())
		return nil, fmt.Errorf("pipeline: compose %q: %w", spec.Name, err)
	}

	status := store.StatusOK
	reason := ""
	if out.Flagged() {
		status = store.StatusFlagged
		reason = violationSummary(out.Violations)
	}
	p.record(ctx, spec.Name, out.OutPath, status, reason)

	log.Info("pipeline: section generated",
		slog.String("section", spec.Name),
		slog.String("out_path", out.OutPath),
		slog.String("status", string(status)),
	)
	return out, nil
}

// SectionResult pairs a section spec with its run outcome for GenerateAll.
type SectionResult struct {
	// Name is the section name.
	Name string
	// Output is the composed section; nil when Err is set.
	Output *composer.SectionOutput
	// Err is the per-section failure, if any.
	Err error
}

// GenerateAll runs every spec sequentially, isolating failures: a failed
// section is reported in its result and the run continues. The error return
// is non-nil only when every section failed.
func (p *Pipeline) GenerateAll(ctx context.Context, specs []rag.SectionSpec) ([]SectionResult, error) {
	results := make([]SectionResult, 0, len(specs))
	failures := 0

	for i := range specs {
		spec := specs[i]
		out, err := p.GenerateSection(ctx, &spec)
		if err != nil {
			failures++
		}
		results = append(results, SectionResult{Name: spec.Name, Output: out, Err: err})
	}

	if len(specs) > 0 && failures == len(specs) {
		return results, fmt.Errorf("pipeline: all %d sections failed", failures)
	}
	return results, nil
}

// record persists a run outcome when a run store is configured. Recording
// failures are logged, never propagated — the section output is the product,
// the record is bookkeeping.
func (p *Pipeline) record(ctx context.Context, section, outPath string, status store.Status, reason string) {
	if p.cfg.Runs == nil {
		return
	}
	run := store.SectionRun{
		Section: section,
		OutPath: outPath,
		Status:  status,
		Reason:  reason,
	}
	if err := p.cfg.Runs.Record(ctx, run); err != nil {
		logging.FromContext(ctx).Warn("pipeline: failed to record section run",
			slog.String("section", section),
			slog.Any("error", err),
		)
	}
}

// violationSummary condenses citation violations into a short reason string.
func violationSummary(violations []composer.Violation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d citation violation(s)", len(violations))
	limit := min(len(violations), 3)
	for _, v := range violations[:limit] {
		fmt.Fprintf(&b, "; line %d", v.Line)
	}
	return b.String()
}
