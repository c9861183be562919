// Package composer builds grounded prompts from retrieved chunks, invokes the
// generation model, validates citation structure, and persists each section as
// a Markdown file in the output directory.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cloudwego/eino/components/model"

	"github.com/docweaver/docweaver-go/internal/budget"
	"github.com/docweaver/docweaver-go/internal/logging"
	"github.com/docweaver/docweaver-go/internal/rag"
)

// SectionOutput is the durable result of composing one section. It is written
// once and not subsequently mutated.
type SectionOutput struct {
	// Name is the section name from the SectionSpec.
	Name string
	// Body is the generated Markdown content.
	Body string
	// OutPath is the file the section was written to.
	OutPath string
	// Violations lists citation-structure problems found in the output.
	// A non-empty list flags the section; the output is still persisted.
	Violations []Violation
}

// Flagged reports whether the output failed the structural citation check.
func (o *SectionOutput) Flagged() bool { return len(o.Violations) > 0 }

// Config holds the composer's construction-time settings.
type Config struct {
	// OutDir is the directory section files are written into.
	OutDir string
	// MaxContextTokens bounds the estimated prompt size; retrieved chunks
	// are trimmed lowest-score-first to fit. Defaults to
	// budget.DefaultMaxContextTokens when zero.
	MaxContextTokens int
}

// Composer turns a section spec plus retrieved chunks into a persisted
// Markdown section. Sampling parameters are fixed on the model at
// construction time, so regenerating a section stays comparable across runs.
type Composer struct {
	model  model.BaseChatModel
	outDir string
	maxCtx int
}

// New constructs a Composer. The output directory is created if absent.
func New(chatModel model.BaseChatModel, cfg *Config) (*Composer, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("composer: chat model must not be nil")
	}
	if cfg == nil || cfg.OutDir == "" {
		return nil, fmt.Errorf("composer: output directory is required")
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("composer: create output dir %s: %w", cfg.OutDir, err)
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &Composer{model: chatModel, outDir: cfg.OutDir, maxCtx: maxCtx}, nil
}

// OutPath returns the deterministic output file for a section name.
func (c *Composer) OutPath(name string) string {
	return filepath.Join(c.outDir, Slug(name)+".md")
}

// Compose generates the section named by spec, grounded on the retrieved
// chunks, and writes it to OutPath(spec.Name). Rerunning a section overwrites
// the previous file. Citation violations flag the output but never reject it.
func (c *Composer) Compose(ctx context.Context, spec *rag.SectionSpec, chunks []rag.ScoredChunk) (*SectionOutput, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("composer: %w", err)
	}
	log := logging.FromContext(ctx)

	msgs, kept := buildMessages(spec, chunks, c.maxCtx)
	if len(kept) < len(chunks) {
		log.Warn("composer: context budget trimmed retrieved chunks",
			slog.String("section", spec.Name),
			slog.Int("retrieved", len(chunks)),
			slog.Int("kept", len(kept)),
		)
	}

	resp, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("composer: generate %q: %w", spec.Name, err)
	}
	if resp == nil || resp.Content == "" {
		return nil, fmt.Errorf("composer: generate %q: empty model response", spec.Name)
	}

	body := resp.Content
	violations := CheckCitations(body)
	if len(violations) > 0 {
		log.Warn("composer: citation check flagged output",
			slog.String("section", spec.Name),
			slog.Int("violations", len(violations)),
		)
	}

	outPath := c.OutPath(spec.Name)
	if err := writeFileAtomic(outPath, []byte(body)); err != nil {
		return nil, fmt.Errorf("composer: persist %q: %w", spec.Name, err)
	}

	return &SectionOutput{
		Name:       spec.Name,
		Body:       body,
		OutPath:    outPath,
		Violations: violations,
	}, nil
}

// writeFileAtomic writes data to a temp file in the same directory then
// renames it over path, so readers never observe a partial section.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
