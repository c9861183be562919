package composer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/schema"

	"github.com/docweaver/docweaver-go/internal/budget"
	"github.com/docweaver/docweaver-go/internal/rag"
)

// systemPrompt is the fixed persona and citation contract sent on every
// compose call. Each retrieved chunk is rendered with the exact tag the model
// must copy, so obeying the contract never requires the model to construct a
// tag from scratch.
const systemPrompt = `You are a senior technical writer producing one section of a repository's documentation.

You will receive the section name, a description of what the section should cover, and retrieved repository content. Each retrieved chunk is preceded by its citation tag in the form [source: <path>#<i>/<n>].

Strict citation rules:
- Every sentence must end with exactly one citation tag copied verbatim from a retrieved chunk.
- If the repository content does not support a claim, write the sentence ending with (Information not available in repository) instead of a tag.
- Never invent file paths, endpoints, environment variables, or version numbers.
- Use only the retrieved content as evidence; do not rely on outside knowledge of similarly named projects.

Output plain Markdown for the section body only. Do not repeat the section title as a top-level heading; start at the '##' level or below.`

// buildMessages assembles the system and user messages for a section. Chunks
// that do not fit within maxContextTokens are dropped lowest-score-first. The
// surviving chunks are returned so the caller can report trimming.
func buildMessages(spec *rag.SectionSpec, chunks []rag.ScoredChunk, maxContextTokens int) ([]*schema.Message, []rag.ScoredChunk) {
	var fixed strings.Builder
	fmt.Fprintf(&fixed, "Section: %s\n\n", spec.Name)
	fmt.Fprintf(&fixed, "What this section should cover: %s\n", spec.Query)
	if spec.Guidance != "" {
		fmt.Fprintf(&fixed, "\nGuidance:\n%s\n", strings.TrimSpace(spec.Guidance))
	}
	if spec.AdditionalContext != "" {
		fmt.Fprintf(&fixed, "\nAdditional context:\n%s\n", strings.TrimSpace(spec.AdditionalContext))
	}

	fixedTokens := budget.Estimate(systemPrompt) + budget.Estimate(fixed.String())
	kept := budget.TrimChunks(chunks, fixedTokens, maxContextTokens)

	var user strings.Builder
	user.WriteString(fixed.String())
	user.WriteString("\nRetrieved repository content:\n\n")
	if len(kept) == 0 {
		user.WriteString("(no repository content was retrieved for this section)\n")
	}
	for _, c := range kept {
		fmt.Fprintf(&user, "[source: %s]\n%s\n\n", c.Chunk.Provenance(), c.Chunk.Content)
	}

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(user.String()),
	}, kept
}

// Slug converts a section name into a stable lowercase filename component:
// letters and digits are kept, every other run of characters collapses to a
// single hyphen. "Objective & Scope" becomes "objective-scope".
func Slug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return "section"
	}
	return b.String()
}
