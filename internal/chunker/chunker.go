// Package chunker walks a cloned repository tree and produces the typed,
// bounded text chunks that feed the index builder. Splitting is
// character-based and deterministic: re-running over unchanged content yields
// byte-identical chunks, so re-ingestion is idempotent.
package chunker

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// Config holds the chunking parameters.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 3000 if zero.
	ChunkSize int

	// Overlap is the number of characters shared between consecutive chunks
	// of the same file, so a retrieved chunk is self-contained enough for
	// grounding. Defaults to 200 if zero; negative disables overlap.
	Overlap int

	// MinContentLen is the minimum trimmed content length for a file to be
	// indexed. Files at or below this length are skipped — they add noise
	// without retrievable signal. Defaults to 50 if zero.
	MinContentLen int
}

// Chunker extracts chunks from a repository tree.
type Chunker struct {
	// cfg holds the resolved chunking configuration.
	cfg Config

	// log is the structured logger for skip/error events.
	log *slog.Logger
}

// New constructs a Chunker, applying defaults for zero config values.
func New(cfg Config, log *slog.Logger) (*Chunker, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 3000
	}
	if cfg.Overlap == 0 {
		cfg.Overlap = 200
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than chunk size %d", cfg.Overlap, cfg.ChunkSize)
	}
	if cfg.MinContentLen <= 0 {
		cfg.MinContentLen = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &Chunker{cfg: cfg, log: log}, nil
}

// ExtractAll walks the repository rooted at root once and returns all chunks.
// Files classed "other", files at or below the minimum length, and files that
// cannot be read or are not valid UTF-8 are skipped; a single bad file never
// aborts the extraction. Each physical file is processed exactly once.
func (c *Chunker) ExtractAll(root string) ([]rag.Chunk, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("chunker: repository root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("chunker: repository root %s is not a directory", root)
	}

	var chunks []rag.Chunk
	processed := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: log and continue with the rest of the repo.
			c.log.Warn("chunker: skipping unreadable path",
				slog.String("path", path),
				slog.Any("error", err),
			)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if processed[path] {
			return nil
		}
		processed[path] = true

		chunks = append(chunks, c.extractFile(root, path)...)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("chunker: walking %s: %w", root, walkErr)
	}

	return chunks, nil
}

// extractFile reads, classifies, and chunks a single file. Returns nil when
// the file is skipped for any reason.
func (c *Chunker) extractFile(root, path string) []rag.Chunk {
	class, lang := Classify(path)
	if class == rag.ClassOther {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.log.Warn("chunker: skipping unreadable file",
			slog.String("path", path),
			slog.Any("error", err),
		)
		return nil
	}
	if !utf8.Valid(data) {
		c.log.Debug("chunker: skipping non-UTF-8 file", slog.String("path", path))
		return nil
	}

	content := strings.TrimSpace(string(data))
	if len(content) <= c.cfg.MinContentLen {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	parts := split(content, c.cfg.ChunkSize, c.cfg.Overlap)
	out := make([]rag.Chunk, 0, len(parts))
	for i, part := range parts {
		out = append(out, rag.Chunk{
			Content:  part,
			Source:   rel,
			Class:    class,
			Seq:      i + 1,
			Total:    len(parts),
			Language: lang,
		})
	}
	return out
}

// split cuts text into overlapping windows of at most size characters.
// Windows are measured in runes, never bisecting a multi-byte character.
// Each window after the first starts overlap characters before the previous
// window's end, so concatenating the windows with the overlap removed
// reconstructs the original text exactly.
func split(text string, size, overlap int) []string {
	if len(text) <= size {
		return []string{text}
	}
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var parts []string
	start, end := 0, size
	for start < len(runes) {
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
		end = start + size
	}
	return parts
}
