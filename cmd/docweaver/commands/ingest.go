package commands

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/docweaver/docweaver-go/internal/logging"
)

// NewIngestCmd constructs the `docweaver ingest` command, which resolves a
// repository, chunks it, and builds the partition vector indices.
func NewIngestCmd() *cobra.Command {
	var repoRef string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk a repository and build its vector indices",
		Long: `Clone or open a repository, split its files into chunks, embed them, and
persist one vector index per partition (text, code).

Ingestion must run before 'docweaver generate'. Re-running ingestion fully
replaces the previous indices for the repository's partitions.

Relevant environment variables:
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides
  INDEX_BACKEND        file (default) or qdrant
  INDEX_DIR            Directory for file-backed indices (default: docs_index)
  QDRANT_*             Qdrant connection settings (INDEX_BACKEND=qdrant)
  CHUNK_SIZE           Characters per chunk (default: 3000)
  CHUNK_OVERLAP        Characters shared between neighbours (default: 200)

Examples:
  docweaver ingest --repo https://github.com/psf/requests
  docweaver ingest --repo ./path/to/checkout
  INDEX_BACKEND=qdrant docweaver ingest --repo https://github.com/psf/requests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if repoRef == "" {
				return fmt.Errorf("ingest: --repo is required")
			}

			p, _, cleanup, err := buildIngestPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer cleanup()

			counts, err := p.Ingest(ctx, repoRef)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			partitions := make([]string, 0, len(counts))
			for name := range counts {
				partitions = append(partitions, name)
			}
			sort.Strings(partitions)
			for _, name := range partitions {
				log.Info("partition indexed",
					slog.String("partition", name),
					slog.Int("chunks", counts[name]),
				)
				fmt.Printf("indexed %s: %d chunks\n", name, counts[name])
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&repoRef, "repo", "r", "", "Repository URL or local path to ingest")

	return cmd
}
