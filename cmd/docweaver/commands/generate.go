package commands

import (
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docweaver/docweaver-go/internal/composer"
	"github.com/docweaver/docweaver-go/internal/logging"
	"github.com/docweaver/docweaver-go/internal/rag"
	"github.com/docweaver/docweaver-go/internal/tracing"
)

// NewGenerateCmd constructs the `docweaver generate` command, which retrieves
// grounding chunks from the built indices and writes Markdown sections.
func NewGenerateCmd() *cobra.Command {
	var sections []string
	var all bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate grounded documentation sections from the built indices",
		Long: `Generate Markdown documentation sections for the ingested repository.

Each section runs Retrieve → Compose → Persist against the indices built by
'docweaver ingest'. Output files are written to OUTPUT_DIR (default: docs/),
one <slug>.md per section, and each run is recorded in the status database.

Stock sections: "Objective & Scope", "System Architecture",
"Technologies Used", "Installation & Setup", "API Reference".

Examples:
  docweaver generate --all
  docweaver generate --section "System Architecture"
  docweaver generate -s objective-scope -s api-reference`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if !all && len(sections) == 0 {
				return fmt.Errorf("generate: pass --all or at least one --section")
			}

			var specs []rag.SectionSpec
			if all {
				specs = composer.StockSections()
			} else {
				for _, name := range sections {
					spec, ok := composer.FindStockSection(name)
					if !ok {
						return fmt.Errorf("generate: unknown section %q", name)
					}
					specs = append(specs, spec)
				}
			}

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			}

			p, _, cleanup, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			defer cleanup()

			results, err := p.GenerateAll(ctx, specs)
			for _, res := range results {
				switch {
				case res.Err != nil:
					log.Error("section failed",
						slog.String("section", res.Name),
						slog.Any("error", res.Err),
					)
					fmt.Printf("FAILED  %s: %v\n", res.Name, res.Err)
				case res.Output.Flagged():
					fmt.Printf("FLAGGED %s -> %s (%d citation violations)\n",
						res.Name, res.Output.OutPath, len(res.Output.Violations))
				default:
					fmt.Printf("ok      %s -> %s\n", res.Name, res.Output.OutPath)
				}
			}
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&sections, "section", "s", nil, "Section name or slug to generate (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Generate every stock section")

	return cmd
}
