// Package commands defines all Cobra CLI commands for the docweaver binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/docweaver/docweaver-go/internal/audit"
	"github.com/docweaver/docweaver-go/internal/config"
	"github.com/docweaver/docweaver-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docweaver",
		Short: "docweaver — grounded repository documentation, powered by LLMs",
		Long: `docweaver generates technical documentation for a software repository.

It clones (or opens) a repository, splits its files into retrievable chunks,
builds per-partition vector indices, and writes grounded, citation-tagged
Markdown sections: Objective & Scope, System Architecture, Technologies Used,
Installation & Setup, and API Reference.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.docweaver/config.yaml).
See 'docweaver --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.docweaver/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewGenerateCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
