package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docweaver/docweaver-go/internal/logging"
	"github.com/docweaver/docweaver-go/internal/server"
	"github.com/docweaver/docweaver-go/internal/tracing"
)

// NewServeCmd constructs the `docweaver serve` command, which exposes section
// generation and run records over HTTP.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docweaver HTTP API",
		Long: `Start the docweaver HTTP server on localhost.

The server exposes:
  POST /api/sections   generate one stock section
  GET  /api/sections   recent section run records
  GET  /api/health     liveness
  GET  /api/ready      readiness (probes the model and index backends)
  GET  /metrics        Prometheus metrics

Ingestion must have run before sections can be generated.

Examples:
  docweaver serve
  docweaver serve --port 9090
  MODEL_PROVIDER=azure docweaver serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			// Flags win over SERVER_HOST/SERVER_PORT (set directly or via YAML).
			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("SERVER_PORT", port)
			}

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			p, runs, cleanup, err := buildPipeline(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cleanup()

			pingers, err := buildPingers(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(p, runs, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
