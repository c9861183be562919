package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/docweaver/docweaver-go/internal/budget"
	"github.com/docweaver/docweaver-go/internal/chunker"
	"github.com/docweaver/docweaver-go/internal/composer"
	"github.com/docweaver/docweaver-go/internal/embedder"
	"github.com/docweaver/docweaver-go/internal/index"
	"github.com/docweaver/docweaver-go/internal/pipeline"
	"github.com/docweaver/docweaver-go/internal/provider"
	"github.com/docweaver/docweaver-go/internal/rag"
	"github.com/docweaver/docweaver-go/internal/repo"
	"github.com/docweaver/docweaver-go/internal/retry"
	"github.com/docweaver/docweaver-go/internal/server"
	"github.com/docweaver/docweaver-go/internal/store"
)

// Defaults for paths resolved from the environment.
const (
	defaultIndexDir  = "docs_index"
	defaultOutputDir = "docs"
)

// buildEmbedder constructs the embedding provider from the environment and
// wraps it with the bounded retry decorator.
func buildEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}
	return retry.NewEmbedder(emb, retry.Policy{}), nil
}

// buildIndexStore constructs the vector index store selected by
// INDEX_BACKEND: "file" (default) or "qdrant".
func buildIndexStore(log *slog.Logger) (rag.IndexStore, error) {
	backend := getEnvOrDefault("INDEX_BACKEND", "file")

	switch backend {
	case "file":
		dir := getEnvOrDefault("INDEX_DIR", defaultIndexDir)
		fs, err := index.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		log.Info("index store ready", slog.String("backend", "file"), slog.String("dir", dir))
		return fs, nil

	case "qdrant":
		embBackend := embedder.Backend()
		qs, err := rag.NewQdrantStore(&rag.QdrantConfig{
			Host:             getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:             getEnvInt("QDRANT_PORT", 6334),
			CollectionPrefix: getEnvOrDefault("QDRANT_COLLECTION_PREFIX", "docweaver"),
			VectorSize:       uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
			APIKey:           os.Getenv("QDRANT_API_KEY"),
			UseTLS:           os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, err
		}
		log.Info("index store ready",
			slog.String("backend", "qdrant"),
			slog.String("host", getEnvOrDefault("QDRANT_HOST", "localhost")),
		)
		return qs, nil

	default:
		return nil, fmt.Errorf("unknown INDEX_BACKEND %q — valid values: file, qdrant", backend)
	}
}

// openRunStore opens the section run record store. DOCWEAVER_STATUS_DB
// overrides the default path (~/.docweaver/runs.db); "disabled" turns
// recording off. Failures degrade to no recording with a warning.
func openRunStore(log *slog.Logger) (store.RunStore, func()) {
	dbPath := os.Getenv("DOCWEAVER_STATUS_DB")
	if dbPath == "disabled" {
		log.Info("run records: disabled via DOCWEAVER_STATUS_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("run records: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
		dbPath = p
	}
	rs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("run records: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("run records: store opened", slog.String("path", dbPath))
	return rs, func() { _ = rs.Close() }
}

// pipelineParts holds the shared collaborators both pipeline variants need.
type pipelineParts struct {
	cfg      pipeline.Config
	cleanups []func()
}

// cleanup runs the accumulated teardown functions in reverse order.
func (p *pipelineParts) cleanup() {
	for i := len(p.cleanups) - 1; i >= 0; i-- {
		p.cleanups[i]()
	}
}

// buildCommonParts wires the collaborators every pipeline needs: resolver,
// chunker, embedder, index store, builder, and router.
func buildCommonParts(log *slog.Logger) (*pipelineParts, error) {
	parts := &pipelineParts{}

	resolver, err := repo.NewResolver(os.Getenv("DOCWEAVER_CLONE_DIR"))
	if err != nil {
		return parts, err
	}

	chk, err := chunker.New(chunker.Config{
		ChunkSize:     getEnvInt("CHUNK_SIZE", 0),
		Overlap:       getEnvInt("CHUNK_OVERLAP", 0),
		MinContentLen: getEnvInt("CHUNK_MIN_CONTENT", 0),
	}, log)
	if err != nil {
		return parts, err
	}

	emb, err := buildEmbedder(log)
	if err != nil {
		return parts, err
	}

	idxStore, err := buildIndexStore(log)
	if err != nil {
		return parts, err
	}
	parts.cleanups = append(parts.cleanups, func() { _ = idxStore.Close() })

	builder, err := index.NewBuilder(emb, idxStore, log)
	if err != nil {
		return parts, err
	}

	router, err := rag.NewRouter(emb, idxStore)
	if err != nil {
		return parts, err
	}

	parts.cfg = pipeline.Config{
		Resolver:  resolver,
		Chunker:   chk,
		Builder:   builder,
		Retriever: router,
		Retry:     retry.Policy{},
	}
	return parts, nil
}

// buildIngestPipeline wires an ingest-only pipeline: no generation model is
// constructed, so ingestion works without LLM credentials.
func buildIngestPipeline(_ context.Context, log *slog.Logger) (*pipeline.Pipeline, store.RunStore, func(), error) {
	parts, err := buildCommonParts(log)
	if err != nil {
		return nil, nil, parts.cleanup, err
	}

	p, err := pipeline.New(parts.cfg)
	if err != nil {
		return nil, nil, parts.cleanup, err
	}
	return p, nil, parts.cleanup, nil
}

// buildPipeline wires the full documentation pipeline from the environment,
// including the generation model, composer, and run record store. The
// returned cleanup must be called before process exit.
func buildPipeline(ctx context.Context, log *slog.Logger) (*pipeline.Pipeline, store.RunStore, func(), error) {
	parts, err := buildCommonParts(log)
	if err != nil {
		return nil, nil, parts.cleanup, err
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, parts.cleanup, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "ollama")))

	comp, err := composer.New(chatModel, &composer.Config{
		OutDir:           getEnvOrDefault("OUTPUT_DIR", defaultOutputDir),
		MaxContextTokens: getEnvInt("MAX_CONTEXT_TOKENS", budget.DefaultMaxContextTokens),
	})
	if err != nil {
		return nil, nil, parts.cleanup, err
	}

	runs, closeRuns := openRunStore(log)
	parts.cleanups = append(parts.cleanups, closeRuns)

	cfg := parts.cfg
	cfg.Composer = comp
	cfg.Runs = runs

	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, nil, parts.cleanup, err
	}

	return p, runs, parts.cleanup, nil
}

// buildPingers assembles the readiness probes for `docweaver serve`: the
// generation model, the embedding backend, and Qdrant when it is the index
// backend.
func buildPingers(ctx context.Context, log *slog.Logger) ([]server.Pinger, error) {
	var pingers []server.Pinger

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider for probing: %w", err)
	}
	modelBackend := getEnvOrDefault("MODEL_PROVIDER", "ollama")
	pingers = append(pingers, server.NewLLMPinger(chatModel, modelBackend))

	emb, err := buildEmbedder(log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder for probing: %w", err)
	}
	pingers = append(pingers, server.NewEmbedderPinger(emb, "embedder-"+embedder.Backend()))

	if getEnvOrDefault("INDEX_BACKEND", "file") == "qdrant" {
		qs, err := rag.NewQdrantStore(&rag.QdrantConfig{
			Host:   getEnvOrDefault("QDRANT_HOST", "localhost"),
			Port:   getEnvInt("QDRANT_PORT", 6334),
			APIKey: os.Getenv("QDRANT_API_KEY"),
			UseTLS: os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant for probing: %w", err)
		}
		pingers = append(pingers, server.NewQdrantPinger(qs.Client()))
	}

	return pingers, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
