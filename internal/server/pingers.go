package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/qdrant/go-client/qdrant"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// LLMPinger probes the generation backend by sending a minimal generate
// request. It satisfies the Pinger interface and is used by GET /api/ready.
// The probe consumes a handful of tokens; readiness checks should not be
// polled aggressively against metered providers.
type LLMPinger struct {
	// model is the chat model to probe.
	model model.BaseChatModel
	// name identifies the backend in readiness responses (e.g. "ollama").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.BaseChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends a one-word generate request and checks for a non-nil response.
func (p *LLMPinger) Ping(ctx context.Context) error {
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// EmbedderPinger probes the embedding backend with a single short embed call.
type EmbedderPinger struct {
	// embedder is the embedding provider to probe.
	embedder rag.Embedder
	// name identifies the backend in readiness responses.
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder.
func NewEmbedderPinger(e rag.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds one short string and checks the result shape.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed returned unexpected shape")
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
