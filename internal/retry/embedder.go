package retry

import (
	"context"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// Embedder decorates a rag.Embedder with the bounded retry policy, so both
// ingestion-time chunk embedding and query-time embedding share the same
// backoff behaviour without each call site carrying a retry loop.
type Embedder struct {
	inner  rag.Embedder
	policy Policy
}

// NewEmbedder wraps inner with the given policy.
func NewEmbedder(inner rag.Embedder, policy Policy) *Embedder {
	return &Embedder{inner: inner, policy: policy}
}

// Embed calls the wrapped embedder under the retry policy.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := Do(ctx, e.policy, func(ctx context.Context) error {
		vecs, err := e.inner.Embed(ctx, texts)
		if err != nil {
			return err
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
