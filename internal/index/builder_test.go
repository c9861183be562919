package index

import (
	"context"
	"errors"
	"testing"

	"github.com/docweaver/docweaver-go/internal/rag"
)

// countingEmbedder returns a unit vector per text and records batch sizes.
type countingEmbedder struct {
	batches []int
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.batches = append(e.batches, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// recordingStore captures the Build calls it receives.
type recordingStore struct {
	built map[string]int
}

func (s *recordingStore) Build(_ context.Context, partition string, chunks []rag.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("length mismatch")
	}
	if s.built == nil {
		s.built = make(map[string]int)
	}
	s.built[partition] = len(chunks)
	return nil
}

func (s *recordingStore) Open(context.Context, string) (rag.PartitionIndex, error) {
	return nil, rag.ErrPartitionNotFound
}

func (s *recordingStore) Close() error { return nil }

func classed(class rag.ExtClass, source string) rag.Chunk {
	return rag.Chunk{Content: "c", Source: source, Class: class, Seq: 1, Total: 1}
}

func Test_Builder_GroupsByPartition(t *testing.T) {
	t.Parallel()
	emb := &countingEmbedder{}
	st := &recordingStore{}
	b, err := NewBuilder(emb, st, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	counts, err := b.Build(context.Background(), []rag.Chunk{
		classed(rag.ClassText, "a.md"),
		classed(rag.ClassCode, "b.py"),
		classed(rag.ClassText, "c.md"),
		classed(rag.ClassOther, "d.png"), // never indexed
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if counts["text"] != 2 || counts["code"] != 1 {
		t.Errorf("counts = %v, want text:2 code:1", counts)
	}
	if st.built["text"] != 2 || st.built["code"] != 1 {
		t.Errorf("store received %v, want text:2 code:1", st.built)
	}
}

func Test_Builder_NoIndexableChunks(t *testing.T) {
	t.Parallel()
	b, err := NewBuilder(&countingEmbedder{}, &recordingStore{}, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	_, err = b.Build(context.Background(), []rag.Chunk{
		classed(rag.ClassOther, "logo.svg"),
	})
	if !errors.Is(err, ErrNoIndexableChunks) {
		t.Fatalf("want ErrNoIndexableChunks, got %v", err)
	}

	_, err = b.Build(context.Background(), nil)
	if !errors.Is(err, ErrNoIndexableChunks) {
		t.Fatalf("want ErrNoIndexableChunks for empty input, got %v", err)
	}
}

func Test_Builder_BatchesEmbedding(t *testing.T) {
	t.Parallel()
	emb := &countingEmbedder{}
	b, err := NewBuilder(emb, &recordingStore{}, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	b.batchSize = 10

	chunks := make([]rag.Chunk, 25)
	for i := range chunks {
		chunks[i] = rag.Chunk{Content: "c", Source: "a.md", Class: rag.ClassText, Seq: i + 1, Total: 25}
	}

	if _, err := b.Build(context.Background(), chunks); err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []int{10, 10, 5}
	if len(emb.batches) != len(want) {
		t.Fatalf("batches = %v, want %v", emb.batches, want)
	}
	for i := range want {
		if emb.batches[i] != want[i] {
			t.Errorf("batch %d = %d, want %d", i, emb.batches[i], want[i])
		}
	}
}

// failingEmbedder always errors.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider unavailable")
}

func Test_Builder_EmbedErrorAborts(t *testing.T) {
	t.Parallel()
	st := &recordingStore{}
	b, err := NewBuilder(failingEmbedder{}, st, nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	_, err = b.Build(context.Background(), []rag.Chunk{classed(rag.ClassText, "a.md")})
	if err == nil {
		t.Fatal("want embed error to abort the build")
	}
	if len(st.built) != 0 {
		t.Errorf("no partition should be built after embed failure, got %v", st.built)
	}
}
