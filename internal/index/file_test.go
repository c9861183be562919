package index

import (
	"context"
	"errors"
	"testing"

	"github.com/docweaver/docweaver-go/internal/rag"
)

func chunk(source string, seq, total int) rag.Chunk {
	return rag.Chunk{Content: "content of " + source, Source: source, Class: rag.ClassText, Seq: seq, Total: total}
}

func Test_FileStore_BuildOpenSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	chunks := []rag.Chunk{
		chunk("a.md", 1, 2),
		chunk("a.md", 2, 2),
		chunk("b.md", 1, 1),
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	if err := fs.Build(ctx, "text", chunks, vectors); err != nil {
		t.Fatalf("Build: %v", err)
	}

	idx, err := fs.Open(ctx, "text")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	// a.md#1 is an exact match (cosine 1.0), b.md#1 is close, a.md#2 orthogonal.
	if hits[0].Chunk.ID() != "a.md#1" {
		t.Errorf("top hit = %s, want a.md#1", hits[0].Chunk.ID())
	}
	if hits[1].Chunk.ID() != "b.md#1" {
		t.Errorf("second hit = %s, want b.md#1", hits[1].Chunk.ID())
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores not descending: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func Test_FileStore_OpenMissingPartition(t *testing.T) {
	t.Parallel()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, err = fs.Open(context.Background(), "text")
	if !errors.Is(err, rag.ErrPartitionNotFound) {
		t.Fatalf("want ErrPartitionNotFound, got %v", err)
	}
}

func Test_FileStore_RebuildReplacesIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := fs.Build(ctx, "code",
		[]rag.Chunk{chunk("old.py", 1, 1)},
		[][]float32{{1, 0}},
	); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if err := fs.Build(ctx, "code",
		[]rag.Chunk{chunk("new.py", 1, 1)},
		[][]float32{{1, 0}},
	); err != nil {
		t.Fatalf("second Build: %v", err)
	}

	idx, err := fs.Open(ctx, "code")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hits, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Chunk.Source != "new.py" {
		t.Fatalf("rebuild must fully replace the index, got %+v", hits)
	}
}

func Test_FileStore_BuildValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := fs.Build(ctx, "text",
		[]rag.Chunk{chunk("a.md", 1, 1)},
		nil,
	); err == nil {
		t.Error("want error for chunks/vectors length mismatch")
	}
	if err := fs.Build(ctx, "text",
		[]rag.Chunk{chunk("a.md", 1, 2), chunk("a.md", 2, 2)},
		[][]float32{{1, 0}, {1, 0, 0}},
	); err == nil {
		t.Error("want error for inconsistent vector dimensions")
	}
}

func Test_MemoryIndex_QueryDimensionMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := fs.Build(ctx, "text",
		[]rag.Chunk{chunk("a.md", 1, 1)},
		[][]float32{{1, 0, 0}},
	); err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx, err := fs.Open(ctx, "text")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Fatal("want error for query dimension mismatch")
	}
}

func Test_CosineSimilarity(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tc := range cases {
		if got := cosineSimilarity(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: cosineSimilarity = %f, want %f", tc.name, got, tc.want)
		}
	}
}
