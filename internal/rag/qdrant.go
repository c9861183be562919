package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed index store.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// CollectionPrefix is prepended to partition names to form collection
	// names (default: "docweaver"). Partition "text" maps to collection
	// "docweaver-text".
	CollectionPrefix string

	// VectorSize is the dimensionality of the embeddings stored per collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements IndexStore backed by a Qdrant instance, one
// collection per partition. Rebuilding a partition drops and recreates its
// collection so stale chunks from a previous ingestion never survive.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a QdrantStore from the given config.
func NewQdrantStore(cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = "docweaver"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantStore{client: client, cfg: cfg}, nil
}

// Client exposes the underlying gRPC client for health probing.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// collectionName maps a partition name to its Qdrant collection name.
func (s *QdrantStore) collectionName(partition string) string {
	return s.cfg.CollectionPrefix + "-" + partition
}

// Build drops any existing collection for the partition, recreates it, and
// upserts all chunks with their embeddings. vectors[i] is the embedding of
// chunks[i].
func (s *QdrantStore) Build(ctx context.Context, partition string, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("qdrant: chunks/vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	collection := s.collectionName(partition)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection %q: %w", collection, err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("qdrant: failed to drop collection %q: %w", collection, err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", collection, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)), //nolint:gosec // i is a slice index
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":  c.Content,
				"source":   c.Source,
				"class":    string(c.Class),
				"seq":      strconv.Itoa(c.Seq),
				"total":    strconv.Itoa(c.Total),
				"language": c.Language,
			}),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert into %q failed: %w", collection, err)
	}

	return nil
}

// Open returns a read-only search view over the partition's collection.
// Returns ErrPartitionNotFound when the collection does not exist.
func (s *QdrantStore) Open(ctx context.Context, partition string) (PartitionIndex, error) {
	collection := s.collectionName(partition)

	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil, ErrPartitionNotFound
	}

	return &qdrantIndex{client: s.client, collection: collection}, nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// qdrantIndex is a read-only PartitionIndex over one Qdrant collection.
type qdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// Search performs a cosine similarity search and returns the top-k results.
func (q *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	limit := uint64(k) //nolint:gosec // k validated non-negative above
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search in %q failed: %w", q.collection, err)
	}

	hits := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		var c Chunk
		if p := r.Payload; p != nil {
			if v, ok := p["content"]; ok {
				c.Content = v.GetStringValue()
			}
			if v, ok := p["source"]; ok {
				c.Source = v.GetStringValue()
			}
			if v, ok := p["class"]; ok {
				c.Class = ExtClass(v.GetStringValue())
			}
			if v, ok := p["language"]; ok {
				c.Language = v.GetStringValue()
			}
			if v, ok := p["seq"]; ok {
				c.Seq, _ = strconv.Atoi(v.GetStringValue())
			}
			if v, ok := p["total"]; ok {
				c.Total, _ = strconv.Atoi(v.GetStringValue())
			}
		}
		hits = append(hits, ScoredChunk{Chunk: c, Score: r.Score})
	}

	return hits, nil
}
