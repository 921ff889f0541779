package driven

import (
	"context"
)

// EmbeddingService maps text to fixed-dimension vectors.
// It is invoked per chunk batch at ingestion time and per query at query
// time; the core validates Dimensions against the index on every use.
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts in one remote call.
	// The result preserves input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query.
	// May use different model parameters optimized for queries.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
