package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
	"github.com/custodia-labs/rag-core/internal/runtime"
)

// Retriever runs the retrieval stage: embed the query and search the index.
// The embedding service is resolved per call via runtime.Services so a
// backend configured after startup is picked up without restarts.
type Retriever struct {
	index    driven.VectorIndex
	services *runtime.Services
	defaultK int
}

// NewRetriever creates a Retriever. defaultK is used when a caller passes a
// non-positive k.
func NewRetriever(index driven.VectorIndex, services *runtime.Services, defaultK int) (*Retriever, error) {
	if defaultK <= 0 {
		return nil, fmt.Errorf("%w: default retrieval k must be positive, got %d", domain.ErrInvalidConfiguration, defaultK)
	}
	return &Retriever{
		index:    index,
		services: services,
		defaultK: defaultK,
	}, nil
}

// Retrieve returns the top-k ranked candidates for the query. An empty index
// yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]*domain.RetrievalResult, error) {
	if k <= 0 {
		k = r.defaultK
	}

	embeddingService := r.services.EmbeddingService()
	if embeddingService == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}

	vector, err := embeddingService.EmbedQuery(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if len(vector) != r.index.Dimensions() {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(vector), r.index.Dimensions())
	}

	return r.index.Search(ctx, vector, k)
}
