package driving

import (
	"context"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// QueryService is the "answer a query" operation exposed to the surrounding
// layer. Every call performs a fresh embedding, search and generation; no
// query caching is assumed.
type QueryService interface {
	// Answer retrieves relevant passages, assembles a bounded context and
	// generates a grounded answer. Generator failures wrap
	// domain.ErrGenerationFailed and are terminal for the query.
	Answer(ctx context.Context, query string) (*domain.Answer, error)

	// Retrieve runs only the retrieval stage, returning the top-k ranked
	// candidates for the query.
	Retrieve(ctx context.Context, query string, k int) ([]*domain.RetrievalResult, error)
}
