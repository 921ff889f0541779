package driven

import (
	"context"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// LLMService produces the final natural-language answer for a query,
// grounded on the assembled context. Generation parameters are opaque
// pass-through knobs; the core does not retry failed calls.
type LLMService interface {
	// Generate answers the query using the given context. An empty context
	// is valid; the implementation decides how to phrase uncertainty.
	Generate(ctx context.Context, query string, assembled *domain.AssembledContext, params domain.GenerationParams) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
