package driven

import (
	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// AIServiceFactory creates AI services from provider settings.
// Implementations return (nil, nil) for unconfigured settings so callers can
// run without an embedding or generation backend wired in.
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)

	// CreateLLMService creates an LLM service from settings
	CreateLLMService(settings *domain.LLMSettings) (LLMService, error)
}
