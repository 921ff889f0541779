package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrInvalidConfiguration indicates the pipeline configuration is unusable
	// (bad chunk/overlap relationship, non-positive k, non-positive context
	// budget, out-of-range generation parameters). Fatal at load time.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates a vector's length differs from the
	// configured embedding dimension. Never truncated or padded away.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is
	// not configured
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrGenerationFailed indicates the LLM call failed; terminal for a query
	ErrGenerationFailed = errors.New("generation failed")

	// ErrIndexCorrupt indicates a persisted index snapshot is internally
	// inconsistent and must not be served
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrIngestionFailed indicates a document could not be ingested; no
	// entries from that document were committed
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
