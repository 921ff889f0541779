package domain

import "fmt"

// GenerationParams are pass-through sampling knobs for the generator.
// The core range-checks them at configuration load and otherwise treats
// them as opaque.
type GenerationParams struct {
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// Config is the process-wide pipeline configuration. It is validated once at
// startup and treated as immutable for the lifetime of the pipelines, so
// ingestion-time and query-time assumptions (most importantly the embedding
// dimension) cannot drift apart within a process.
type Config struct {
	// EmbeddingDimension is the vector length every stored and query
	// embedding must have
	EmbeddingDimension int `json:"embedding_dimension"`

	// ChunkSize is the sliding-window length in bytes
	ChunkSize int `json:"chunk_size"`

	// ChunkOverlap is the byte overlap between consecutive chunks
	ChunkOverlap int `json:"chunk_overlap"`

	// EmbeddingBatchSize caps how many chunk texts go into one remote
	// embedding call during ingestion
	EmbeddingBatchSize int `json:"embedding_batch_size"`

	// RetrievalK is the default number of candidates fetched per query
	RetrievalK int `json:"retrieval_k"`

	// MaxContextLength is the assembled-context budget in bytes
	MaxContextLength int `json:"max_context_length"`

	// AllowUngrounded lets the query pipeline call the generator with an
	// empty context instead of returning the fixed no-context answer
	AllowUngrounded bool `json:"allow_ungrounded"`

	Generation GenerationParams `json:"generation"`
}

// DefaultConfig returns the documented defaults. Chunking and retrieval
// values are tuning defaults, not structural requirements.
func DefaultConfig() Config {
	return Config{
		EmbeddingDimension: 1024,
		ChunkSize:          500,
		ChunkOverlap:       50,
		EmbeddingBatchSize: 64,
		RetrievalK:         5,
		MaxContextLength:   4000,
		Generation: GenerationParams{
			Temperature: 0.7,
			TopP:        0.9,
			MaxTokens:   512,
		},
	}
}

// Validate rejects unusable configuration before any pipeline runs.
// All violations wrap ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d",
			ErrInvalidConfiguration, c.EmbeddingDimension)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d",
			ErrInvalidConfiguration, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must be non-negative, got %d",
			ErrInvalidConfiguration, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			ErrInvalidConfiguration, c.ChunkOverlap, c.ChunkSize)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive, got %d",
			ErrInvalidConfiguration, c.EmbeddingBatchSize)
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("%w: retrieval k must be positive, got %d",
			ErrInvalidConfiguration, c.RetrievalK)
	}
	if c.MaxContextLength <= 0 {
		return fmt.Errorf("%w: max context length must be positive, got %d",
			ErrInvalidConfiguration, c.MaxContextLength)
	}
	return c.Generation.validate()
}

func (g GenerationParams) validate() error {
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be in [0, 2], got %g",
			ErrInvalidConfiguration, g.Temperature)
	}
	if g.TopP <= 0 || g.TopP > 1 {
		return fmt.Errorf("%w: top_p must be in (0, 1], got %g",
			ErrInvalidConfiguration, g.TopP)
	}
	if g.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d",
			ErrInvalidConfiguration, g.MaxTokens)
	}
	return nil
}
