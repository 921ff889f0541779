package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
)

// Ensure OllamaEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OllamaEmbedding)(nil)

// Ensure OllamaLLM implements LLMService
var _ driven.LLMService = (*OllamaLLM)(nil)

const defaultOllamaURL = "http://localhost:11434"

// Known dimensions for common Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

func newOllamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL %q: %w", baseURL, err)
	}
	return api.NewClient(parsed, &http.Client{Timeout: 120 * time.Second}), nil
}

// OllamaEmbedding implements EmbeddingService against a local Ollama server
type OllamaEmbedding struct {
	client     *api.Client
	model      string
	dimensions int
}

// NewOllamaEmbedding creates a new Ollama embedding service. dimensions
// overrides the model's known dimensionality when non-zero.
func NewOllamaEmbedding(baseURL, model string, dimensions int) (driven.EmbeddingService, error) {
	if model == "" {
		model = "nomic-embed-text"
	}

	if dimensions <= 0 {
		known, ok := ollamaModelDimensions[model]
		if !ok {
			return nil, fmt.Errorf("%w: unknown dimensionality for model %s, set dimensions explicitly",
				domain.ErrInvalidConfiguration, model)
		}
		dimensions = known
	}

	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}

	return &OllamaEmbedding{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed generates embeddings for multiple texts. Ollama's embedding endpoint
// takes one prompt at a time, so batches become sequential calls.
func (e *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vector
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a single text
func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := e.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: query,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// Dimensions returns the embedding dimension size
func (e *OllamaEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OllamaEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the Ollama server is reachable
func (e *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	return e.client.Heartbeat(ctx)
}

// Close releases resources held by the embedding service
func (e *OllamaEmbedding) Close() error {
	return nil
}

// OllamaLLM implements LLMService against a local Ollama server
type OllamaLLM struct {
	client *api.Client
	model  string
}

// NewOllamaLLM creates a new Ollama generation service
func NewOllamaLLM(baseURL, model string) (driven.LLMService, error) {
	if model == "" {
		model = "llama3.2"
	}

	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}

	return &OllamaLLM{
		client: client,
		model:  model,
	}, nil
}

// Generate produces an answer for the query grounded in the assembled context.
func (l *OllamaLLM) Generate(ctx context.Context, query string, assembled *domain.AssembledContext, params domain.GenerationParams) (string, error) {
	var contextText string
	if assembled != nil {
		contextText = assembled.Text
	}

	stream := false
	req := &api.ChatRequest{
		Model: l.model,
		Messages: []api.Message{
			{Role: "user", Content: domain.GroundingPrompt(query, contextText)},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": params.Temperature,
			"top_p":       params.TopP,
			"num_predict": params.MaxTokens,
		},
	}

	var b strings.Builder
	err := l.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	return b.String(), nil
}

// Model returns the model name being used
func (l *OllamaLLM) Model() string {
	return l.model
}

// Ping verifies the Ollama server is reachable
func (l *OllamaLLM) Ping(ctx context.Context) error {
	return l.client.Heartbeat(ctx)
}

// Close releases resources held by the generation service
func (l *OllamaLLM) Close() error {
	return nil
}
