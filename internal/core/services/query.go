package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driving"
	"github.com/custodia-labs/rag-core/internal/runtime"
)

// noContextAnswer is returned when retrieval finds nothing to ground on.
const noContextAnswer = "I could not find anything in the indexed documents that answers your question."

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// queryService runs the query pipeline: retrieve, assemble, generate.
type queryService struct {
	retriever *Retriever
	assembler *ContextAssembler
	services  *runtime.Services
	config    *domain.Config
	logger    *slog.Logger
}

// QueryServiceConfig holds dependencies for the query service.
type QueryServiceConfig struct {
	Retriever *Retriever
	Assembler *ContextAssembler
	Services  *runtime.Services
	Config    *domain.Config
	Logger    *slog.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(cfg QueryServiceConfig) driving.QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &queryService{
		retriever: cfg.Retriever,
		assembler: cfg.Assembler,
		services:  cfg.Services,
		config:    cfg.Config,
		logger:    logger,
	}
}

// Answer runs the full pipeline for one query. When retrieval produces no
// usable context the generator is not called at all, unless ungrounded
// answers are explicitly enabled.
func (s *queryService) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidConfiguration)
	}

	results, err := s.retriever.Retrieve(ctx, query, s.config.RetrievalK)
	if err != nil {
		return nil, err
	}

	assembled := s.assembler.Assemble(results)
	if assembled.Empty() && !s.config.AllowUngrounded {
		s.logger.Info("no context retrieved, skipping generation", "query_len", len(query))
		return &domain.Answer{
			Query:    query,
			Text:     noContextAnswer,
			Grounded: false,
			Took:     time.Since(start),
		}, nil
	}

	llmService := s.services.LLMService()
	if llmService == nil {
		return nil, fmt.Errorf("%w: no generation service configured", domain.ErrServiceUnavailable)
	}

	text, err := llmService.Generate(ctx, query, assembled, s.config.Generation)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}

	answer := &domain.Answer{
		Query:    query,
		Text:     text,
		Sources:  assembled.Sources,
		Grounded: !assembled.Empty(),
		Took:     time.Since(start),
	}

	s.logger.Info("query answered",
		"sources", len(answer.Sources),
		"grounded", answer.Grounded,
		"truncated", assembled.Truncated,
		"took", answer.Took)

	return answer, nil
}

// Retrieve exposes the retrieval stage on its own.
func (s *queryService) Retrieve(ctx context.Context, query string, k int) ([]*domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidConfiguration)
	}
	return s.retriever.Retrieve(ctx, query, k)
}
