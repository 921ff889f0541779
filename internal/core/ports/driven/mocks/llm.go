package mocks

import (
	"context"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// MockLLMService is a mock implementation of LLMService for testing.
type MockLLMService struct {
	model    string
	answer   string
	failNext bool
	calls    int

	// LastQuery and LastContext capture the most recent Generate call
	// for test assertions.
	LastQuery   string
	LastContext *domain.AssembledContext
	LastParams  domain.GenerationParams

	// GenerateFn overrides the canned answer when set
	GenerateFn func(query string, assembled *domain.AssembledContext) (string, error)
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		model:  "mock-llm-model",
		answer: "mock answer",
	}
}

func (m *MockLLMService) Generate(ctx context.Context, query string, assembled *domain.AssembledContext, params domain.GenerationParams) (string, error) {
	m.calls++
	m.LastQuery = query
	m.LastContext = assembled
	m.LastParams = params

	if m.failNext {
		m.failNext = false
		return "", domain.ErrGenerationFailed
	}
	if m.GenerateFn != nil {
		return m.GenerateFn(query, assembled)
	}
	return m.answer, nil
}

func (m *MockLLMService) Model() string {
	return m.model
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockLLMService) SetFailNext(fail bool) {
	m.failNext = fail
}

func (m *MockLLMService) SetAnswer(answer string) {
	m.answer = answer
}

// Calls returns how many Generate calls were made.
func (m *MockLLMService) Calls() int {
	return m.calls
}
