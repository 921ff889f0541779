// Package memory provides in-process implementations of the document store
// and lock ports, used when the pipeline runs as a single instance without
// external backends.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore in memory.
type DocumentStore struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Document
	bySource map[string]*domain.Document
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		byID:     make(map[string]*domain.Document),
		bySource: make(map[string]*domain.Document),
	}
}

// Save creates or updates a document record. A record with the same source
// replaces the previous one, matching re-ingestion semantics.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if previous, ok := s.bySource[doc.Source]; ok && previous.ID != doc.ID {
		delete(s.byID, previous.ID)
	}

	copied := *doc
	s.byID[copied.ID] = &copied
	s.bySource[copied.Source] = &copied
	return nil
}

// Get retrieves a document record by id.
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// GetBySource retrieves a document record by its source identifier.
func (s *DocumentStore) GetBySource(ctx context.Context, source string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.bySource[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// List returns document records ordered by ingestion time, newest first.
func (s *DocumentStore) List(ctx context.Context, limit, offset int) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*domain.Document, 0, len(s.byID))
	for _, doc := range s.byID {
		copied := *doc
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].IngestedAt.After(docs[j].IngestedAt)
	})

	if offset >= len(docs) {
		return []*domain.Document{}, nil
	}
	end := offset + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

// Count returns the total number of recorded documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close releases store resources. The in-memory store holds none.
func (s *DocumentStore) Close() error {
	return nil
}
