package driven

import (
	"context"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// DocumentStore is the ingestion registry: it records which documents have
// been committed to the index and how many entries each produced. Raw
// document text is not persisted here.
type DocumentStore interface {
	// Save creates or updates a document record
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document record by id.
	// Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetBySource retrieves a document record by its source identifier.
	// Returns domain.ErrNotFound if absent.
	GetBySource(ctx context.Context, source string) (*domain.Document, error)

	// List returns document records ordered by ingestion time, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.Document, error)

	// Count returns the total number of recorded documents
	Count(ctx context.Context) (int, error)

	// Close releases store resources
	Close() error
}
