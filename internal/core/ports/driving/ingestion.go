package driving

import (
	"context"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// IngestionService is the "ingest a document" operation exposed to the
// surrounding layer. Ingestion of one document is atomic with respect to the
// index: all of its chunks are committed, or none.
type IngestionService interface {
	// IngestDocument chunks, embeds and indexes one document, returning the
	// number of entries added. Failures wrap domain.ErrIngestionFailed and
	// leave the index without any entries from this document.
	IngestDocument(ctx context.Context, doc *domain.Document) (int, error)

	// IngestBatch ingests documents one by one, continuing past individual
	// failures. Documents committed before a failure stay committed.
	IngestBatch(ctx context.Context, docs []*domain.Document) (*domain.BatchResult, error)

	// PersistIndex snapshots the index to the given location under the
	// persistence lock, so it never overlaps ingestion on another instance.
	PersistIndex(ctx context.Context, location string) error
}
