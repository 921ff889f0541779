package driven

import (
	"context"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

// VectorIndex stores chunk vectors with their metadata and answers
// k-nearest-neighbor queries by similarity. Entries are append-only within
// a session; implementations may be exact or approximate as long as result
// ordering is deterministic for a fixed index state and query.
type VectorIndex interface {
	// Add appends entries and returns their assigned ids, in input order.
	// Fails with domain.ErrDimensionMismatch if any vector's length differs
	// from the index dimension; rejection leaves the index unchanged.
	Add(ctx context.Context, entries []*domain.IndexEntry) ([]string, error)

	// Search returns up to k results ordered by descending similarity.
	// k is capped at the current entry count; an empty index yields an
	// empty result. The query vector's dimension is always validated.
	Search(ctx context.Context, vector []float32, k int) ([]*domain.RetrievalResult, error)

	// Count returns the number of stored entries
	Count() int

	// Dimensions returns the vector dimension the index was created with
	Dimensions() int

	// Persist snapshots the index state to a durable location.
	// Not safe to run concurrently with Add; callers hold the persistence
	// lock around it.
	Persist(ctx context.Context, location string) error

	// Load replaces the index state from a snapshot. Fails with
	// domain.ErrIndexCorrupt when the snapshot's dimension or entry count
	// is internally inconsistent.
	Load(ctx context.Context, location string) error

	// Close releases resources held by the index
	Close() error
}
