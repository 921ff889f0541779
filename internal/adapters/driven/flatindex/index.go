// Package flatindex provides an exact in-memory vector index. Every search
// scans all entries and ranks them by cosine similarity, which is the right
// trade-off for corpora small enough to embed on one machine.
package flatindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Index is a flat, exact-search vector index. Reads take a shared lock so
// searches run concurrently; Add, Persist and Load are exclusive.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	entries    []*domain.IndexEntry
	nextID     uint64
}

// New creates an empty index for vectors of the given dimensionality.
func New(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: index dimensions must be positive, got %d", domain.ErrInvalidConfiguration, dimensions)
	}
	return &Index{dimensions: dimensions, nextID: 1}, nil
}

// Add appends entries and returns their assigned ids. Validation happens
// before anything is appended, so a bad vector rejects the whole batch.
func (idx *Index) Add(ctx context.Context, entries []*domain.IndexEntry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	for i, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("nil entry at position %d", i)
		}
		if len(entry.Vector) != idx.dimensions {
			return nil, fmt.Errorf("%w: entry %d vector has %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, i, len(entry.Vector), idx.dimensions)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	ids := make([]string, len(entries))
	for i, entry := range entries {
		entry.ID = fmt.Sprintf("entry-%d", idx.nextID)
		idx.nextID++
		ids[i] = entry.ID
		idx.entries = append(idx.entries, entry)
	}
	return ids, nil
}

// Search returns the k entries most similar to the query vector, ranked by
// cosine similarity descending. Ties keep insertion order. k is capped at
// the entry count; an empty index returns an empty result.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]*domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: search k must be positive, got %d", domain.ErrInvalidConfiguration, k)
	}
	if len(vector) != idx.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(vector), idx.dimensions)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return []*domain.RetrievalResult{}, nil
	}
	if k > len(idx.entries) {
		k = len(idx.entries)
	}

	scored := make([]*domain.RetrievalResult, len(idx.entries))
	for i, entry := range idx.entries {
		scored[i] = &domain.RetrievalResult{
			Entry: entry,
			Score: cosineSimilarity(vector, entry.Vector),
		}
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	results := scored[:k]
	for i, result := range results {
		result.Rank = i + 1
	}
	return results, nil
}

// Count returns the number of indexed entries.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dimensions returns the vector dimensionality the index accepts.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Close releases index resources. The flat index holds none.
func (idx *Index) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// A zero vector scores 0 against everything.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
