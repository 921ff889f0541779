package flatindex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/custodia-labs/rag-core/internal/core/domain"
)

func entry(source string, position int, vector ...float32) *domain.IndexEntry {
	return &domain.IndexEntry{
		Chunk: domain.Chunk{
			DocumentID: "doc-" + source,
			Source:     source,
			Content:    fmt.Sprintf("%s chunk %d", source, position),
			Position:   position,
		},
		Vector: vector,
	}
}

func TestNewRejectsBadDimensions(t *testing.T) {
	for _, dims := range []int{0, -1} {
		if _, err := New(dims); !errors.Is(err, domain.ErrInvalidConfiguration) {
			t.Errorf("New(%d): expected ErrInvalidConfiguration, got %v", dims, err)
		}
	}
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	idx, err := New(3)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	ids, err := idx.Add(ctx, []*domain.IndexEntry{
		entry("a.txt", 0, 1, 0, 0),
		entry("a.txt", 1, 0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "entry-1" || ids[1] != "entry-2" {
		t.Errorf("unexpected ids: %v", ids)
	}

	ids, err = idx.Add(ctx, []*domain.IndexEntry{entry("b.txt", 0, 0, 0, 1)})
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if ids[0] != "entry-3" {
		t.Errorf("expected entry-3, got %s", ids[0])
	}
	if idx.Count() != 3 {
		t.Errorf("expected count 3, got %d", idx.Count())
	}
}

func TestAddRejectsWrongDimensions(t *testing.T) {
	idx, _ := New(3)
	ctx := context.Background()

	_, err := idx.Add(ctx, []*domain.IndexEntry{
		entry("a.txt", 0, 1, 0, 0),
		entry("a.txt", 1, 1, 0), // two dimensions
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	// The whole batch is rejected, including the valid entry
	if idx.Count() != 0 {
		t.Errorf("expected empty index after rejected batch, got %d entries", idx.Count())
	}
}

func TestSearchRanksByCosineSimilarity(t *testing.T) {
	idx, _ := New(2)
	ctx := context.Background()

	_, err := idx.Add(ctx, []*domain.IndexEntry{
		entry("x.txt", 0, 0, 1),   // orthogonal to query
		entry("y.txt", 0, 1, 0),   // same direction as query
		entry("z.txt", 0, 1, 1),   // 45 degrees off
		entry("w.txt", 0, -1, 0),  // opposite direction
		entry("m.txt", 0, 0.5, 0), // same direction, different magnitude
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results, err := idx.Search(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	// Cosine is magnitude-invariant: y and m tie at 1.0, insertion order breaks the tie
	wantOrder := []string{"y.txt", "m.txt", "z.txt", "x.txt", "w.txt"}
	for i, want := range wantOrder {
		if results[i].Entry.Chunk.Source != want {
			t.Errorf("rank %d: got %s, want %s", i+1, results[i].Entry.Chunk.Source, want)
		}
		if results[i].Rank != i+1 {
			t.Errorf("rank %d: Rank field is %d", i+1, results[i].Rank)
		}
	}

	if results[0].Score < 0.999 {
		t.Errorf("expected near-perfect score for aligned vector, got %f", results[0].Score)
	}
	if results[4].Score > -0.999 {
		t.Errorf("expected score near -1 for opposite vector, got %f", results[4].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at rank %d", i+1)
		}
	}
}

func TestSearchCapsK(t *testing.T) {
	idx, _ := New(2)
	ctx := context.Background()

	_, _ = idx.Add(ctx, []*domain.IndexEntry{
		entry("a.txt", 0, 1, 0),
		entry("a.txt", 1, 0, 1),
	})

	results, err := idx.Search(ctx, []float32{1, 1}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected k capped to 2, got %d results", len(results))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, _ := New(2)

	results, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty index, got %d", len(results))
	}
}

func TestSearchRejectsBadInput(t *testing.T) {
	idx, _ := New(3)
	ctx := context.Background()

	if _, err := idx.Search(ctx, []float32{1, 0, 0}, 0); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("k=0: expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 5); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("wrong dims: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchZeroVector(t *testing.T) {
	idx, _ := New(2)
	ctx := context.Background()

	_, _ = idx.Add(ctx, []*domain.IndexEntry{entry("a.txt", 0, 1, 0)})

	results, err := idx.Search(ctx, []float32{0, 0}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Score != 0 {
		t.Errorf("expected zero score against zero vector, got %f", results[0].Score)
	}
}

func TestConcurrentSearches(t *testing.T) {
	idx, _ := New(2)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, _ = idx.Add(ctx, []*domain.IndexEntry{entry("a.txt", i, float32(i), 1)})
	}

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := idx.Search(ctx, []float32{1, 1}, 5)
			done <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent search failed: %v", err)
		}
	}
}
