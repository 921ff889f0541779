package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/rag-core/internal/adapters/driven/flatindex"
	"github.com/custodia-labs/rag-core/internal/chunker"
	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven/mocks"
)

type ingestionFixture struct {
	service   *ingestionService
	index     *flatindex.Index
	embedding *mocks.MockEmbeddingService
	docStore  *mocks.MockDocumentStore
	lock      *mocks.MockDistributedLock
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()

	embedding := mocks.NewMockEmbeddingService()
	index, err := flatindex.New(embedding.Dimensions())
	if err != nil {
		t.Fatalf("creating index: %v", err)
	}
	chk, err := chunker.New(100, 20)
	if err != nil {
		t.Fatalf("creating chunker: %v", err)
	}

	config := domain.DefaultConfig()
	config.EmbeddingDimension = embedding.Dimensions()
	config.ChunkSize = 100
	config.ChunkOverlap = 20
	config.EmbeddingBatchSize = 2

	docStore := mocks.NewMockDocumentStore()
	lock := mocks.NewMockDistributedLock()

	svc := NewIngestionService(IngestionServiceConfig{
		Chunker:       chk,
		Index:         index,
		DocumentStore: docStore,
		Lock:          lock,
		Services:      newTestRuntime(embedding),
		Config:        &config,
	})

	return &ingestionFixture{
		service:   svc.(*ingestionService),
		index:     index,
		embedding: embedding,
		docStore:  docStore,
		lock:      lock,
	}
}

func TestIngestDocument(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	doc := domain.NewDocument("notes.txt", strings.Repeat("a", 250))
	added, err := f.service.IngestDocument(ctx, doc)
	if err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	// 250 chars at size 100, overlap 20 gives spans [0,100), [80,180), [160,250)
	if added != 3 {
		t.Errorf("expected 3 entries, got %d", added)
	}
	if f.index.Count() != 3 {
		t.Errorf("expected 3 indexed entries, got %d", f.index.Count())
	}
	if doc.ChunkCount != 3 {
		t.Errorf("expected ChunkCount 3, got %d", doc.ChunkCount)
	}
	if doc.IngestedAt.IsZero() {
		t.Error("expected IngestedAt to be set")
	}

	stored, err := f.docStore.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("document not recorded: %v", err)
	}
	if stored.ChunkCount != 3 {
		t.Errorf("recorded ChunkCount %d, want 3", stored.ChunkCount)
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	f := newIngestionFixture(t)

	added, err := f.service.IngestDocument(context.Background(), domain.NewDocument("empty.txt", "   "))
	if err != nil {
		t.Fatalf("expected empty document to succeed, got %v", err)
	}
	if added != 0 {
		t.Errorf("expected 0 entries, got %d", added)
	}
	if f.index.Count() != 0 {
		t.Errorf("expected empty index, got %d entries", f.index.Count())
	}
}

func TestIngestEmbeddingFailureAddsNothing(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	// Batch size 2 and 3 chunks means two Embed calls; fail the first so
	// nothing is committed.
	f.embedding.SetFailNext(true)
	doc := domain.NewDocument("notes.txt", strings.Repeat("a", 250))

	_, err := f.service.IngestDocument(ctx, doc)
	if !errors.Is(err, domain.ErrIngestionFailed) {
		t.Fatalf("expected ErrIngestionFailed, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected wrapped ErrEmbeddingUnavailable, got %v", err)
	}
	if f.index.Count() != 0 {
		t.Errorf("failed ingestion must not add entries, index has %d", f.index.Count())
	}
	if _, err := f.docStore.Get(ctx, doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Error("failed ingestion must not record the document")
	}
}

func TestIngestWithoutEmbeddingService(t *testing.T) {
	f := newIngestionFixture(t)
	f.service.services.SetEmbeddingService(nil)

	_, err := f.service.IngestDocument(context.Background(), domain.NewDocument("a.txt", "content"))
	if !errors.Is(err, domain.ErrIngestionFailed) {
		t.Errorf("expected ErrIngestionFailed, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected wrapped ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestIngestDimensionMismatch(t *testing.T) {
	f := newIngestionFixture(t)

	f.embedding.SetDimensions(32)
	_, err := f.service.IngestDocument(context.Background(), domain.NewDocument("a.txt", "content"))
	if !errors.Is(err, domain.ErrIngestionFailed) {
		t.Errorf("expected ErrIngestionFailed, got %v", err)
	}
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected wrapped ErrDimensionMismatch, got %v", err)
	}
	if f.index.Count() != 0 {
		t.Errorf("expected nothing indexed, got %d entries", f.index.Count())
	}
}

func TestIngestBatchContinuesPastFailures(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	docs := []*domain.Document{
		domain.NewDocument("bad.txt", "first document content"),
		domain.NewDocument("ok.txt", "second document content"),
	}

	// Fail the first document's embedding call only
	f.embedding.SetFailNext(true)

	result, err := f.service.IngestBatch(ctx, docs)
	if err != nil {
		t.Fatalf("IngestBatch failed: %v", err)
	}
	if result.TotalDocuments != 2 {
		t.Errorf("expected 2 total documents, got %d", result.TotalDocuments)
	}
	if result.Ingested != 1 {
		t.Errorf("expected 1 ingested after failure, got %d", result.Ingested)
	}
	if result.EntriesAdded != 1 {
		t.Errorf("expected 1 entry added, got %d", result.EntriesAdded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	if result.Failed[0].Source != "bad.txt" {
		t.Errorf("wrong document reported failed: %+v", result.Failed[0])
	}
	if f.index.Count() != 1 {
		t.Errorf("expected 1 indexed entry, got %d", f.index.Count())
	}
}

func TestPersistIndexUsesLock(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	doc := domain.NewDocument("notes.txt", "some content to index")
	if _, err := f.service.IngestDocument(ctx, doc); err != nil {
		t.Fatalf("IngestDocument failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.db")
	if err := f.service.PersistIndex(ctx, path); err != nil {
		t.Fatalf("PersistIndex failed: %v", err)
	}
	if f.lock.IsHeld(persistLockName) {
		t.Error("expected persist lock to be released")
	}

	restored, _ := flatindex.New(f.index.Dimensions())
	if err := restored.Load(ctx, path); err != nil {
		t.Fatalf("loading persisted index: %v", err)
	}
	if restored.Count() != f.index.Count() {
		t.Errorf("restored %d entries, want %d", restored.Count(), f.index.Count())
	}
}

func TestPersistIndexBlockedByHeldLock(t *testing.T) {
	f := newIngestionFixture(t)

	f.lock.SetLockHeld(persistLockName, time.Minute)
	err := f.service.PersistIndex(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}
