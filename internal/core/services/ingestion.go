package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/rag-core/internal/chunker"
	"github.com/custodia-labs/rag-core/internal/core/domain"
	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
	"github.com/custodia-labs/rag-core/internal/core/ports/driving"
	"github.com/custodia-labs/rag-core/internal/runtime"
)

// persistLockName guards index snapshots across instances.
const persistLockName = "index-persist"

// persistLockTTL bounds how long a crashed instance can block snapshots.
const persistLockTTL = 2 * time.Minute

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

// ingestionService coordinates the ingestion pipeline:
// chunk, embed in batches, commit to the index, record the document.
type ingestionService struct {
	chunker       *chunker.Chunker
	index         driven.VectorIndex
	documentStore driven.DocumentStore
	lock          driven.DistributedLock
	services      *runtime.Services
	config        *domain.Config
	logger        *slog.Logger
}

// IngestionServiceConfig holds dependencies for the ingestion service.
// DocumentStore and Lock are optional; without a lock, persistence relies on
// there being a single instance.
type IngestionServiceConfig struct {
	Chunker       *chunker.Chunker
	Index         driven.VectorIndex
	DocumentStore driven.DocumentStore
	Lock          driven.DistributedLock
	Services      *runtime.Services
	Config        *domain.Config
	Logger        *slog.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(cfg IngestionServiceConfig) driving.IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ingestionService{
		chunker:       cfg.Chunker,
		index:         cfg.Index,
		documentStore: cfg.DocumentStore,
		lock:          cfg.Lock,
		services:      cfg.Services,
		config:        cfg.Config,
		logger:        logger,
	}
}

// IngestDocument runs the full pipeline for one document. All embeddings are
// computed before anything is committed, so a failure partway through leaves
// the index without any entries from this document.
func (s *ingestionService) IngestDocument(ctx context.Context, doc *domain.Document) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("%w: nil document", domain.ErrIngestionFailed)
	}

	chunks := s.chunker.Split(doc)
	if len(chunks) == 0 {
		s.logger.Debug("document produced no chunks", "document_id", doc.ID, "source", doc.Source)
		return 0, nil
	}

	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return 0, fmt.Errorf("%w: %w: no embedding service configured",
			domain.ErrIngestionFailed, domain.ErrEmbeddingUnavailable)
	}

	vectors, err := s.embedChunks(ctx, embeddingService, chunks)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, err)
	}

	entries := make([]*domain.IndexEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = &domain.IndexEntry{
			Chunk:  chunk,
			Vector: vectors[i],
		}
	}

	// Single Add call keeps the document's chunks atomic in the index.
	if _, err := s.index.Add(ctx, entries); err != nil {
		return 0, fmt.Errorf("%w: indexing failed: %w", domain.ErrIngestionFailed, err)
	}

	doc.ChunkCount = len(entries)
	doc.IngestedAt = time.Now()

	// The registry record is advisory; the index commit already succeeded.
	if s.documentStore != nil {
		if err := s.documentStore.Save(ctx, doc); err != nil {
			s.logger.Warn("failed to record ingested document", "document_id", doc.ID, "error", err)
		}
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID,
		"source", doc.Source,
		"chunks", len(entries))

	return len(entries), nil
}

// IngestBatch ingests documents sequentially, continuing past individual
// failures. Concurrent batch ingestion lives in the worker package.
func (s *ingestionService) IngestBatch(ctx context.Context, docs []*domain.Document) (*domain.BatchResult, error) {
	result := &domain.BatchResult{TotalDocuments: len(docs)}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		added, err := s.IngestDocument(ctx, doc)
		if err != nil {
			result.Failed = append(result.Failed, domain.DocumentError{
				DocumentID: doc.ID,
				Source:     doc.Source,
				Err:        err.Error(),
			})
			continue
		}
		result.Ingested++
		result.EntriesAdded += added
	}

	return result, nil
}

// PersistIndex snapshots the index under the persistence lock so a snapshot
// never races ingestion on another instance.
func (s *ingestionService) PersistIndex(ctx context.Context, location string) error {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, persistLockName, persistLockTTL)
		if err != nil {
			return fmt.Errorf("acquiring persist lock: %w", err)
		}
		if !acquired {
			return fmt.Errorf("%w: persist lock held by another instance", domain.ErrServiceUnavailable)
		}
		defer func() {
			if err := s.lock.Release(ctx, persistLockName); err != nil {
				s.logger.Warn("failed to release persist lock", "error", err)
			}
		}()
	}

	if err := s.index.Persist(ctx, location); err != nil {
		return err
	}

	s.logger.Info("index persisted", "location", location, "entries", s.index.Count())
	return nil
}

// embedChunks embeds chunk contents in configured batch sizes and validates
// every vector against the index dimensionality.
func (s *ingestionService) embedChunks(ctx context.Context, embeddingService driven.EmbeddingService, chunks []domain.Chunk) ([][]float32, error) {
	batchSize := s.config.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Content)
		}

		batch, err := embeddingService.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch at chunk %d: %w", start, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedding batch at chunk %d: got %d vectors for %d texts", start, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}

	want := s.index.Dimensions()
	for i, vector := range vectors {
		if len(vector) != want {
			return nil, fmt.Errorf("%w: chunk %d vector has %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, i, len(vector), want)
		}
	}

	return vectors, nil
}
